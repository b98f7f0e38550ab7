// Copyright Contributors to the Open Cluster Management project

package session

import "github.com/stolostron/hnc-event-relay/pkg/model"

// DefaultKinds are the resources watched in every namespace a session can read.
var DefaultKinds = []model.ResourceRef{
	model.ResourceQuotaRef,
	model.HierarchicalResourceQuotaRef,
	model.NetworkPolicyRef,
	model.HierarchyConfigurationRef,
}
