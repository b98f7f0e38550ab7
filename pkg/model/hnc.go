// Copyright Contributors to the Open Cluster Management project

package model

import "k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

// Hierarchical Namespace Controller names used by the relay.
const (
	HNCAPIVersion            = "hnc.x-k8s.io/v1alpha2"
	IncludedNamespaceLabel   = "hnc.x-k8s.io/included-namespace"
	SubnamespaceOfAnnotation = "hnc.x-k8s.io/subnamespace-of"
	HierarchyConfigName      = "hierarchy"
)

// Sub-resource kinds relayed for every namespace a session can read.
var (
	ResourceQuotaRef = ResourceRef{APIVersion: "v1", Kind: "ResourceQuota"}

	HierarchicalResourceQuotaRef = ResourceRef{APIVersion: HNCAPIVersion, Kind: "HierarchicalResourceQuota"}

	NetworkPolicyRef = ResourceRef{APIVersion: "networking.k8s.io/v1", Kind: "NetworkPolicy"}

	HierarchyConfigurationRef = ResourceRef{APIVersion: HNCAPIVersion, Kind: "HierarchyConfiguration"}

	SubnamespaceAnchorRef = ResourceRef{APIVersion: HNCAPIVersion, Kind: "SubnamespaceAnchor"}
)

// IncludedNamespacesRef selects the namespaces matching selector, or the namespaces
// managed by HNC when selector is empty.
func IncludedNamespacesRef(selector map[string]string) ResourceRef {
	if len(selector) == 0 {
		selector = map[string]string{IncludedNamespaceLabel: "true"}
	}
	return ResourceRef{
		APIVersion: "v1",
		Kind:       "Namespace",
		Labels:     selector,
	}
}

// HierarchyConfiguration sets the parent of a namespace.
func HierarchyConfiguration(namespace, parent string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": HNCAPIVersion,
			"kind":       HierarchyConfigurationRef.Kind,
			"metadata": map[string]interface{}{
				"name":      HierarchyConfigName,
				"namespace": namespace,
			},
			"spec": map[string]interface{}{
				"parent": parent,
			},
		},
	}
}

// SubnamespaceAnchor asks HNC to create (or delete, when removed) the sub-namespace name under parent.
func SubnamespaceAnchor(name, parent string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": HNCAPIVersion,
			"kind":       SubnamespaceAnchorRef.Kind,
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": parent,
			},
		},
	}
}

// ParentOf returns the parent of a sub-namespace, or "" for a full namespace.
func ParentOf(ns *unstructured.Unstructured) string {
	return ns.GetAnnotations()[SubnamespaceOfAnnotation]
}
