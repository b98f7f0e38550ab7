// Copyright Contributors to the Open Cluster Management project

package kube

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/stolostron/hnc-event-relay/pkg/model"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// GroupVersionResource maps the ref to its API resource. The resource name is the
// lower-cased plural of the kind.
func GroupVersionResource(ref model.ResourceRef) (schema.GroupVersionResource, error) {
	if err := ref.Validate(); err != nil {
		return schema.GroupVersionResource{}, err
	}
	gv, err := schema.ParseGroupVersion(ref.APIVersion)
	if err != nil {
		return schema.GroupVersionResource{}, fmt.Errorf("%w: %v", model.ErrInvalidRef, err)
	}
	gvr, _ := meta.UnsafeGuessKindToResource(gv.WithKind(ref.Kind))
	return gvr, nil
}

// ResourcePath builds the API path addressing the ref, e.g.
// /apis/hnc.x-k8s.io/v1alpha2/namespaces/team-a/hierarchyconfigurations/hierarchy
func ResourcePath(ref model.ResourceRef) (string, error) {
	gvr, err := GroupVersionResource(ref)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if gvr.Group == "" {
		b.WriteString("/api/" + gvr.Version)
	} else {
		b.WriteString("/apis/" + gvr.Group + "/" + gvr.Version)
	}
	if ref.Namespace != "" {
		b.WriteString("/namespaces/" + url.PathEscape(ref.Namespace))
	}
	b.WriteString("/" + gvr.Resource)
	if ref.Name != "" {
		b.WriteString("/" + url.PathEscape(ref.Name))
	}
	return b.String(), nil
}

// LabelSelector returns the selector string for the ref labels, with keys sorted.
func LabelSelector(ref model.ResourceRef) string {
	if len(ref.Labels) == 0 {
		return ""
	}
	return labels.SelectorFromSet(labels.Set(ref.Labels)).String()
}

// WatchPath builds the path and query of a watch request for the ref.
// Watches address the collection and select a named object with a field selector.
// Query order: labelSelector, watch, fieldSelector.
func WatchPath(ref model.ResourceRef) (string, error) {
	collection := ref
	collection.Name = ""
	path, err := ResourcePath(collection)
	if err != nil {
		return "", err
	}

	query := make([]string, 0, 3)
	if selector := LabelSelector(ref); selector != "" {
		query = append(query, "labelSelector="+url.QueryEscape(selector))
	}
	query = append(query, "watch=true")
	if ref.Name != "" {
		field := fields.OneTermEqualSelector("metadata.name", ref.Name).String()
		query = append(query, "fieldSelector="+url.QueryEscape(field))
	}
	return path + "?" + strings.Join(query, "&"), nil
}
