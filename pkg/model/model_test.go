// Copyright Contributors to the Open Cluster Management project
package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Validate(t *testing.T) {
	assert.NoError(t, ResourceRef{APIVersion: "v1", Kind: "Namespace"}.Validate())

	err := ResourceRef{Kind: "Namespace"}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidRef))
	assert.Contains(t, err.Error(), "apiVersion")

	err = ResourceRef{APIVersion: "v1"}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidRef))
	assert.Contains(t, err.Error(), "kind")
}

func Test_InNamespace_doesNotModifyOriginal(t *testing.T) {
	ref := ResourceQuotaRef.InNamespace("team-a")

	assert.Equal(t, "team-a", ref.Namespace)
	assert.Equal(t, "", ResourceQuotaRef.Namespace)
}

// Should decode events whose object has no kind and encode them back in the same shape.
func Test_WatchEvent_JSON(t *testing.T) {
	var event WatchEvent
	err := json.Unmarshal([]byte(`{"type":"DELETED","object":{"metadata":{"name":"a","namespace":"b"}}}`), &event)
	require.NoError(t, err)

	assert.Equal(t, Deleted, event.Type)
	assert.Equal(t, "a", event.Name())
	assert.Equal(t, "b", event.Namespace())

	out, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"DELETED","object":{"metadata":{"name":"a","namespace":"b"}}}`, string(out))
}

func Test_WatchEvent_emptyObject(t *testing.T) {
	event := WatchEvent{Type: "BOOKMARK"}

	assert.False(t, event.Type.IsKnown())
	assert.Equal(t, "", event.Name())
	assert.Equal(t, "", event.Namespace())
}

func Test_NewDiagnosticEvent(t *testing.T) {
	event := NewDiagnosticEvent(HierarchicalResourceQuotaRef.InNamespace("team-a"), errors.New("boom"))

	assert.Equal(t, Added, event.Type)
	assert.Equal(t, "HierarchicalResourceQuota", event.Object.GetKind())
	assert.Equal(t, "team-a", event.Namespace())
	assert.Equal(t, "couldn't watch HierarchicalResourceQuota on namespace 'team-a', error: boom",
		event.Object.Object["message"])
}

func Test_NamespaceTemplate(t *testing.T) {
	ns := NamespaceTemplate("team-a")

	assert.Equal(t, "Namespace", ns.GetKind())
	assert.Equal(t, "v1", ns.GetAPIVersion())
	assert.Equal(t, "team-a", ns.GetName())
}

func Test_HNCObjects(t *testing.T) {
	hc := HierarchyConfiguration("team-b", "team-a")
	assert.Equal(t, ResourceRef{APIVersion: HNCAPIVersion, Kind: "HierarchyConfiguration", Namespace: "team-b", Name: "hierarchy"},
		RefForObject(hc))
	assert.Equal(t, "team-a", hc.Object["spec"].(map[string]interface{})["parent"])

	anchor := SubnamespaceAnchor("team-b", "team-a")
	assert.Equal(t, ResourceRef{APIVersion: HNCAPIVersion, Kind: "SubnamespaceAnchor", Namespace: "team-a", Name: "team-b"},
		RefForObject(anchor))
}

func Test_ParentOf(t *testing.T) {
	ns := NamespaceTemplate("team-b")
	assert.Equal(t, "", ParentOf(ns))

	ns.SetAnnotations(map[string]string{SubnamespaceOfAnnotation: "team-a"})
	assert.Equal(t, "team-a", ParentOf(ns))
}

func Test_IncludedNamespacesRef(t *testing.T) {
	ref := IncludedNamespacesRef(nil)
	assert.Equal(t, ResourceRef{APIVersion: "v1", Kind: "Namespace", Labels: map[string]string{IncludedNamespaceLabel: "true"}}, ref)

	ref = IncludedNamespacesRef(map[string]string{"team": "blue"})
	assert.Equal(t, map[string]string{"team": "blue"}, ref.Labels)
	assert.Empty(t, ref.Name)
}
