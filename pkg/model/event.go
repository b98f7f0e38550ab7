// Copyright Contributors to the Open Cluster Management project

package model

import (
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// EventType is the type of a watch event.
type EventType string

const (
	Added    EventType = "ADDED"
	Modified EventType = "MODIFIED"
	Deleted  EventType = "DELETED"
)

// IsKnown returns true for the event types the relay handles.
func (t EventType) IsKnown() bool {
	switch t {
	case Added, Modified, Deleted:
		return true
	}
	return false
}

// WatchEvent is a single change event for a watched resource.
type WatchEvent struct {
	Type   EventType
	Object *unstructured.Unstructured
}

type wireEvent struct {
	Type   EventType              `json:"type"`
	Object map[string]interface{} `json:"object"`
}

// MarshalJSON encodes the event as {"type":...,"object":{...}}.
func (e WatchEvent) MarshalJSON() ([]byte, error) {
	w := wireEvent{Type: e.Type}
	if e.Object != nil {
		w.Object = e.Object.Object
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an event without requiring kind on the embedded object.
func (e *WatchEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Type = w.Type
	e.Object = nil
	if w.Object != nil {
		e.Object = &unstructured.Unstructured{Object: w.Object}
	}
	return nil
}

// Name returns object.metadata.name, or "" when missing.
func (e WatchEvent) Name() string {
	if e.Object == nil {
		return ""
	}
	return e.Object.GetName()
}

// Namespace returns object.metadata.namespace, or "" when missing.
func (e WatchEvent) Namespace() string {
	if e.Object == nil {
		return ""
	}
	return e.Object.GetNamespace()
}

// NewDiagnosticEvent builds the synthetic event sent to clients when a watch fails.
// The object carries the target kind and namespace plus a readable message.
func NewDiagnosticEvent(ref ResourceRef, err error) WatchEvent {
	var msg string
	if ref.Namespace != "" {
		msg = fmt.Sprintf("couldn't watch %s on namespace '%s', error: %v", ref.Kind, ref.Namespace, err)
	} else {
		msg = fmt.Sprintf("couldn't watch %s, error: %v", ref.Kind, err)
	}
	metadata := map[string]interface{}{}
	if ref.Namespace != "" {
		metadata["namespace"] = ref.Namespace
	}
	return WatchEvent{
		Type: Added,
		Object: &unstructured.Unstructured{
			Object: map[string]interface{}{
				"apiVersion": ref.APIVersion,
				"kind":       ref.Kind,
				"metadata":   metadata,
				"message":    msg,
			},
		},
	}
}
