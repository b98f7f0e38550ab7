// Copyright Contributors to the Open Cluster Management project

package model

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ErrInvalidRef is returned when a ResourceRef can't be used to build a request.
var ErrInvalidRef = errors.New("invalid resource reference")

// ResourceRef identifies a collection or a single resource on the Kubernetes API.
// Labels become a label selector. Treat a ResourceRef as immutable once built.
type ResourceRef struct {
	APIVersion string            `json:"apiVersion"`
	Kind       string            `json:"kind"`
	Namespace  string            `json:"namespace,omitempty"`
	Name       string            `json:"name,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// Validate checks the fields required to build a URL.
func (r ResourceRef) Validate() error {
	if r.APIVersion == "" {
		return fmt.Errorf("%w: the object passed must contain apiVersion field", ErrInvalidRef)
	}
	if r.Kind == "" {
		return fmt.Errorf("%w: the object passed must contain kind field", ErrInvalidRef)
	}
	return nil
}

// InNamespace returns a copy of the ref scoped to the namespace.
func (r ResourceRef) InNamespace(namespace string) ResourceRef {
	r.Namespace = namespace
	return r
}

func (r ResourceRef) String() string {
	s := r.Kind
	if r.Namespace != "" {
		s += " ns=" + r.Namespace
	}
	if r.Name != "" {
		s += " name=" + r.Name
	}
	return s
}

// RefForObject builds the ref addressing an existing object.
func RefForObject(obj *unstructured.Unstructured) ResourceRef {
	return ResourceRef{
		APIVersion: obj.GetAPIVersion(),
		Kind:       obj.GetKind(),
		Namespace:  obj.GetNamespace(),
		Name:       obj.GetName(),
	}
}

// NamespaceRef addresses a single namespace.
func NamespaceRef(name string) ResourceRef {
	return ResourceRef{APIVersion: "v1", Kind: "Namespace", Name: name}
}

// NamespaceTemplate is the minimal namespace object sent to clients when a namespace is gone.
func NamespaceTemplate(name string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "v1",
			"kind":       "Namespace",
			"metadata": map[string]interface{}{
				"name": name,
			},
		},
	}
}
