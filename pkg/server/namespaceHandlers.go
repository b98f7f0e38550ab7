// Copyright Contributors to the Open Cluster Management project

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stolostron/hnc-event-relay/pkg/config"
	"github.com/stolostron/hnc-event-relay/pkg/kube"
	"github.com/stolostron/hnc-event-relay/pkg/model"
	"k8s.io/klog/v2"
)

const (
	namespaceHeader = "ns-name"
	parentHeader    = "parent-ns"
)

// Logout redirects to the logout page of the authenticating proxy.
func Logout(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, config.Cfg.LogoutPath, http.StatusMovedPermanently)
}

// GetUsername returns the name of the user making the request.
func GetUsername(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, identityFrom(r.Context()).User)
}

// client returns a kubernetes client acting as the user of the request.
func (s *ServerConfig) client(w http.ResponseWriter, r *http.Request) (kube.Interface, bool) {
	client, err := s.Clients(kube.NewCredential(identityFrom(r.Context()).Token))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return client, true
}

// CreateNamespace creates a namespace, with a parent when the parent-ns header is set.
func (s *ServerConfig) CreateNamespace(w http.ResponseWriter, r *http.Request) {
	name, parent := r.Header.Get(namespaceHeader), r.Header.Get(parentHeader)
	if name == "" {
		http.Error(w, "you must specify ns-name header", http.StatusBadRequest)
		return
	}
	client, ok := s.client(w, r)
	if !ok {
		return
	}

	if _, err := client.Create(r.Context(), model.NamespaceTemplate(name)); err != nil {
		writeError(w, err)
		return
	}
	if parent != "" {
		if _, err := client.Apply(r.Context(), model.HierarchyConfiguration(name, parent)); err != nil {
			writeError(w, err)
			return
		}
	}
	klog.V(2).Infof("User %s created namespace %s (parent: %q)", identityFrom(r.Context()).User, name, parent)
	fmt.Fprintf(w, "successfully created namespace '%s'", name)
}

// CreateSubnamespace creates a sub-namespace through an anchor in the parent namespace.
func (s *ServerConfig) CreateSubnamespace(w http.ResponseWriter, r *http.Request) {
	name, parent := r.Header.Get(namespaceHeader), r.Header.Get(parentHeader)
	if parent == "" {
		http.Error(w, "you must specify parent-ns header", http.StatusBadRequest)
		return
	}
	if name == "" {
		http.Error(w, "you must specify ns-name header", http.StatusBadRequest)
		return
	}
	client, ok := s.client(w, r)
	if !ok {
		return
	}

	if _, err := client.Create(r.Context(), model.SubnamespaceAnchor(name, parent)); err != nil {
		writeError(w, err)
		return
	}
	klog.V(2).Infof("User %s created sub-namespace %s of %s", identityFrom(r.Context()).User, name, parent)
	fmt.Fprintf(w, "successfully created namespace '%s'", name)
}

// DeleteNamespace deletes the anchor of a sub-namespace, or the namespace itself.
func (s *ServerConfig) DeleteNamespace(w http.ResponseWriter, r *http.Request) {
	name := r.Header.Get(namespaceHeader)
	if name == "" {
		http.Error(w, "you must specify ns-name header", http.StatusBadRequest)
		return
	}
	client, ok := s.client(w, r)
	if !ok {
		return
	}

	ns, err := client.Get(r.Context(), model.NamespaceRef(name))
	if err != nil {
		writeError(w, err)
		return
	}

	target := model.NamespaceRef(name)
	if parent := model.ParentOf(ns); parent != "" {
		target = model.RefForObject(model.SubnamespaceAnchor(name, parent))
	}
	if err := client.Delete(r.Context(), target); err != nil {
		writeError(w, err)
		return
	}
	klog.V(2).Infof("User %s deleted %s", identityFrom(r.Context()).User, target)
	fmt.Fprintf(w, "successfully deleted namespace '%s'", name)
}

// writeError responds with the status code and message of an API error.
func writeError(w http.ResponseWriter, err error) {
	code := kube.StatusCode(err)
	switch {
	case errors.Is(err, model.ErrInvalidRef):
		code = http.StatusBadRequest
	case code == 0:
		code = http.StatusInternalServerError
	}
	klog.Warningf("Request failed with %d: %v", code, err)
	w.WriteHeader(code)
	fmt.Fprint(w, kube.ErrorMessage(err))
}
