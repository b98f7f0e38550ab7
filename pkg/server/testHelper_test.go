// Copyright Contributors to the Open Cluster Management project
package server

import (
	"net/http"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stolostron/hnc-event-relay/pkg/discovery"
	"github.com/stolostron/hnc-event-relay/pkg/kube"
	"github.com/stolostron/hnc-event-relay/pkg/kube/mocks"
)

// fakeHub is a namespace discovery with a fixed set of namespaces.
type fakeHub struct {
	mu         sync.Mutex
	healthy    bool
	namespaces []string
	sessions   map[string]discovery.NotifyFunc
}

func (h *fakeHub) Healthy() bool {
	return h.healthy
}

func (h *fakeHub) Subscribe(id string, notify discovery.NotifyFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions == nil {
		h.sessions = map[string]discovery.NotifyFunc{}
	}
	h.sessions[id] = notify
	for _, name := range h.namespaces {
		notify(name)
	}
	return nil
}

func (h *fakeHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

func buildMockServer(t *testing.T) (ServerConfig, *mocks.MockInterface) {
	ctrl := gomock.NewController(t)
	mockClient := mocks.NewMockInterface(ctrl)

	server := ServerConfig{
		Hub: &fakeHub{healthy: true},
		Clients: func(*kube.Credential) (kube.Interface, error) {
			return mockClient, nil
		},
	}
	return server, mockClient
}

// asUser sets the headers added by the authenticating proxy.
func asUser(req *http.Request, user string) *http.Request {
	req.Header.Set("x-forwarded-user", user)
	req.Header.Set("x-forwarded-access-token", user+"-token")
	return req
}
