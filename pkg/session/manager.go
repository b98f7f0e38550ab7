// Copyright Contributors to the Open Cluster Management project

package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stolostron/hnc-event-relay/pkg/config"
	"github.com/stolostron/hnc-event-relay/pkg/discovery"
	"github.com/stolostron/hnc-event-relay/pkg/kube"
	"github.com/stolostron/hnc-event-relay/pkg/metrics"
	"github.com/stolostron/hnc-event-relay/pkg/model"
	"github.com/stolostron/hnc-event-relay/pkg/watchloop"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

const maxIDAttempts = 5

var ErrShutdown = errors.New("session manager is shut down")

// ErrSessionClosed is returned when a session is closed before its hub subscription completes.
var ErrSessionClosed = errors.New("session closed while subscribing")

// Hub is the namespace discovery used by sessions.
type Hub interface {
	Subscribe(id string, notify discovery.NotifyFunc) error
	Unsubscribe(id string)
}

// ClientFunc returns a kubernetes client authenticated with the credential.
type ClientFunc func(cred *kube.Credential) (kube.Interface, error)

type Options struct {
	Kinds             []model.ResourceRef
	HeartbeatInterval time.Duration
	Timeout           time.Duration
	Workers           int
	FailureThreshold  int
	BufferSize        int
	Backoff           wait.Backoff
}

// DefaultOptions reads the session settings from the config.
func DefaultOptions() Options {
	return Options{
		Kinds:             DefaultKinds,
		HeartbeatInterval: time.Duration(config.Cfg.HeartbeatIntervalMS) * time.Millisecond,
		Timeout:           time.Duration(config.Cfg.SessionTimeoutMS) * time.Millisecond,
		Workers:           config.Cfg.SessionWorkers,
		FailureThreshold:  config.Cfg.NamespaceFailureThreshold,
		BufferSize:        100,
		Backoff:           watchloop.DefaultBackoff(),
	}
}

// Manager owns the sessions of connected clients.
type Manager struct {
	hub       Hub
	newClient ClientFunc
	opts      Options

	mu         sync.Mutex
	sessions   map[string]*Session
	registered map[string]bool // Sessions subscribed to the hub.
	shutdown   bool
}

func NewManager(hub Hub, newClient ClientFunc, opts Options) *Manager {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = 1
	}
	return &Manager{
		hub:       hub,
		newClient: newClient,
		opts:      opts,
		sessions:   map[string]*Session{},
		registered: map[string]bool{},
	}
}

// Subscribe creates a session for the user and registers it with the hub. The session
// ends after the configured timeout, or earlier when closed.
func (m *Manager) Subscribe(user string, cred *kube.Credential) (*Session, error) {
	client, err := m.newClient(cred)
	if err != nil {
		return nil, fmt.Errorf("creating client for user %s: %w", user, err)
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		s := newSession(uuid.NewString(), user, cred, client, m.opts)
		s.onClose = func() { m.remove(s.ID) }

		m.mu.Lock()
		if m.shutdown {
			m.mu.Unlock()
			return nil, ErrShutdown
		}
		if _, exists := m.sessions[s.ID]; exists {
			m.mu.Unlock()
			continue
		}
		m.sessions[s.ID] = s
		m.mu.Unlock()

		s.start()
		if err := m.hub.Subscribe(s.ID, s.notify); err != nil {
			s.Close()
			if errors.Is(err, discovery.ErrDuplicateSession) {
				continue
			}
			return nil, err
		}

		m.mu.Lock()
		_, open := m.sessions[s.ID]
		if open {
			m.registered[s.ID] = true
			metrics.ActiveSessions.Inc()
		}
		m.mu.Unlock()
		if !open {
			// Closed by Shutdown or Unsubscribe before the hub registration was recorded.
			m.hub.Unsubscribe(s.ID)
			return nil, ErrSessionClosed
		}

		timer := time.AfterFunc(m.opts.Timeout, func() {
			klog.V(2).Infof("Session %s reached the timeout of %s", s.ID, m.opts.Timeout)
			s.Close()
		})
		go func() {
			<-s.Done()
			timer.Stop()
		}()

		klog.V(2).Infof("Started session %s for user %s", s.ID, user)
		return s, nil
	}
	return nil, fmt.Errorf("unable to allocate a unique session id after %d attempts", maxIDAttempts)
}

// remove is the teardown of a session. Only sessions registered with the hub are unsubscribed.
func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	registered := m.registered[id]
	delete(m.registered, id)
	if registered {
		metrics.ActiveSessions.Dec()
	}
	m.mu.Unlock()

	if registered {
		m.hub.Unsubscribe(id)
	}
}

// Unsubscribe closes the session with the id. Unknown ids are ignored.
func (m *Manager) Unsubscribe(id string) {
	m.mu.Lock()
	s, exists := m.sessions[id]
	m.mu.Unlock()
	if exists {
		s.Close()
	}
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session, rejects new ones, and waits up to timeout for their watches to stop.
func (m *Manager) Shutdown(timeout time.Duration) {
	m.mu.Lock()
	m.shutdown = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	klog.Infof("Closing %d sessions.", len(sessions))
	deadline := time.Now().Add(timeout)
	for _, s := range sessions {
		s.Close()
	}
	for _, s := range sessions {
		if !s.Wait(time.Until(deadline)) {
			klog.Warningf("Watches of session %s didn't stop within %s", s.ID, timeout)
		}
	}
}
