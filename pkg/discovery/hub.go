// Copyright Contributors to the Open Cluster Management project

package discovery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/stolostron/hnc-event-relay/pkg/metrics"
	"github.com/stolostron/hnc-event-relay/pkg/model"
	"github.com/stolostron/hnc-event-relay/pkg/watchloop"
	"k8s.io/klog/v2"
)

var ErrDuplicateSession = errors.New("a session with this id is already subscribed")

// NotifyFunc is called with the name of a namespace that changed. It must not block.
type NotifyFunc func(namespace string)

// Hub keeps the set of namespaces selected by a privileged watch and tells every
// subscribed session when one of them changes.
type Hub struct {
	watcher watchloop.Watcher
	ref     model.ResourceRef

	mu         sync.Mutex // Guards namespaces and sessions, held while notifying.
	namespaces map[string]struct{}
	sessions   map[string]NotifyFunc

	running atomic.Bool
	failing atomic.Bool
}

// NewHub creates a hub for the namespaces selected by ref. The watcher must use a
// credential allowed to watch them.
func NewHub(watcher watchloop.Watcher, ref model.ResourceRef) *Hub {
	return &Hub{
		watcher:    watcher,
		ref:        ref,
		namespaces: map[string]struct{}{},
		sessions:   map[string]NotifyFunc{},
	}
}

// Run watches the namespaces until ctx is cancelled. The cache is emptied before
// every watch attempt and refilled by the events of the new connection.
func (h *Hub) Run(ctx context.Context) error {
	h.running.Store(true)
	defer h.running.Store(false)

	tracked := watchloop.WatcherFunc(func(ctx context.Context, ref model.ResourceRef, onEvent func(model.WatchEvent)) error {
		err := h.watcher.Watch(ctx, ref, onEvent)
		h.failing.Store(err != nil)
		return err
	})

	klog.Infof("Starting namespace discovery for %s", h.ref)
	return watchloop.Run(ctx, tracked, watchloop.Options{
		Ref:         h.ref,
		OnEvent:     h.apply,
		BeforeWatch: h.reset,
		OnFailure: func(err error) {
			klog.Errorf("Namespace discovery watch failed: %v", err)
		},
	})
}

func (h *Hub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.namespaces = map[string]struct{}{}
	metrics.CachedNamespaces.Set(0)
}

func (h *Hub) apply(event model.WatchEvent) {
	h.failing.Store(false)
	name := event.Name()
	if name == "" {
		klog.Warningf("Ignoring %s namespace event without a name.", event.Type)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch event.Type {
	case model.Added, model.Modified:
		h.namespaces[name] = struct{}{}
	case model.Deleted:
		delete(h.namespaces, name)
	default:
		klog.Warningf("Ignoring namespace event with unexpected type %q", event.Type)
		return
	}
	klog.V(5).Infof("Namespace %s %s, notifying %d sessions.", name, event.Type, len(h.sessions))
	metrics.CachedNamespaces.Set(float64(len(h.namespaces)))

	for _, notify := range h.sessions {
		notify(name)
	}
}

// Subscribe registers a session and calls notify for every namespace in the cache.
func (h *Hub) Subscribe(id string, notify NotifyFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.sessions[id]; exists {
		return ErrDuplicateSession
	}
	h.sessions[id] = notify
	for name := range h.namespaces {
		notify(name)
	}
	return nil
}

// Unsubscribe removes a session. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

// Namespaces returns the sorted names in the cache.
func (h *Hub) Namespaces() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.namespaces))
	for name := range h.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Healthy returns true while Run is active and its latest watch attempt didn't fail.
func (h *Hub) Healthy() bool {
	return h.running.Load() && !h.failing.Load()
}
