// Copyright Contributors to the Open Cluster Management project

package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stolostron/hnc-event-relay/pkg/kube"
	"github.com/stolostron/hnc-event-relay/pkg/metrics"
	"github.com/stolostron/hnc-event-relay/pkg/model"
	"github.com/stolostron/hnc-event-relay/pkg/watchloop"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/util/workqueue"
	"k8s.io/klog/v2"
)

// Frame is written to the client. A frame without event is a keepalive.
type Frame struct {
	Event *model.WatchEvent
}

// Session relays the events of the namespaces its credential can read.
type Session struct {
	ID   string
	User string

	cred   *kube.Credential
	client kube.Interface
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc
	queue  workqueue.RateLimitingInterface
	frames chan Frame
	done   chan struct{}

	closeOnce sync.Once
	onClose   func()

	mu        sync.Mutex
	watchSets map[string]*watchSet // Active per namespace.
	draining  map[string]*watchSet // Cancelled, loops may still be running.
	failures  map[string]int       // Consecutive failed checks per namespace.
	loops     sync.WaitGroup
}

// watchSet is the group of watch loops of one namespace.
type watchSet struct {
	cancel context.CancelFunc
	done   chan struct{} // Closed when every loop has returned.
}

func newSession(id, user string, cred *kube.Credential, client kube.Interface, opts Options) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	rateLimiter := workqueue.NewItemExponentialFailureRateLimiter(opts.Backoff.Duration, opts.Backoff.Cap)
	return &Session{
		ID:        id,
		User:      user,
		cred:      cred,
		client:    client,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		queue:     workqueue.NewRateLimitingQueue(rateLimiter),
		frames:    make(chan Frame, opts.BufferSize),
		done:      make(chan struct{}),
		watchSets: map[string]*watchSet{},
		draining:  map[string]*watchSet{},
		failures:  map[string]int{},
	}
}

// Events returns the frames to write to the client. Stop reading when Done is closed.
func (s *Session) Events() <-chan Frame {
	return s.frames
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// UpdateToken replaces the session token. Running watches keep their connection and
// use the new token when they reconnect.
func (s *Session) UpdateToken(token string) {
	s.cred.SetToken(token)
}

// WatchedNamespaces returns the sorted namespaces with an active watch set.
func (s *Session) WatchedNamespaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.watchSets))
	for name := range s.watchSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// notify queues a namespace check. A namespace already queued is checked once.
func (s *Session) notify(namespace string) {
	s.queue.Add(namespace)
}

func (s *Session) start() {
	for i := 0; i < s.opts.Workers; i++ {
		go s.runWorker()
	}
	go s.heartbeat()
}

func (s *Session) runWorker() {
	for s.processNextItem() {
	}
}

func (s *Session) processNextItem() bool {
	item, shutdown := s.queue.Get()
	if shutdown {
		return false
	}
	defer s.queue.Done(item)
	s.checkNamespace(item.(string))
	return true
}

// checkNamespace fetches the namespace with the session credential. A readable namespace
// is sent as MODIFIED and gets a watch set. Otherwise a DELETED event is sent; the watch
// set is cancelled after FailureThreshold consecutive failures.
func (s *Session) checkNamespace(name string) {
	ns, err := s.client.Get(s.ctx, model.NamespaceRef(name))
	if s.ctx.Err() != nil {
		return
	}

	if err != nil {
		switch {
		case apierrors.IsNotFound(err), apierrors.IsForbidden(err):
			klog.V(3).Infof("Session %s can't read namespace %s: %v", s.ID, name, err)
		default:
			klog.Warningf("Session %s failed to get namespace %s: %v", s.ID, name, err)
		}
		s.send(model.WatchEvent{Type: model.Deleted, Object: model.NamespaceTemplate(name)})
		s.namespaceFailed(name)
		return
	}

	s.send(model.WatchEvent{Type: model.Modified, Object: ns})
	s.queue.Forget(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, name)
	if s.ctx.Err() != nil {
		return
	}
	if _, exists := s.watchSets[name]; exists {
		return
	}
	previous := s.draining[name]
	delete(s.draining, name)
	s.watchSets[name] = s.startWatchSet(name, previous)
}

func (s *Session) namespaceFailed(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, exists := s.watchSets[name]
	if !exists {
		delete(s.failures, name)
		s.queue.Forget(name)
		return
	}

	s.failures[name]++
	if s.failures[name] < s.opts.FailureThreshold {
		// Check again until the namespace is readable or the threshold is reached.
		s.queue.AddRateLimited(name)
		return
	}

	klog.V(2).Infof("Session %s stopping watches on namespace %s after %d failed checks.", s.ID, name, s.failures[name])
	set.cancel()
	delete(s.watchSets, name)
	delete(s.failures, name)
	s.draining[name] = set
	s.queue.Forget(name)
}

// startWatchSet starts one loop per kind once the previous set of the namespace has drained.
// Must be called with s.mu held.
func (s *Session) startWatchSet(name string, previous *watchSet) *watchSet {
	ctx, cancel := context.WithCancel(s.ctx)
	set := &watchSet{cancel: cancel, done: make(chan struct{})}
	klog.V(3).Infof("Session %s watching %d kinds in namespace %s", s.ID, len(s.opts.Kinds), name)

	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		defer close(set.done)
		// done must not close before the previous set's, even when this set is cancelled
		// while waiting, so a later set can never overlap the previous watches.
		if previous != nil {
			<-previous.done
		}
		if ctx.Err() != nil {
			return
		}

		var wg sync.WaitGroup
		for _, kind := range s.opts.Kinds {
			wg.Add(1)
			go func(ref model.ResourceRef) {
				defer wg.Done()
				err := watchloop.Run(ctx, s.client, watchloop.Options{
					Ref:     ref,
					OnEvent: s.send,
					Backoff: &s.opts.Backoff,
				})
				if err != nil {
					klog.Errorf("Session %s can't watch %s: %v", s.ID, ref, err)
				}
			}(kind.InNamespace(name))
		}
		wg.Wait()
	}()
	return set
}

// send blocks until the frame is queued or the session ends.
func (s *Session) send(event model.WatchEvent) {
	select {
	case s.frames <- Frame{Event: &event}:
		metrics.EventsRelayed.WithLabelValues(string(event.Type)).Inc()
	case <-s.done:
	}
}

func (s *Session) heartbeat() {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Skip the keepalive when frames are already waiting.
			select {
			case s.frames <- Frame{}:
			default:
			}
		case <-s.done:
			return
		}
	}
}

// Close ends the session. It's safe to call more than once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		klog.V(2).Infof("Closing session %s of user %s", s.ID, s.User)
		if s.onClose != nil {
			s.onClose()
		}
		s.mu.Lock()
		s.cancel()
		s.mu.Unlock()
		s.queue.ShutDown()
		close(s.done)
	})
}

// Wait blocks until every watch loop of the session has returned or the timeout expires.
func (s *Session) Wait(timeout time.Duration) bool {
	drained := make(chan struct{})
	go func() {
		s.loops.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return true
	case <-time.After(timeout):
		return false
	}
}
