// Copyright Contributors to the Open Cluster Management project

package watchloop

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/stolostron/hnc-event-relay/pkg/config"
	"github.com/stolostron/hnc-event-relay/pkg/metrics"
	"github.com/stolostron/hnc-event-relay/pkg/model"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

// Watcher opens a single watch connection and blocks until it ends.
type Watcher interface {
	Watch(ctx context.Context, ref model.ResourceRef, onEvent func(model.WatchEvent)) error
}

// WatcherFunc adapts a function to the Watcher interface.
type WatcherFunc func(ctx context.Context, ref model.ResourceRef, onEvent func(model.WatchEvent)) error

func (f WatcherFunc) Watch(ctx context.Context, ref model.ResourceRef, onEvent func(model.WatchEvent)) error {
	return f(ctx, ref, onEvent)
}

type Options struct {
	Ref     model.ResourceRef
	OnEvent func(model.WatchEvent)
	// Called before every watch attempt.
	BeforeWatch func()
	// Called with the error of a failed attempt. When nil a diagnostic event is sent to OnEvent.
	OnFailure func(error)
	// Delay between failed attempts. Defaults to DefaultBackoff().
	Backoff *wait.Backoff
}

// DefaultBackoff starts at WATCH_RETRY_MS and doubles up to WATCH_MAX_RETRY_MS.
func DefaultBackoff() wait.Backoff {
	return wait.Backoff{
		Duration: time.Duration(config.Cfg.WatchRetryMS) * time.Millisecond,
		Factor:   2,
		Jitter:   0.1,
		Steps:    math.MaxInt32,
		Cap:      time.Duration(config.Cfg.WatchMaxRetryMS) * time.Millisecond,
	}
}

// Run keeps a watch open on opts.Ref until ctx is cancelled.
// A watch that ends cleanly is reopened immediately. A failed watch is reported and
// retried after the backoff delay, which resets after the next clean end.
// Invalid refs are returned without retrying.
func Run(ctx context.Context, watcher Watcher, opts Options) error {
	if err := opts.Ref.Validate(); err != nil {
		return err
	}
	initial := DefaultBackoff()
	if opts.Backoff != nil {
		initial = *opts.Backoff
	}
	backoff := initial

	for ctx.Err() == nil {
		if opts.BeforeWatch != nil {
			opts.BeforeWatch()
		}

		err := watcher.Watch(ctx, opts.Ref, opts.OnEvent)
		if ctx.Err() != nil {
			break
		}
		if err == nil {
			klog.V(4).Infof("Watch %s ended, restarting.", opts.Ref)
			metrics.WatchRestarts.WithLabelValues(opts.Ref.Kind, "success").Inc()
			backoff = initial
			continue
		}
		if errors.Is(err, model.ErrInvalidRef) {
			return err
		}

		metrics.WatchRestarts.WithLabelValues(opts.Ref.Kind, "failure").Inc()
		if opts.OnFailure != nil {
			opts.OnFailure(err)
		} else {
			klog.V(2).Infof("Watch %s failed: %v", opts.Ref, err)
			opts.OnEvent(model.NewDiagnosticEvent(opts.Ref, err))
		}

		timer := time.NewTimer(backoff.Step())
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
	klog.V(4).Infof("Stopped watch %s", opts.Ref)
	return nil
}
