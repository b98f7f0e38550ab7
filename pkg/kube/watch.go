// Copyright Contributors to the Open Cluster Management project

package kube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/stolostron/hnc-event-relay/pkg/model"
	"k8s.io/klog/v2"
)

// Watch streams the changes of the resources selected by ref to onEvent, synchronously
// and in order, until the server ends the stream or ctx is cancelled. Both return nil.
//
// An invalid ref is returned without sending a request. A non-2xx response is returned
// as an *apierrors.StatusError and onEvent is never called. Transport failures, records
// that can't be decoded and idle connections (ErrIdleTimeout) are returned as errors.
// Events of unknown type are dropped.
func (c *Client) Watch(ctx context.Context, ref model.ResourceRef, onEvent func(model.WatchEvent)) error {
	path, err := WatchPath(ref)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	klog.V(4).Infof("Starting watch %s", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp, "watch", ref)
	}

	var body io.Reader = resp.Body
	var idle atomic.Bool
	if c.idleTimeout > 0 {
		timer := time.AfterFunc(c.idleTimeout, func() {
			idle.Store(true)
			cancel()
		})
		defer timer.Stop()
		body = &idleReader{r: resp.Body, timer: timer, timeout: c.idleTimeout}
	}

	decoder := NewDecoder(body)
	for {
		event, err := decoder.Decode()
		if err != nil {
			switch {
			case idle.Load():
				return ErrIdleTimeout
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, io.EOF):
				klog.V(4).Infof("Watch %s ended.", path)
				return nil
			}
			return err
		}

		if !event.Type.IsKnown() {
			klog.Warningf("Dropping watch event with unexpected type %q from %s", event.Type, path)
			continue
		}
		onEvent(event)
	}
}

// idleReader pushes back the idle timer every time data is read.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.timeout)
	}
	return n, err
}
