// Copyright Contributors to the Open Cluster Management project

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/stolostron/hnc-event-relay/pkg/kube"
	"github.com/stolostron/hnc-event-relay/pkg/session"
	"k8s.io/klog/v2"
)

// StreamObjects relays the namespaces readable by the user, and the resources in them,
// as server-sent events. The stream ends with the session or when the client disconnects.
func (s *ServerConfig) StreamObjects(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming is not supported", http.StatusInternalServerError)
		return
	}

	id := identityFrom(r.Context())
	sess, err := s.Sessions.Subscribe(id.User, kube.NewCredential(id.Token))
	if err != nil {
		klog.Errorf("Unable to start session for user %s: %v", id.User, err)
		http.Error(w, "unable to start the event stream", http.StatusServiceUnavailable)
		return
	}
	defer sess.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	relayFrames(r.Context(), w, flusher, sess)
	klog.V(3).Infof("Event stream of session %s ended.", sess.ID)
}

// frameSource is the outbound side of a session.
type frameSource interface {
	Events() <-chan session.Frame
	Done() <-chan struct{}
}

// relayFrames writes frames until the client disconnects or the session ends. Frames
// already queued when the session ends are still written.
func relayFrames(ctx context.Context, w io.Writer, flusher http.Flusher, src frameSource) {
	for {
		select {
		case <-ctx.Done():
			klog.V(3).Info("Client of event stream disconnected.")
			return
		case <-src.Done():
			for {
				select {
				case frame := <-src.Events():
					if err := writeFrame(w, frame); err != nil {
						return
					}
				default:
					flusher.Flush()
					return
				}
			}
		case frame := <-src.Events():
			if err := writeFrame(w, frame); err != nil {
				klog.V(3).Infof("Unable to write to event stream: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

// writeFrame writes an event as `data: <json>` or a keepalive as an empty line.
func writeFrame(w io.Writer, frame session.Frame) error {
	if frame.Event == nil {
		_, err := io.WriteString(w, "\n\n")
		return err
	}
	data, err := json.Marshal(frame.Event)
	if err != nil {
		klog.Errorf("Dropping event that can't be encoded: %v", err)
		return nil
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
