// Copyright Contributors to the Open Cluster Management project

package server

import (
	"net/http"
	"sync"

	klog "k8s.io/klog/v2"

	"github.com/stolostron/hnc-event-relay/pkg/config"
)

var streamTracker = map[string]int{} // Open event streams per user.
var streamCount = 0
var streamTrackerLock = sync.Mutex{}

// Checks if we are able to open another event stream.
func streamLimiterMiddleware(next http.Handler) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := identityFrom(r.Context()).User

		streamTrackerLock.Lock()
		klog.V(6).Infof("Checking if we can open an event stream. Open streams: %d", streamCount)
		if streamCount >= config.Cfg.RequestLimit {
			streamTrackerLock.Unlock()
			klog.Warningf("Too many open event streams (%d). Rejecting stream for user %s (%d open).",
				config.Cfg.RequestLimit, user, streamTracker[user])
			http.Error(w, "Too many open event streams, retry later.", http.StatusTooManyRequests)
			return
		}
		streamCount++
		streamTracker[user]++
		streamTrackerLock.Unlock()

		defer func() { // Using defer to guarantee this gets executed if the stream ends with an error.
			streamTrackerLock.Lock()
			streamCount--
			streamTracker[user]--
			if streamTracker[user] <= 0 {
				delete(streamTracker, user)
			}
			streamTrackerLock.Unlock()
		}()

		next.ServeHTTP(w, r)
	})
}
