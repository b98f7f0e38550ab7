// Copyright Contributors to the Open Cluster Management project
package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stolostron/hnc-event-relay/pkg/config"
	"github.com/stretchr/testify/assert"
)

// Verify that a stream is accepted with 3 open streams and the counters are restored after.
func Test_streamLimiterMiddleware(t *testing.T) {
	// Mock 3 open streams.
	streamTracker = map[string]int{"A": 2, "B": 1}
	streamCount = 3

	var countDuringRequest int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		countDuringRequest = streamCount
	})
	req := httptest.NewRequest("GET", "https://localhost:8080/api/get/objects", nil)
	res := httptest.NewRecorder()

	streamLimiterMiddleware(handler).ServeHTTP(res, req)

	// Validate response code and counters.
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 4, countDuringRequest)
	assert.Equal(t, 3, streamCount)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, streamTracker)
}

// Verify that a stream is rejected when the limit of open streams is reached.
func Test_streamLimiterMiddleware_limitReached(t *testing.T) {
	streamTracker = map[string]int{"A": config.Cfg.RequestLimit}
	streamCount = config.Cfg.RequestLimit
	defer func() {
		streamTracker = map[string]int{}
		streamCount = 0
	}()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("The handler shouldn't be called.")
	})
	req := httptest.NewRequest("GET", "https://localhost:8080/api/get/objects", nil)
	res := httptest.NewRecorder()

	streamLimiterMiddleware(handler).ServeHTTP(res, req)

	// Validate response code and messsage.
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	bodyBytes, _ := io.ReadAll(res.Body)
	assert.Equal(t, "Too many open event streams, retry later.\n", string(bodyBytes))
}
