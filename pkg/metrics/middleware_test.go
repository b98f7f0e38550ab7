// Copyright Contributors to the Open Cluster Management project

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, name string) *dto.MetricFamily {
	collectedMetrics, err := PromRegistry.Gather()
	require.NoError(t, err)
	for _, m := range collectedMetrics {
		if m.GetName() == name {
			return m
		}
	}
	return nil
}

func Test_PrometheusInstrumentation(t *testing.T) {
	// Given a router with an instrumented route.
	router := mux.NewRouter()
	router.HandleFunc("/api/get/username", func(w http.ResponseWriter, r *http.Request) {})
	router.Use(PrometheusMiddleware)

	// When a request is served.
	req := httptest.NewRequest("GET", "https://localhost:8080/api/get/username", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	// Then the request is counted with the route template as label.
	count := findMetric(t, "hnc_relay_request_count")
	require.NotNil(t, count)
	assert.Equal(t, 1, len(count.Metric[0].GetLabel()))
	assert.Equal(t, "route", count.Metric[0].GetLabel()[0].GetName())
	assert.Equal(t, "/api/get/username", count.Metric[0].GetLabel()[0].GetValue())
	assert.Equal(t, 1.0, count.GetMetric()[0].GetCounter().GetValue())

	// And the duration is observed by status code.
	duration := findMetric(t, "hnc_relay_request_duration")
	require.NotNil(t, duration)
	assert.Equal(t, "code", duration.Metric[0].GetLabel()[0].GetName())
	assert.Equal(t, "200", duration.Metric[0].GetLabel()[0].GetValue())
	assert.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())

	// And no request is left in flight.
	inFlight := findMetric(t, "hnc_relay_requests_in_flight")
	require.NotNil(t, inFlight)
	assert.Equal(t, 0.0, inFlight.GetMetric()[0].GetGauge().GetValue())
}
