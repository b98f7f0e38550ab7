// Copyright Contributors to the Open Cluster Management project

package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Instrument with prometheus middleware to capture request metrics.
func PrometheusMiddleware(next http.Handler) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Use the route template as label to keep cardinality bounded.
		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		curriedCount, _ := RequestCount.CurryWith(prometheus.Labels{"route": route})

		// Instrument and serve.
		promhttp.InstrumentHandlerInFlight(RequestsInFlight,
			promhttp.InstrumentHandlerDuration(RequestDuration,
				promhttp.InstrumentHandlerCounter(curriedCount, next))).ServeHTTP(w, r)
	})
}
