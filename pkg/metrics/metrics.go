// Copyright Contributors to the Open Cluster Management project

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PromRegistry = prometheus.NewRegistry()

	RequestCount = promauto.With(PromRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "hnc_relay_request_count",
		Help: "The total number of incoming requests to the relay.",
	}, []string{"route"})

	RequestDuration = promauto.With(PromRegistry).NewHistogramVec(prometheus.HistogramOpts{
		Name: "hnc_relay_request_duration",
		Help: "Time (seconds) the relay takes to serve a request. Event streams are observed when they end.",
	}, []string{"code"})

	RequestsInFlight = promauto.With(PromRegistry).NewGauge(prometheus.GaugeOpts{
		Name: "hnc_relay_requests_in_flight",
		Help: "Number of requests being served, including open event streams.",
	})

	ActiveSessions = promauto.With(PromRegistry).NewGauge(prometheus.GaugeOpts{
		Name: "hnc_relay_active_sessions",
		Help: "Number of subscribed event stream sessions.",
	})

	CachedNamespaces = promauto.With(PromRegistry).NewGauge(prometheus.GaugeOpts{
		Name: "hnc_relay_cached_namespaces",
		Help: "Number of namespaces in the discovery cache.",
	})

	WatchRestarts = promauto.With(PromRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "hnc_relay_watch_restarts",
		Help: "The total number of watch connections that ended, by kind and result (success or failure).",
	}, []string{"kind", "result"})

	EventsRelayed = promauto.With(PromRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "hnc_relay_events_relayed",
		Help: "The total number of events written to session streams.",
	}, []string{"type"})

	KubeRequestDuration = promauto.With(PromRegistry).NewHistogramVec(prometheus.HistogramOpts{
		Name: "hnc_relay_kube_request_duration",
		Help: "Time (seconds) of requests to the kubernetes API, excluding watches.",
	}, []string{"verb", "kind"})
)
