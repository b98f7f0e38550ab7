// Copyright Contributors to the Open Cluster Management project

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stolostron/hnc-event-relay/pkg/config"
	"github.com/stolostron/hnc-event-relay/pkg/kube"
	"github.com/stolostron/hnc-event-relay/pkg/metrics"
	"github.com/stolostron/hnc-event-relay/pkg/session"
	"k8s.io/klog/v2"
)

// HealthChecker reports whether namespace discovery is working.
type HealthChecker interface {
	Healthy() bool
}

// SessionSubscriber creates the session behind an event stream.
type SessionSubscriber interface {
	Subscribe(user string, cred *kube.Credential) (*session.Session, error)
}

type ServerConfig struct {
	Hub      HealthChecker
	Sessions SessionSubscriber
	Clients  session.ClientFunc // Clients for requests made on behalf of the user.

	// OnShutdown runs when the server starts shutting down. Event streams stay open
	// until their session is closed, so this is where sessions get closed.
	OnShutdown func()
}

// Router returns the handler of every route served by the relay.
func (s *ServerConfig) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/liveness", s.LivenessProbe).Methods("GET")
	router.HandleFunc("/readiness", s.ReadinessProbe).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(metrics.PromRegistry, promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/logout", Logout).Methods("GET")

	// Add middleware to the /api subroute.
	apiSubrouter := router.PathPrefix("/api").Subrouter()
	apiSubrouter.Use(metrics.PrometheusMiddleware)
	apiSubrouter.Use(identityMiddleware)
	apiSubrouter.HandleFunc("/get/username", GetUsername).Methods("GET")
	apiSubrouter.Handle("/get/objects", streamLimiterMiddleware(http.HandlerFunc(s.StreamObjects))).Methods("GET")
	apiSubrouter.HandleFunc("/create/ns", s.CreateNamespace).Methods("POST")
	apiSubrouter.HandleFunc("/create/sub-ns", s.CreateSubnamespace).Methods("POST")
	apiSubrouter.HandleFunc("/delete/ns", s.DeleteNamespace).Methods("DELETE")

	// Serve the web client.
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(config.Cfg.StaticDir)))
	return router
}

// StartAndListen serves until ctx is cancelled.
func (s *ServerConfig) StartAndListen(ctx context.Context) {
	// Configure TLS
	cfg := &tls.Config{
		MinVersion:               tls.VersionTLS12,
		CurvePreferences:         []tls.CurveID{tls.CurveP521, tls.CurveP384, tls.CurveP256},
		PreferServerCipherSuites: true,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		},
	}
	// No WriteTimeout, event streams stay open for the session timeout.
	srv := &http.Server{
		Addr:              config.Cfg.ServerAddress,
		Handler:           s.Router(),
		TLSConfig:         cfg,
		ReadHeaderTimeout: time.Duration(config.Cfg.HTTPTimeout) * time.Millisecond,
		ReadTimeout:       time.Duration(config.Cfg.HTTPTimeout) * time.Millisecond,
		TLSNextProto:      make(map[string]func(*http.Server, *tls.Conn, http.Handler)),
	}
	if s.OnShutdown != nil {
		srv.RegisterOnShutdown(s.OnShutdown)
	}

	// Start the server
	go func() {
		klog.Info("Listening on: ", srv.Addr)
		var err error
		if config.Cfg.TLSCertFile != "" {
			err = srv.ListenAndServeTLS(config.Cfg.TLSCertFile, config.Cfg.TLSKeyFile)
		} else {
			// TLS is terminated by the authenticating proxy in front of the relay.
			err = srv.ListenAndServe()
		}
		// ErrServerClosed is returned on graceful close.
		if !errors.Is(err, http.ErrServerClosed) {
			klog.Fatal(err, ". Encountered while starting the server.")
		}
	}()

	// Wait for cancel signal
	<-ctx.Done()
	klog.Warning("Stopping the server.")
	ctxWithTimeout, ctxCancel := context.WithTimeout(context.Background(), time.Duration(5*time.Second))
	if err := srv.Shutdown(ctxWithTimeout); err != nil {
		klog.Error("Encountered error stopping the server. ", err)
	} else {
		klog.Warning("Server stopped.")
	}
	ctxCancel()
}
