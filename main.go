// Copyright Contributors to the Open Cluster Management project

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stolostron/hnc-event-relay/pkg/config"
	"github.com/stolostron/hnc-event-relay/pkg/discovery"
	"github.com/stolostron/hnc-event-relay/pkg/kube"
	"github.com/stolostron/hnc-event-relay/pkg/model"
	"github.com/stolostron/hnc-event-relay/pkg/server"
	"github.com/stolostron/hnc-event-relay/pkg/session"
	"k8s.io/klog/v2"
)

func main() {
	// Initialize the logger.
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()
	klog.Info("Starting hnc-event-relay.")

	// Read the config from the environment.
	config.Cfg.PrintConfig()

	// Validate required configuration to proceed.
	configError := config.Cfg.Validate()
	if configError != nil {
		klog.Fatal(configError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restConfig, err := config.Cfg.GetKubeConfig()
	if err != nil {
		klog.Fatal("Unable to load the kubernetes config. ", err)
	}
	factory, err := kube.NewFactory(restConfig, kube.Options{
		KeepAlive:   time.Duration(config.Cfg.WatchKeepAliveMS) * time.Millisecond,
		IdleTimeout: time.Duration(config.Cfg.WatchIdleTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		klog.Fatal("Unable to create the kubernetes client. ", err)
	}
	saClient, err := factory.ServiceAccount()
	if err != nil {
		klog.Fatal("Unable to create the service account client. ", err)
	}

	// Watch the namespaces managed by HNC with the service account.
	hub := discovery.NewHub(saClient, model.IncludedNamespacesRef(config.Cfg.NamespaceSelector()))
	go func() {
		if err := hub.Run(ctx); err != nil {
			klog.Fatal("Namespace discovery stopped. ", err)
		}
	}()

	clients := func(cred *kube.Credential) (kube.Interface, error) {
		if config.Cfg.UseSAToken {
			return saClient, nil
		}
		return factory.ForCredential(cred)
	}
	manager := session.NewManager(hub, clients, session.DefaultOptions())

	// Start the server.
	srv := &server.ServerConfig{
		Hub:      hub,
		Sessions: manager,
		Clients:  clients,
		OnShutdown: func() {
			manager.Shutdown(5 * time.Second)
		},
	}
	srv.StartAndListen(ctx)
}
