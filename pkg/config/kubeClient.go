// Copyright Contributors to the Open Cluster Management project

package config

import (
	"os"
	"path/filepath"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"
)

// If env KUBECONFIG is defined, use it. Otherise use default location ~/.kube/config
// NOTE: This may need to be enhanced to support development on different OS.
func getKubeConfigPath() string {
	defaultKubePath := filepath.Join(os.Getenv("HOME"), ".kube", "config")
	if _, err := os.Stat(defaultKubePath); os.IsNotExist(err) {
		// set default to empty string if path does not reslove
		defaultKubePath = ""
	}

	kubeConfig := getEnv("KUBECONFIG", defaultKubePath)
	return kubeConfig
}

// GetKubeConfig returns the rest config of the service account (in-cluster) or of KubeConfigPath.
func (cfg *Config) GetKubeConfig() (*rest.Config, error) {
	var clientConfig *rest.Config
	var err error

	if cfg.KubeConfigPath != "" {
		klog.Infof("Creating k8s client using KubeConfig at: %s", cfg.KubeConfigPath)
		clientConfig, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		klog.V(2).Info("Creating k8s client using InClusterClientConfig")
		clientConfig, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, err
	}

	if cfg.KubeInsecureSkipTLSVerify {
		klog.Warning("TLS verification of the kubernetes API server is disabled.")
		// Keep the client certificate, an insecure config can't carry a CA.
		clientConfig.TLSClientConfig.Insecure = true
		clientConfig.TLSClientConfig.CAFile = ""
		clientConfig.TLSClientConfig.CAData = nil
	}
	return clientConfig, nil
}
