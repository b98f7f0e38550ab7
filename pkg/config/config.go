// Copyright Contributors to the Open Cluster Management project

package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/stolostron/hnc-event-relay/pkg/model"
	"k8s.io/klog/v2"
)

const COMPONENT_VERSION = "1.2.0"

var DEVELOPMENT_MODE = false // Do not change this. See config_development.go to enable.
var Cfg = New()

// Struct to hold our configuration
type Config struct {
	DevelopmentMode           bool
	HeartbeatIntervalMS       int    // Keepalive frames on event streams. Default: 20 sec
	HTTPTimeout               int    // Timeout to read requests. Default: 1 min
	KubeConfigPath            string
	KubeInsecureSkipTLSVerify bool   // Trust the API server without validating its certificate.
	LogoutPath                string // Redirect target for /logout
	NamespaceFailureThreshold int    // Consecutive failed namespace checks before its watches are stopped. Default: 3
	NamespaceLabel            string // Label selecting the namespaces to relay.
	RequestLimit              int    // Max number of concurrent event streams.
	ServerAddress             string // Web server address
	SessionTimeoutMS          int    // Max duration of an event stream, matches the watch expiry. Default: 5 min
	SessionWorkers            int    // Goroutines checking namespace access per session. Default: 2
	SlowLog                   int    // Log API requests slower than the specified time in ms. Default: 1 sec
	StaticDir                 string
	TLSCertFile               string
	TLSKeyFile                string
	UseSAToken                bool // Use the service account credential for every request.
	Version                   string
	WatchIdleTimeoutMS        int // Abort a watch when nothing is read for this long. Default: 10 min
	WatchKeepAliveMS          int // TCP keepalive period of watch connections. Default: 30 sec
	WatchMaxRetryMS           int // Max delay between failed watch attempts. Default: 30 sec
	WatchRetryMS              int // Initial delay after a failed watch attempt. Default: 1 sec
}

// Reads config from environment.
func New() *Config {
	conf := &Config{
		DevelopmentMode:           DEVELOPMENT_MODE, // Don't read ENV. See config_development.go to enable.
		HeartbeatIntervalMS:       getEnvAsInt("HEARTBEAT_INTERVAL_MS", 20*1000),  // 20 sec
		HTTPTimeout:               getEnvAsInt("HTTP_TIMEOUT", 60*1000),           // 1 min
		KubeConfigPath:            getKubeConfigPath(),
		KubeInsecureSkipTLSVerify: getEnvAsBool("KUBE_INSECURE_SKIP_TLS_VERIFY", false),
		LogoutPath:                getEnv("LOGOUT_PATH", "/oauth2/sign_out"),
		NamespaceFailureThreshold: getEnvAsInt("NAMESPACE_FAILURE_THRESHOLD", 3),
		NamespaceLabel:            getEnv("NAMESPACE_LABEL", model.IncludedNamespaceLabel+"=true"),
		RequestLimit:              getEnvAsInt("REQUEST_LIMIT", 500),
		ServerAddress:             getEnv("SERVER_ADDRESS", "127.0.0.1:8080"),
		SessionTimeoutMS:          getEnvAsInt("SESSION_TIMEOUT_MS", 5*60*1000), // 5 min
		SessionWorkers:            getEnvAsInt("SESSION_WORKERS", 2),
		SlowLog:                   getEnvAsInt("SLOW_LOG", 1000), // 1 second
		StaticDir:                 getEnv("STATIC_DIR", "./public"),
		TLSCertFile:               getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:                getEnv("TLS_KEY_FILE", ""),
		UseSAToken:                getEnvAsBool("USE_SA_TOKEN", false),
		Version:                   COMPONENT_VERSION,
		WatchIdleTimeoutMS:        getEnvAsInt("WATCH_IDLE_TIMEOUT_MS", 10*60*1000), // 10 min
		WatchKeepAliveMS:          getEnvAsInt("WATCH_KEEPALIVE_MS", 30*1000),       // 30 sec
		WatchMaxRetryMS:           getEnvAsInt("WATCH_MAX_RETRY_MS", 30*1000),       // 30 sec
		WatchRetryMS:              getEnvAsInt("WATCH_RETRY_MS", 1000),              // 1 sec
	}
	return conf
}

// Format and print environment to logger.
func (cfg *Config) PrintConfig() {
	// Make a copy to redact secrets and sensitive information.
	tmp := *cfg
	if tmp.TLSKeyFile != "" {
		tmp.TLSKeyFile = "[REDACTED]"
	}

	// Convert to JSON for nicer formatting.
	cfgJSON, err := json.MarshalIndent(tmp, "", "\t")
	if err != nil {
		klog.Warning("Encountered a problem formatting configuration. ", err)
		klog.Infof("Configuration %#v\n", tmp)
	}
	klog.Infof("Using configuration:\n%s\n", string(cfgJSON))
}

// NamespaceSelector parses NamespaceLabel (key=value) into a label map.
func (cfg *Config) NamespaceSelector() map[string]string {
	key, value, found := strings.Cut(cfg.NamespaceLabel, "=")
	if !found {
		return map[string]string{key: "true"}
	}
	return map[string]string{key: value}
}

// Simple helper function to read an environment or return a default value
func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// Simple helper function to read an environment variable into integer or return a default value
func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

// Helper function to read an environment variable into a bool or return a default value
func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultVal
}

// Validate required configuration.
func (cfg *Config) Validate() error {
	if cfg.NamespaceLabel == "" || strings.HasPrefix(cfg.NamespaceLabel, "=") {
		return errors.New("Required environment NAMESPACE_LABEL is not valid.")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together.")
	}
	if cfg.SessionTimeoutMS <= 0 || cfg.HeartbeatIntervalMS <= 0 {
		return errors.New("SESSION_TIMEOUT_MS and HEARTBEAT_INTERVAL_MS must be positive.")
	}
	return nil
}
