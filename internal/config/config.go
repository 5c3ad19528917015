package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/edvin/swapd/internal/deployer"
)

// Record backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	ServiceName       string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string
	LogFile           string

	DeployTarget        string
	DeployImage         string
	DeployImageTag      string
	DeployContainerPort int
	DeployHostPort      int
	// OnConcurrentDeploy is "reclaim" or "reject".
	OnConcurrentDeploy string

	DockerHost      string
	DockerTLSCACert string
	DockerTLSCert   string
	DockerTLSKey    string

	RecordBackend     string
	RecordPath        string
	RecordDatabaseURL string

	// DeploySecret wins over DeploySecretFile when both are set.
	DeploySecret     string
	DeploySecretFile string
}

// Load reads the configuration from the environment. When CONFIG_FILE names a
// YAML file its values are used as defaults; the environment still wins.
func Load() (*Config, error) {
	file, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	get := func(key, fallback string) string {
		return getEnv(key, file.get(key, fallback))
	}

	cfg := &Config{
		ServiceName:        "swapd",
		HTTPListenAddr:     get("HTTP_LISTEN_ADDR", "127.0.0.1:33293"),
		MetricsListenAddr:  get("METRICS_LISTEN_ADDR", ""),
		LogLevel:           get("LOG_LEVEL", "info"),
		LogFile:            get("LOG_FILE", ""),
		DeployTarget:       get("DEPLOY_TARGET", "default"),
		DeployImage:        get("DEPLOY_IMAGE", "hello-world"),
		DeployImageTag:     get("DEPLOY_IMAGE_TAG", "latest"),
		OnConcurrentDeploy: get("ON_CONCURRENT_DEPLOY", "reclaim"),
		DockerHost:         get("DOCKER_HOST", "unix:///var/run/docker.sock"),
		DockerTLSCACert:    get("DOCKER_TLS_CA_CERT", ""),
		DockerTLSCert:      get("DOCKER_TLS_CERT", ""),
		DockerTLSKey:       get("DOCKER_TLS_KEY", ""),
		RecordBackend:      get("RECORD_BACKEND", BackendFile),
		RecordPath:         get("RECORD_PATH", "deploy.lock"),
		RecordDatabaseURL:  get("RECORD_DATABASE_URL", ""),
		DeploySecret:       get("DEPLOY_SECRET", ""),
		DeploySecretFile:   get("DEPLOY_SECRET_FILE", "secret.uuid"),
	}

	var bad []string
	if cfg.DeployContainerPort, err = strconv.Atoi(get("DEPLOY_CONTAINER_PORT", "8080")); err != nil {
		bad = append(bad, "DEPLOY_CONTAINER_PORT must be an integer")
	}
	if cfg.DeployHostPort, err = strconv.Atoi(get("DEPLOY_HOST_PORT", "8080")); err != nil {
		bad = append(bad, "DEPLOY_HOST_PORT must be an integer")
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(bad, "; "))
	}

	return cfg, nil
}

// Validate checks required fields and reports every problem at once.
func (c *Config) Validate() error {
	var missing []string
	if c.HTTPListenAddr == "" {
		missing = append(missing, "HTTP_LISTEN_ADDR")
	}
	if c.DeployTarget == "" {
		missing = append(missing, "DEPLOY_TARGET")
	}
	if c.DeployImage == "" {
		missing = append(missing, "DEPLOY_IMAGE")
	}
	if c.DeploySecret == "" && c.DeploySecretFile == "" {
		missing = append(missing, "DEPLOY_SECRET or DEPLOY_SECRET_FILE")
	}

	var errs []string
	if len(missing) > 0 {
		errs = append(errs, "missing required config: "+strings.Join(missing, ", "))
	}

	if c.DeployImage != "" {
		// A tag or digest inside DEPLOY_IMAGE wins over DEPLOY_IMAGE_TAG.
		ref, err := deployer.ParseImageRef(c.DeployImage, c.DeployImageTag)
		if err == nil {
			_, err = deployer.ParseImageRef(ref.String(), "")
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("DEPLOY_IMAGE/DEPLOY_IMAGE_TAG: %v", err))
		}
	}

	switch c.RecordBackend {
	case BackendFile, BackendSQLite:
		if c.RecordPath == "" {
			errs = append(errs, fmt.Sprintf("RECORD_PATH is required for the %s backend", c.RecordBackend))
		}
	case BackendPostgres:
		if c.RecordDatabaseURL == "" {
			errs = append(errs, "RECORD_DATABASE_URL is required for the postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("RECORD_BACKEND must be one of file, sqlite, postgres (got %q)", c.RecordBackend))
	}

	if c.OnConcurrentDeploy != "reclaim" && c.OnConcurrentDeploy != "reject" {
		errs = append(errs, fmt.Sprintf("ON_CONCURRENT_DEPLOY must be reclaim or reject (got %q)", c.OnConcurrentDeploy))
	}
	if !validPort(c.DeployContainerPort) {
		errs = append(errs, fmt.Sprintf("DEPLOY_CONTAINER_PORT out of range: %d", c.DeployContainerPort))
	}
	// 0 lets the runtime pick a host port.
	if c.DeployHostPort != 0 && !validPort(c.DeployHostPort) {
		errs = append(errs, fmt.Sprintf("DEPLOY_HOST_PORT out of range: %d", c.DeployHostPort))
	}

	if (c.DockerTLSCert == "") != (c.DockerTLSKey == "") {
		errs = append(errs, "DOCKER_TLS_CERT and DOCKER_TLS_KEY must both be set")
	}
	if c.DockerTLSCACert != "" && c.DockerTLSCert == "" {
		errs = append(errs, "DOCKER_TLS_CA_CERT requires DOCKER_TLS_CERT and DOCKER_TLS_KEY")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// fileValues holds settings from the optional YAML file, keyed by the
// lowercased environment variable name (e.g. deploy_image).
type fileValues map[string]string

func loadFile(path string) (fileValues, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	vals := make(fileValues, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		vals[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return vals, nil
}

func (f fileValues) get(key, fallback string) string {
	if v, ok := f[strings.ToLower(key)]; ok && v != "" {
		return v
	}
	return fallback
}
