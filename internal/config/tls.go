package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// DockerTLS builds a *tls.Config for a tcp:// Docker host.
// Returns nil, nil if no cert/key is configured (plaintext or unix socket).
func (c *Config) DockerTLS() (*tls.Config, error) {
	if c.DockerTLSCert == "" && c.DockerTLSKey == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.DockerTLSCert, c.DockerTLSKey)
	if err != nil {
		return nil, fmt.Errorf("load docker client cert: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if c.DockerTLSCACert != "" {
		caPEM, err := os.ReadFile(c.DockerTLSCACert)
		if err != nil {
			return nil, fmt.Errorf("read docker CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse docker CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}
