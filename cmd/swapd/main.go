package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/swapd/internal/agent"
	"github.com/edvin/swapd/internal/api"
	"github.com/edvin/swapd/internal/config"
	"github.com/edvin/swapd/internal/db"
	"github.com/edvin/swapd/internal/deployer"
	"github.com/edvin/swapd/internal/logging"
	"github.com/edvin/swapd/internal/metrics"
	"github.com/edvin/swapd/internal/record"
	"github.com/edvin/swapd/internal/secret"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("swapd stopped")
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deploySecret, err := loadSecret(cfg)
	if err != nil {
		return err
	}

	tlsConfig, err := cfg.DockerTLS()
	if err != nil {
		return fmt.Errorf("configure docker TLS: %w", err)
	}
	if tlsConfig != nil {
		logger.Info().Msg("docker mTLS enabled")
	}
	d, err := deployer.NewDockerDeployer(deployer.DockerOptions{Host: cfg.DockerHost, TLS: tlsConfig})
	if err != nil {
		return err
	}
	defer d.Close()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info().Str("backend", cfg.RecordBackend).Msg("deployment record store ready")

	svc := agent.NewService(logger, d, store, agent.Options{
		Target: cfg.DeployTarget,
		Image:  cfg.DeployImage,
		Tag:    cfg.DeployImageTag,
		Ports:  []deployer.PortMapping{{Host: cfg.DeployHostPort, Container: cfg.DeployContainerPort}},
		Policy: cfg.OnConcurrentDeploy,
	})
	if err := svc.CheckRecord(ctx); err != nil {
		return err
	}

	servers := []*http.Server{{
		Addr:              cfg.HTTPListenAddr,
		Handler:           api.NewServer(logger, svc, deploySecret),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Deploy blocks through the image pull.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}}
	if cfg.MetricsListenAddr != "" {
		servers = append(servers, metrics.NewServer(cfg.MetricsListenAddr, prometheus.DefaultGatherer))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownServers(shutdownCtx, logger, servers)
		return nil
	})

	err = g.Wait()

	logger.Info().Msg("waiting for in-flight deployments")
	svc.Wait()
	return err
}

// shutdownServers stops every server, logging the ones that did not drain
// before ctx ended.
func shutdownServers(ctx context.Context, logger zerolog.Logger, servers []*http.Server) {
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", srv.Addr).Msg("server shutdown")
		}
	}
}

// loadSecret prefers DEPLOY_SECRET and falls back to DEPLOY_SECRET_FILE.
func loadSecret(cfg *config.Config) (string, error) {
	if cfg.DeploySecret != "" {
		return cfg.DeploySecret, nil
	}
	s, err := secret.Load(cfg.DeploySecretFile)
	if err != nil {
		return "", fmt.Errorf("load deployment secret (run `swapctl secret generate -o %s`): %w", cfg.DeploySecretFile, err)
	}
	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (record.Store, func(), error) {
	switch cfg.RecordBackend {
	case config.BackendSQLite:
		s, err := record.OpenSQLiteStore(ctx, cfg.RecordPath, cfg.DeployTarget)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.RecordDatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		s, err := record.NewPostgresStore(ctx, pool, cfg.DeployTarget)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil

	default:
		return record.NewFileStore(cfg.RecordPath), func() {}, nil
	}
}

