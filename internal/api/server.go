package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/swapd/internal/api/handler"
	mw "github.com/edvin/swapd/internal/api/middleware"
)

// Service is what the control API needs from the deploy service.
type Service interface {
	handler.DeployService
	handler.ReadyChecker
}

type Server struct {
	router chi.Router
	logger zerolog.Logger
	svc    Service
	secret string
}

func NewServer(logger zerolog.Logger, svc Service, deploySecret string) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger.With().Str("component", "api").Logger(),
		svc:    svc,
		secret: deploySecret,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())

	health := handler.NewHealth(s.svc)
	s.router.Get("/healthz", health.Healthz)
	s.router.Get("/readyz", health.Readyz)

	deploy := handler.NewDeploy(s.svc, s.secret)
	s.router.Post("/deploy", deploy.Deploy)
	s.router.Get("/status", deploy.Status)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
