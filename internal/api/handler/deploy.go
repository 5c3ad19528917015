package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/swapd/internal/agent"
	"github.com/edvin/swapd/internal/api/request"
	"github.com/edvin/swapd/internal/api/response"
	"github.com/edvin/swapd/internal/model"
	"github.com/edvin/swapd/internal/secret"
)

// DeployService is the part of agent.Service the deploy endpoints use.
type DeployService interface {
	Deploy(ctx context.Context) (*model.Attempt, error)
	Status(ctx context.Context) (*model.StatusReport, error)
}

type Deploy struct {
	svc    DeployService
	secret string
}

func NewDeploy(svc DeployService, deploySecret string) *Deploy {
	return &Deploy{svc: svc, secret: deploySecret}
}

// Deploy handles POST /deploy.
func (h *Deploy) Deploy(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req request.DeployRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !secret.Equal(h.secret, req.Secret) {
		logger.Warn().Msg("deploy rejected: secret mismatch")
		response.WriteError(w, http.StatusUnauthorized, "invalid secret")
		return
	}

	attempt, err := h.svc.Deploy(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrDeployInProgress):
			response.WriteError(w, http.StatusConflict, "a deployment is already in progress")
		case errors.Is(err, agent.ErrAlreadyDeploying):
			response.WriteError(w, http.StatusConflict, "previous deployment did not finish")
		default:
			logger.Error().Err(err).Msg("deploy failed")
			response.WriteError(w, http.StatusInternalServerError, "deployment failed")
		}
		return
	}

	response.WriteJSON(w, http.StatusAccepted, attempt)
}

// Status handles GET /status.
func (h *Deploy) Status(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Status(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("read status failed")
		response.WriteError(w, http.StatusInternalServerError, "failed to read deployment record")
		return
	}
	response.WriteJSON(w, http.StatusOK, report)
}
