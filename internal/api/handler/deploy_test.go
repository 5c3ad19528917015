package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/swapd/internal/agent"
	"github.com/edvin/swapd/internal/deployer"
	"github.com/edvin/swapd/internal/model"
	"github.com/edvin/swapd/internal/record"
)

func newDeployHandler() (*Deploy, *mockDeployService) {
	svc := &mockDeployService{}
	return NewDeploy(svc, testSecret), svc
}

// --- Deploy ---

func TestDeploy_InvalidJSON(t *testing.T) {
	h, svc := newDeployHandler()
	rec := httptest.NewRecorder()

	h.Deploy(rec, newRequestRaw(http.MethodPost, "/deploy", "{bad json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, decodeErrorResponse(rec)["error"], "invalid JSON")
	svc.AssertNotCalled(t, "Deploy", mock.Anything)
}

func TestDeploy_EmptyBody(t *testing.T) {
	h, svc := newDeployHandler()
	rec := httptest.NewRecorder()

	h.Deploy(rec, newRequestRaw(http.MethodPost, "/deploy", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Deploy", mock.Anything)
}

func TestDeploy_MissingSecret(t *testing.T) {
	h, svc := newDeployHandler()
	rec := httptest.NewRecorder()

	h.Deploy(rec, newRequest(http.MethodPost, "/deploy", map[string]any{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "validation error")
	svc.AssertNotCalled(t, "Deploy", mock.Anything)
}

func TestDeploy_WrongSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"different", "not-the-secret"},
		{"prefix", testSecret[:10]},
		{"trailing space", testSecret + " "},
		{"case", "6D1C2F1E-3B4A-4C5D-8E9F-0A1B2C3D4E5F"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newDeployHandler()
			rec := httptest.NewRecorder()

			h.Deploy(rec, newRequest(http.MethodPost, "/deploy", map[string]any{"secret": tt.secret}))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "invalid secret", decodeErrorResponse(rec)["error"])
			svc.AssertNotCalled(t, "Deploy", mock.Anything)
		})
	}
}

func TestDeploy_Accepted(t *testing.T) {
	h, svc := newDeployHandler()
	attempt := &model.Attempt{
		ID:          "a1",
		Target:      "default",
		Image:       "hello-world:latest",
		ContainerID: "c2",
		Previous:    "c1",
		State:       model.AttemptAccepted,
		StartedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	svc.On("Deploy", mock.Anything).Return(attempt, nil)
	rec := httptest.NewRecorder()

	h.Deploy(rec, newRequest(http.MethodPost, "/deploy", map[string]any{"secret": testSecret}))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var got model.Attempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "c2", got.ContainerID)
	assert.Equal(t, "c1", got.Previous)
	assert.Equal(t, model.AttemptAccepted, got.State)
	svc.AssertExpectations(t)
}

func TestDeploy_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"busy", agent.ErrDeployInProgress, http.StatusConflict},
		{"already deploying", fmt.Errorf("lock: container x: %w", agent.ErrAlreadyDeploying), http.StatusConflict},
		{"runtime unreachable", fmt.Errorf("%w: dial unix /var/run/docker.sock", deployer.ErrRuntimeUnreachable), http.StatusInternalServerError},
		{"corrupt record", fmt.Errorf("lock: %w", record.ErrCorrupt), http.StatusInternalServerError},
		{"invariant", agent.ErrInvariantViolation, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newDeployHandler()
			svc.On("Deploy", mock.Anything).Return(nil, tt.err)
			rec := httptest.NewRecorder()

			h.Deploy(rec, newRequest(http.MethodPost, "/deploy", map[string]any{"secret": testSecret}))

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestDeploy_InternalErrorNotLeaked(t *testing.T) {
	h, svc := newDeployHandler()
	svc.On("Deploy", mock.Anything).Return(nil, errors.New("remove container /srv/secret-path: permission denied"))
	rec := httptest.NewRecorder()

	h.Deploy(rec, newRequest(http.MethodPost, "/deploy", map[string]any{"secret": testSecret}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "deployment failed", decodeErrorResponse(rec)["error"])
	assert.NotContains(t, rec.Body.String(), "secret-path")
}

// --- Status ---

func TestStatus_NoRecord(t *testing.T) {
	h, svc := newDeployHandler()
	svc.On("Status", mock.Anything).Return(&model.StatusReport{}, nil)
	rec := httptest.NewRecorder()

	h.Status(rec, newRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"record":null,"last_attempt":null}`, rec.Body.String())
}

func TestStatus_WithRecord(t *testing.T) {
	h, svc := newDeployHandler()
	svc.On("Status", mock.Anything).Return(&model.StatusReport{
		Record: &model.DeploymentRecord{ContainerID: "c4", Status: model.StatusRunning},
	}, nil)
	rec := httptest.NewRecorder()

	h.Status(rec, newRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"record":{"container_id":"c4","status":"Running"},"last_attempt":null}`, rec.Body.String())
}

func TestStatus_ReadError(t *testing.T) {
	h, svc := newDeployHandler()
	svc.On("Status", mock.Anything).Return(nil, fmt.Errorf("read record: %w", record.ErrCorrupt))
	rec := httptest.NewRecorder()

	h.Status(rec, newRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to read deployment record", decodeErrorResponse(rec)["error"])
}
