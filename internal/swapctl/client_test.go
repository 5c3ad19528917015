package swapctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/swapd/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestDeploy_SendsSecret(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/deploy", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusAccepted, model.Attempt{ID: "a1", ContainerID: "c1", State: model.AttemptAccepted})
	}))
	defer srv.Close()

	attempt, err := NewClient(srv.URL+"/").Deploy(context.Background(), "s3cret", false, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got["secret"])
	assert.Equal(t, "a1", attempt.ID)
	assert.Equal(t, "c1", attempt.ContainerID)
}

func TestDeploy_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Deploy(context.Background(), "wrong", false, time.Millisecond)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid secret", apiErr.Message)
}

func TestDeploy_WaitsForCompletion(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/deploy":
			writeJSON(w, http.StatusAccepted, model.Attempt{ID: "a1", State: model.AttemptAccepted})
		case "/status":
			state := model.AttemptAccepted
			if polls.Add(1) >= 3 {
				state = model.AttemptRunning
			}
			writeJSON(w, http.StatusOK, model.StatusReport{LastAttempt: &model.Attempt{ID: "a1", State: state}})
		}
	}))
	defer srv.Close()

	attempt, err := NewClient(srv.URL).Deploy(context.Background(), "s3cret", true, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptRunning, attempt.State)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestAwaitAttempt_Superseded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.StatusReport{LastAttempt: &model.Attempt{ID: "a2", State: model.AttemptAccepted}})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).AwaitAttempt(context.Background(), "a1", time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer the last attempt")
}

func TestAwaitAttempt_ContextDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.StatusReport{LastAttempt: &model.Attempt{ID: "a1", State: model.AttemptAccepted}})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL).AwaitAttempt(ctx, "a1", 5*time.Millisecond)
	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"record":{"container_id":"c4","status":"Running"},"last_attempt":null}`))
	}))
	defer srv.Close()

	report, err := NewClient(srv.URL).Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Record)
	assert.Equal(t, "c4", report.Record.ContainerID)
	assert.Equal(t, model.StatusRunning, report.Record.Status)
	assert.Nil(t, report.LastAttempt)
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Status(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestGenerateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.uuid")

	var out bytes.Buffer
	require.NoError(t, GenerateSecret(&out, path))
	assert.Contains(t, out.String(), path)

	first, err := LoadSecret(path)
	require.NoError(t, err)
	assert.Len(t, first, 36)

	require.NoError(t, GenerateSecret(&out, path))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, string(second))
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, PrintJSON(&out, model.DeploymentRecord{ContainerID: "c1", Status: model.StatusDeploying}))
	assert.Equal(t, "{\n  \"container_id\": \"c1\",\n  \"status\": \"Deploying\"\n}\n", out.String())
}
