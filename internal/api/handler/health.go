package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/edvin/swapd/internal/api/response"
)

// ReadyChecker reports the health of each dependency by name; a nil error
// means healthy.
type ReadyChecker interface {
	Ready(ctx context.Context) map[string]error
}

type Health struct {
	checker ReadyChecker
	timeout time.Duration
}

func NewHealth(checker ReadyChecker) *Health {
	return &Health{checker: checker, timeout: 3 * time.Second}
}

func (h *Health) Healthz(w http.ResponseWriter, _ *http.Request) {
	response.WriteStatus(w, http.StatusOK, "ok")
}

func (h *Health) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	for name, err := range h.checker.Ready(ctx) {
		if err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	response.WriteJSON(w, status, checks)
}
