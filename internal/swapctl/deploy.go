package swapctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/edvin/swapd/internal/model"
	"github.com/edvin/swapd/internal/secret"
)

// Deploy triggers a deployment authenticated by deploySecret. With
// wait set it polls /status until the attempt leaves the accepted state.
func (c *Client) Deploy(ctx context.Context, deploySecret string, wait bool, pollEvery time.Duration) (*model.Attempt, error) {
	resp, err := c.Post(ctx, "/deploy", map[string]string{"secret": deploySecret})
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}

	var attempt model.Attempt
	if err := json.Unmarshal(resp.Body, &attempt); err != nil {
		return nil, fmt.Errorf("parse deploy response: %w", err)
	}
	if !wait {
		return &attempt, nil
	}
	return c.AwaitAttempt(ctx, attempt.ID, pollEvery)
}

// Status fetches the current record and last attempt.
func (c *Client) Status(ctx context.Context) (*model.StatusReport, error) {
	resp, err := c.Get(ctx, "/status")
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	var report model.StatusReport
	if err := json.Unmarshal(resp.Body, &report); err != nil {
		return nil, fmt.Errorf("parse status response: %w", err)
	}
	return &report, nil
}

// AwaitAttempt polls /status until the attempt with id has finished or ctx
// ends.
func (c *Client) AwaitAttempt(ctx context.Context, id string, pollEvery time.Duration) (*model.Attempt, error) {
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		report, err := c.Status(ctx)
		if err != nil {
			return nil, err
		}
		last := report.LastAttempt
		if last == nil || last.ID != id {
			return nil, fmt.Errorf("await attempt %s: no longer the last attempt", id)
		}
		if last.State != model.AttemptAccepted {
			return last, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("await attempt %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// LoadSecret reads the deployment secret from path.
func LoadSecret(path string) (string, error) {
	return secret.Load(path)
}

// GenerateSecret provisions the deployment secret at path, keeping an
// existing one, and prints where it lives.
func GenerateSecret(w io.Writer, path string) error {
	if _, err := secret.Generate(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "deployment secret stored in %s\n", path)
	return nil
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
