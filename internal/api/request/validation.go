package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Request bodies are tiny; anything larger is rejected while decoding.
const maxBodyBytes = 64 << 10

var validate = validator.New()

// Decode reads a single JSON object from the request body into v and
// validates it.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// DeployRequest is the body of POST /deploy.
type DeployRequest struct {
	Secret string `json:"secret" validate:"required"`
}
