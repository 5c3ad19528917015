package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/edvin/swapd/internal/model"
)

// Encode serializes rec into its on-disk form.
func Encode(rec model.DeploymentRecord) ([]byte, error) {
	if err := validate(rec); err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// Decode parses an on-disk record. Anything other than exactly one complete
// record with a known status yields ErrCorrupt.
func Decode(data []byte) (*model.DeploymentRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw struct {
		ContainerID *string `json:"container_id"`
		Status      *string `json:"status"`
	}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after record", ErrCorrupt)
	}
	if raw.ContainerID == nil || raw.Status == nil {
		return nil, fmt.Errorf("%w: missing container_id or status", ErrCorrupt)
	}

	return fromColumns(*raw.ContainerID, *raw.Status)
}

// fromColumns builds a record from stored column values.
func fromColumns(containerID, status string) (*model.DeploymentRecord, error) {
	st, err := model.ParseDeploymentStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	rec := &model.DeploymentRecord{ContainerID: containerID, Status: st}
	if err := validate(*rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return rec, nil
}

func validate(rec model.DeploymentRecord) error {
	if rec.ContainerID == "" {
		return fmt.Errorf("record has empty container_id")
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("record has unknown status %q", rec.Status)
	}
	return nil
}
