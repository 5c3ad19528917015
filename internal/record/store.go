// Package record persists the deployment record: the single slot naming the
// container that is live, or about to be, for one deployment target.
package record

import (
	"context"
	"errors"

	"github.com/edvin/swapd/internal/model"
)

var (
	// ErrNotFound is returned by Read when no record has been written.
	ErrNotFound = errors.New("no deployment record")
	// ErrCorrupt is returned when a stored record cannot be parsed.
	ErrCorrupt = errors.New("deployment record corrupt")
)

// Store is single-slot storage for one deployment target. Write replaces the
// whole record atomically; readers never observe a partial record. Stores do
// no locking of their own beyond that.
type Store interface {
	Read(ctx context.Context) (*model.DeploymentRecord, error)
	Write(ctx context.Context, rec model.DeploymentRecord) error
	Clear(ctx context.Context) error
}
