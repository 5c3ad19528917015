package agent

import "errors"

var (
	// ErrNotLocked is returned by Deploy when Lock has not succeeded first.
	// Nothing is touched in that case.
	ErrNotLocked = errors.New("agent must be locked before deploying")
	// ErrAlreadyDeploying is returned by Lock under the reject policy when the
	// record shows an unfinished deployment.
	ErrAlreadyDeploying = errors.New("a previous deployment is still marked as deploying")
	// ErrInvariantViolation is returned by Deploy when the record no longer
	// names this agent's container as deploying.
	ErrInvariantViolation = errors.New("deployment record changed concurrently")
	// ErrDeployInProgress is returned when the admission gate for a target is
	// already held.
	ErrDeployInProgress = errors.New("another deployment is in progress")
)
