package model

import "fmt"

// DeploymentStatus is the persisted state of the container named by a
// DeploymentRecord.
type DeploymentStatus string

// Deployment status constants. The spelling matches the on-disk record format.
const (
	StatusDeploying DeploymentStatus = "Deploying"
	StatusRunning   DeploymentStatus = "Running"
)

// Valid reports whether s is one of the known statuses.
func (s DeploymentStatus) Valid() bool {
	switch s {
	case StatusDeploying, StatusRunning:
		return true
	}
	return false
}

// ParseDeploymentStatus converts a stored status string, rejecting unknown values.
func ParseDeploymentStatus(s string) (DeploymentStatus, error) {
	st := DeploymentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown deployment status %q", s)
	}
	return st, nil
}

// Attempt states reported by the status endpoint.
const (
	AttemptAccepted = "accepted"
	AttemptRunning  = "running"
	AttemptFailed   = "failed"
)

// Concurrent deploy policies.
const (
	PolicyReclaim = "reclaim"
	PolicyReject  = "reject"
)
