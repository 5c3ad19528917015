package model

import "time"

// DeploymentRecord is the single persisted fact about which container is the
// intended or live deployment for a target.
type DeploymentRecord struct {
	ContainerID string           `json:"container_id" db:"container_id"`
	Status      DeploymentStatus `json:"status" db:"status"`
}

// Attempt describes the most recent deploy request accepted by the agent and
// the outcome of its detached start task.
type Attempt struct {
	ID            string     `json:"id"`
	Target        string     `json:"target"`
	Image         string     `json:"image"`
	ContainerID   string     `json:"container_id,omitempty"`
	ContainerName string     `json:"container_name,omitempty"`
	Previous      string     `json:"previous_container_id,omitempty"`
	State         string     `json:"state"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// StatusReport is returned by the status endpoint.
type StatusReport struct {
	Record      *DeploymentRecord `json:"record"`
	LastAttempt *Attempt          `json:"last_attempt"`
}
