package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edvin/swapd/internal/model"
)

var (
	deployAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapd_deploy_attempts_total",
			Help: "Deploy requests that reached the agent, by result (accepted, busy, failed)",
		},
		[]string{"target", "result"},
	)

	deployCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapd_deploy_completions_total",
			Help: "Detached start tasks finished, by result (running, failed)",
		},
		[]string{"target", "result"},
	)

	containerRemovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapd_container_removals_total",
			Help: "Previous containers retired, by result (removed, already_gone)",
		},
		[]string{"target", "result"},
	)

	abandonedDeploymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapd_abandoned_deployments_total",
			Help: "Deploying records found left behind by an earlier attempt",
		},
		[]string{"target"},
	)

	deployDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapd_deploy_duration_seconds",
			Help:    "Time spent per deploy phase (accept, complete)",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"target", "phase"},
	)

	recordStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swapd_record_status",
			Help: "1 for the status the deployment record currently holds, 0 otherwise",
		},
		[]string{"target", "status"},
	)
)

// Deploy attempt results.
const (
	ResultAccepted    = "accepted"
	ResultBusy        = "busy"
	ResultFailed      = "failed"
	ResultRunning     = "running"
	ResultRemoved     = "removed"
	ResultAlreadyGone = "already_gone"
)

// Deploy phases.
const (
	PhaseAccept   = "accept"
	PhaseComplete = "complete"
)

func ObserveAttempt(target, result string) {
	deployAttemptsTotal.WithLabelValues(target, result).Inc()
}

func ObserveCompletion(target, result string) {
	deployCompletionsTotal.WithLabelValues(target, result).Inc()
}

func ObserveRemoval(target, result string) {
	containerRemovalsTotal.WithLabelValues(target, result).Inc()
}

func ObserveAbandoned(target string) {
	abandonedDeploymentsTotal.WithLabelValues(target).Inc()
}

func ObserveDuration(target, phase string, seconds float64) {
	deployDuration.WithLabelValues(target, phase).Observe(seconds)
}

// SetRecordStatus publishes the record's current status; an empty status
// means no record exists.
func SetRecordStatus(target string, status model.DeploymentStatus) {
	for _, s := range []model.DeploymentStatus{model.StatusDeploying, model.StatusRunning} {
		v := 0.0
		if s == status {
			v = 1
		}
		recordStatus.WithLabelValues(target, string(s)).Set(v)
	}
}
