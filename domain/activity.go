package domain

import (
	"time"

	"github.com/google/uuid"
)

// Activity action tags recorded during orchestration. These are machine-readable
// phase names; the activity log is the sole durable record of why a deployment
// reached its current status.
const (
	ActivityDeploymentStarted  = "deployment_started"
	ActivityPreFlightComplete  = "pre_flight_complete"
	ActivityPreFlightFailed    = "pre_flight_failed"
	ActivityComposeTransformed = "compose_transformed"
	ActivityEnvResolved        = "env_resolved"
	ActivityEnvInvalid         = "env_validation_failed"
	ActivityBuildStarted       = "build_started"
	ActivityDeploymentComplete = "deployment_complete"
	ActivityDeploymentFailed   = "deployment_failed"
	ActivityDeploymentError    = "deployment_error"
	ActivityDeploymentStopped  = "deployment_stopped"
	ActivityDeploymentResumed  = "deployment_resumed"
	ActivityDeploymentDeleted  = "deployment_deleted"
)

// ActivityLogEntry is an immutable, append-only audit record scoped to one
// deployment. Entries are never mutated or deleted after insertion.
type ActivityLogEntry struct {
	ID           uuid.UUID
	DeploymentID uuid.UUID
	Action       string
	Result       string
	Details      map[string]any
	CreatedAt    time.Time
}

func NewActivityLogEntry(deploymentID uuid.UUID, action, result string, details map[string]any) ActivityLogEntry {
	return ActivityLogEntry{
		ID:           uuid.New(),
		DeploymentID: deploymentID,
		Action:       action,
		Result:       result,
		Details:      details,
	}
}
