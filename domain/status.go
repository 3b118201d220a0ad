package domain

import "fmt"

// DeploymentStatus represents the lifecycle status of a deployment
type DeploymentStatus int

const (
	DeploymentStatusUnknown DeploymentStatus = iota
	DeploymentStatusPending
	DeploymentStatusPreFlight
	DeploymentStatusBuilding
	DeploymentStatusRunning
	DeploymentStatusStopped
	DeploymentStatusFailed
	DeploymentStatusTerminated
)

func (s DeploymentStatus) String() string {
	switch s {
	case DeploymentStatusPending:
		return "pending"
	case DeploymentStatusPreFlight:
		return "pre_flight"
	case DeploymentStatusBuilding:
		return "building"
	case DeploymentStatusRunning:
		return "running"
	case DeploymentStatusStopped:
		return "stopped"
	case DeploymentStatusFailed:
		return "failed"
	case DeploymentStatusTerminated:
		return "terminated"
	case DeploymentStatusUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

func ParseDeploymentStatus(s string) (DeploymentStatus, error) {
	switch s {
	case "pending":
		return DeploymentStatusPending, nil
	case "pre_flight":
		return DeploymentStatusPreFlight, nil
	case "building":
		return DeploymentStatusBuilding, nil
	case "running":
		return DeploymentStatusRunning, nil
	case "stopped":
		return DeploymentStatusStopped, nil
	case "failed":
		return DeploymentStatusFailed, nil
	case "terminated":
		return DeploymentStatusTerminated, nil
	case "unknown":
		return DeploymentStatusUnknown, nil
	default:
		return DeploymentStatusUnknown, fmt.Errorf("invalid deployment status: %q", s)
	}
}

// IsTerminal reports whether the status admits no further create-flow transitions.
// A failed deployment can still be deleted, and a running/stopped one restarted,
// but neither re-enters the create flow.
func (s DeploymentStatus) IsTerminal() bool {
	return s == DeploymentStatusFailed || s == DeploymentStatusTerminated
}
