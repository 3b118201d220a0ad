package domain

// ProgressPhase identifies which orchestration phase a progress event belongs to.
type ProgressPhase string

const (
	ProgressPhasePreFlight ProgressPhase = "pre_flight"
	ProgressPhaseBuild     ProgressPhase = "build"
	ProgressPhaseDeploy    ProgressPhase = "deploy"
	ProgressPhaseComplete  ProgressPhase = "complete"
	ProgressPhaseError     ProgressPhase = "error"
)

// ProgressEvent is one incremental update emitted while a deployment is being
// created. Events are delivered over a channel; callers may display them but
// cannot cancel an in-flight build through it.
type ProgressEvent struct {
	Phase   ProgressPhase     `json:"phase"`
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}
