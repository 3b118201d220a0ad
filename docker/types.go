// Package docker wraps the container tooling DXLander deploys with: the
// compose CLI for lifecycle operations and the engine API for image checks.
package docker

import "errors"

// ErrProjectNotFound distinguishes "this compose project does not exist" from
// "the project exists but produced nothing". Callers decide whether that is
// fatal.
var ErrProjectNotFound = errors.New("compose project not found")

// CheckStatus classifies a single pre-flight check outcome.
type CheckStatus string

const (
	CheckStatusPassed  CheckStatus = "passed"
	CheckStatusFailed  CheckStatus = "failed"
	CheckStatusWarning CheckStatus = "warning"
)

// PreFlightCheck is one named validation run before a build.
type PreFlightCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

// PreFlightResult aggregates all checks. Passed is true iff no check failed;
// warnings do not block.
type PreFlightResult struct {
	Passed bool             `json:"passed"`
	Checks []PreFlightCheck `json:"checks"`
}

// FailureMessages concatenates the messages of all failed checks.
func (r *PreFlightResult) FailureMessages() []string {
	var messages []string
	for _, check := range r.Checks {
		if check.Status == CheckStatusFailed {
			messages = append(messages, check.Message)
		}
	}
	return messages
}

// StreamMessage is one line of live output from a compose invocation.
type StreamMessage struct {
	Type    string `json:"type"` // "progress" or "error"
	Message string `json:"message"`
}

// UpResult reports the outcome of a compose up. Failures are reported through
// Success and ErrorMessage, never as a Go error, so callers always get Logs.
type UpResult struct {
	Success      bool
	Services     []string
	ErrorMessage string
	Logs         string
}

// OpResult reports a start/stop/restart outcome.
type OpResult struct {
	Success      bool
	ErrorMessage string
}

// ServiceState is one service row from compose ps.
type ServiceState struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// PsResult summarizes live project state. Running is true iff at least one
// service reports a running state.
type PsResult struct {
	Running  bool
	Services []ServiceState
}

// DownOptions controls teardown scope.
type DownOptions struct {
	RemoveVolumes bool
	RemoveImages  bool
}

// LogsOptions narrows a compose logs call.
type LogsOptions struct {
	Tail    int    // 0 means all
	Service string // empty means all services
}
