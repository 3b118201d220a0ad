package deployment

import (
	"context"

	"github.com/google/uuid"

	"github.com/dxlander/dxlander/docker"
)

// ExecTarget carries the orchestration identifiers an executor needs to
// address one deployment's stack.
type ExecTarget struct {
	Namespace string
	BuildDir  string
	EnvVars   map[string]string
}

// PlatformExecutor is the per-platform capability the orchestrator drives.
// Implementations shell out to platform tooling; build and lifecycle failures
// come back inside the result types, not as Go errors, so the orchestrator
// can persist captured logs either way.
type PlatformExecutor interface {
	RunPreFlightChecks(ctx context.Context, target ExecTarget, provisionServices []string) *docker.PreFlightResult
	Up(ctx context.Context, target ExecTarget, outputChan chan<- docker.StreamMessage) *docker.UpResult
	Start(ctx context.Context, target ExecTarget) *docker.OpResult
	Stop(ctx context.Context, target ExecTarget) *docker.OpResult
	Restart(ctx context.Context, target ExecTarget) *docker.OpResult
	Down(ctx context.Context, target ExecTarget, opts docker.DownOptions) error
	Ps(ctx context.Context, target ExecTarget) (*docker.PsResult, error)
	Logs(ctx context.Context, target ExecTarget, opts docker.LogsOptions) (string, error)
}

// EnvSource resolves the environment a deployment is started with.
// integration.EnvResolver is the production implementation.
type EnvSource interface {
	Resolve(userID, configSetID uuid.UUID) (map[string]string, error)
}
