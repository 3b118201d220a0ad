package deployment

import (
	"context"
	"log/slog"

	"github.com/dxlander/dxlander/config"
	"github.com/dxlander/dxlander/docker"
	"github.com/dxlander/dxlander/domain"
)

// ComposeExecutor implements PlatformExecutor on top of the local compose
// tooling. A nil image client disables pre-flight image checks (the remaining
// checks still run).
type ComposeExecutor struct {
	config *config.Config
	images docker.ImageChecker
}

var _ PlatformExecutor = (*ComposeExecutor)(nil)

func NewComposeExecutor(cfg *config.Config, images docker.ImageChecker) *ComposeExecutor {
	return &ComposeExecutor{config: cfg, images: images}
}

func (e *ComposeExecutor) project(target ExecTarget) *docker.ComposeProject {
	return docker.NewComposeProject(target.Namespace, target.BuildDir, target.EnvVars, e.config)
}

func (e *ComposeExecutor) RunPreFlightChecks(
	ctx context.Context,
	target ExecTarget,
	provisionServices []string,
) *docker.PreFlightResult {
	return docker.RunPreFlightChecks(ctx, target.BuildDir, provisionServices, e.images)
}

func (e *ComposeExecutor) Up(
	_ context.Context,
	target ExecTarget,
	outputChan chan<- docker.StreamMessage,
) *docker.UpResult {
	return e.project(target).Up(true, outputChan)
}

func (e *ComposeExecutor) Start(_ context.Context, target ExecTarget) *docker.OpResult {
	return e.project(target).Start()
}

func (e *ComposeExecutor) Stop(_ context.Context, target ExecTarget) *docker.OpResult {
	return e.project(target).Stop()
}

func (e *ComposeExecutor) Restart(_ context.Context, target ExecTarget) *docker.OpResult {
	return e.project(target).Restart()
}

func (e *ComposeExecutor) Down(_ context.Context, target ExecTarget, opts docker.DownOptions) error {
	return e.project(target).Down(opts)
}

func (e *ComposeExecutor) Ps(_ context.Context, target ExecTarget) (*docker.PsResult, error) {
	return e.project(target).Ps()
}

func (e *ComposeExecutor) Logs(_ context.Context, target ExecTarget, opts docker.LogsOptions) (string, error) {
	return e.project(target).Logs(opts)
}

// NewDefaultRegistry wires up the executors for every supported platform.
func NewDefaultRegistry(cfg *config.Config) *Registry {
	var images docker.ImageChecker
	client, err := docker.NewClient(cfg.DockerHost)
	if err != nil {
		slog.Warn("Docker engine client unavailable, image pre-flight checks disabled",
			"docker_host", cfg.DockerHost,
			"error", err)
	} else {
		images = client
	}

	registry := NewRegistry()
	registry.Register(domain.PlatformDockerCompose, NewComposeExecutor(cfg, images))
	return registry
}
