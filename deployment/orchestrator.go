package deployment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dxlander/dxlander/compose"
	"github.com/dxlander/dxlander/config"
	"github.com/dxlander/dxlander/docker"
	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/env"
	"github.com/dxlander/dxlander/repository"
)

// CreateRequest describes a new deployment.
type CreateRequest struct {
	UserID      uuid.UUID
	ProjectID   uuid.UUID
	ConfigSetID uuid.UUID
	Platform    domain.Platform
	Name        string
	Environment string
	Notes       string
}

// LogsResult separates persisted build output from live runtime output.
type LogsResult struct {
	BuildLogs   string `json:"buildLogs"`
	RuntimeLogs string `json:"runtimeLogs"`
}

// Orchestrator sequences deployment creation and drives lifecycle operations
// through the platform executor registry. All cross-call state lives in the
// deployment record and the build directory, so different deployments can be
// orchestrated concurrently.
type Orchestrator struct {
	deployments repository.DeploymentRepository
	activityLog repository.ActivityLogRepository
	projects    repository.ProjectRepository
	configSets  repository.ConfigSetRepository
	envSource   EnvSource
	registry    *Registry
	config      *config.Config
}

func NewOrchestrator(
	deployments repository.DeploymentRepository,
	activityLog repository.ActivityLogRepository,
	projects repository.ProjectRepository,
	configSets repository.ConfigSetRepository,
	envSource EnvSource,
	registry *Registry,
	cfg *config.Config,
) *Orchestrator {
	return &Orchestrator{
		deployments: deployments,
		activityLog: activityLog,
		projects:    projects,
		configSets:  configSets,
		envSource:   envSource,
		registry:    registry,
		config:      cfg,
	}
}

// CreateDeployment runs the full create flow: validate inputs, insert the
// record, stage files, run pre-flight checks, rewrite the compose document,
// resolve the environment, then build and start the stack. Failures after the
// record exists are absorbed into a failed status on the record; only input
// validation errors (before any state exists) are returned as errors. The
// returned deployment is always reloaded from storage. When progress is
// non-nil the orchestrator sends events into it; the channel is not closed.
func (o *Orchestrator) CreateDeployment(
	ctx context.Context,
	req CreateRequest,
	progress chan<- domain.ProgressEvent,
) (*domain.Deployment, error) {
	// Step 1: everything here fails before any record is created
	executor, err := o.registry.Get(req.Platform)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("deployment name is required")
	}

	configSet, err := o.configSets.FindByID(req.UserID, req.ConfigSetID)
	if err != nil {
		return nil, fmt.Errorf("config set not found: %w", err)
	}
	project, err := o.projects.FindByID(req.UserID, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}
	if err := o.checkSourceFiles(project, configSet); err != nil {
		return nil, err
	}

	// Step 2: insert the record in pending status
	d := domain.NewDeployment(req.UserID, req.ProjectID, req.ConfigSetID, req.Platform, req.Name, req.Environment)
	d.Notes = req.Notes
	d.Metadata.BuildDir = filepath.Join(o.config.BuildsDir, d.Metadata.Namespace)
	if err := o.deployments.Create(&d); err != nil {
		return nil, fmt.Errorf("failed to create deployment record: %w", err)
	}
	o.appendActivity(d.ID, domain.ActivityDeploymentStarted, "deployment created", map[string]any{
		"name":        d.Name,
		"environment": d.Environment,
		"platform":    d.Platform.String(),
	})

	o.runCreatePhases(ctx, executor, &d, project, configSet, progress)

	return o.reload(req.UserID, d.ID)
}

// runCreatePhases executes steps 3-8, converting any escaped error or panic
// into a failed status so CreateDeployment never propagates one.
func (o *Orchestrator) runCreatePhases(
	ctx context.Context,
	executor PlatformExecutor,
	d *domain.Deployment,
	project *domain.Project,
	configSet *domain.ConfigSet,
	progress chan<- domain.ProgressEvent,
) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Service operation failed",
				"layer", "deployment",
				"operation", "create_deployment",
				"deployment_id", d.ID,
				"panic", r)
			o.recordUnexpected(d, progress, fmt.Errorf("unexpected error: %v", r))
		}
	}()

	if err := o.createFlow(ctx, executor, d, project, configSet, progress); err != nil {
		o.recordUnexpected(d, progress, err)
	}
}

// createFlow returns an error only for unexpected internal failures; expected
// deployment failures are absorbed via failDeployment and return nil.
func (o *Orchestrator) createFlow(
	ctx context.Context,
	executor PlatformExecutor,
	d *domain.Deployment,
	project *domain.Project,
	configSet *domain.ConfigSet,
	progress chan<- domain.ProgressEvent,
) error {
	// Step 3: pre-flight
	d.Status = domain.DeploymentStatusPreFlight
	if err := o.deployments.Update(d); err != nil {
		return fmt.Errorf("failed to persist pre_flight status: %w", err)
	}
	o.emitProgress(progress, domain.ProgressPhasePreFlight, "running", "staging files and running pre-flight checks", nil)

	if err := stageBuildDir(d.Metadata.BuildDir, project, configSet); err != nil {
		o.failDeployment(d, progress, domain.ActivityPreFlightFailed,
			fmt.Sprintf("file staging failed: %v", err), nil)
		return nil
	}

	target := ExecTarget{Namespace: d.Metadata.Namespace, BuildDir: d.Metadata.BuildDir}

	preFlight := executor.RunPreFlightChecks(ctx, target, provisionServiceNames(configSet.Services))
	if !preFlight.Passed {
		o.failDeployment(d, progress, domain.ActivityPreFlightFailed,
			strings.Join(preFlight.FailureMessages(), "; "),
			map[string]any{"checks": preFlight.Checks})
		return nil
	}
	o.appendActivity(d.ID, domain.ActivityPreFlightComplete, "all pre-flight checks passed",
		map[string]any{"checks": preFlight.Checks})
	o.emitProgress(progress, domain.ProgressPhasePreFlight, "passed", "pre-flight checks passed", nil)

	// Step 4: compose rewrite per service source modes
	if err := o.transformCompose(d, configSet, progress); err != nil {
		return err
	}
	if d.Status == domain.DeploymentStatusFailed {
		return nil
	}

	// Step 5: environment resolution and validation
	envVars, err := o.envSource.Resolve(d.UserID, d.ConfigSetID)
	if err != nil {
		o.failDeployment(d, progress, domain.ActivityEnvInvalid,
			fmt.Sprintf("environment resolution failed: %v", err), nil)
		return nil
	}
	if messages := env.ValidateVarNames(envVars); len(messages) > 0 {
		o.failDeployment(d, progress, domain.ActivityEnvInvalid,
			strings.Join(messages, "; "),
			map[string]any{"messages": messages})
		return nil
	}
	o.appendActivity(d.ID, domain.ActivityEnvResolved, "environment resolved",
		map[string]any{"var_count": len(envVars)})

	// Step 6: port extraction
	d.Ports = env.ExtractPortMappings(envVars)
	if err := o.deployments.Update(d); err != nil {
		return fmt.Errorf("failed to persist port mappings: %w", err)
	}

	// Step 7: build and start
	d.Status = domain.DeploymentStatusBuilding
	now := time.Now()
	d.StartedAt = &now
	if err := o.deployments.Update(d); err != nil {
		return fmt.Errorf("failed to persist building status: %w", err)
	}
	o.appendActivity(d.ID, domain.ActivityBuildStarted, "build started", nil)
	o.emitProgress(progress, domain.ProgressPhaseBuild, "running", "building and starting services", nil)

	target.EnvVars = envVars
	result := o.runUp(ctx, executor, target, progress)
	d.BuildLogs = result.Logs
	if !result.Success {
		o.failDeployment(d, progress, domain.ActivityDeploymentFailed, result.ErrorMessage,
			map[string]any{"phase": "build"})
		return nil
	}

	// Step 8: mark running and persist discovery results
	completed := time.Now()
	d.Status = domain.DeploymentStatusRunning
	d.CompletedAt = &completed
	d.Metadata.Services = result.Services
	o.assignURLs(d, result.Services)
	if err := o.deployments.Update(d); err != nil {
		return fmt.Errorf("failed to persist running status: %w", err)
	}
	o.appendActivity(d.ID, domain.ActivityDeploymentComplete, "deployment is running",
		map[string]any{"services": result.Services})
	o.emitProgress(progress, domain.ProgressPhaseComplete, "success", "deployment is running", nil)

	return nil
}

// transformCompose prunes external/none services from the staged compose file
// and re-validates the rewritten document when anything was removed.
func (o *Orchestrator) transformCompose(
	d *domain.Deployment,
	configSet *domain.ConfigSet,
	progress chan<- domain.ProgressEvent,
) error {
	composePath := filepath.Join(d.Metadata.BuildDir, docker.ComposeFileName)
	content, err := os.ReadFile(composePath)
	if err != nil {
		return fmt.Errorf("failed to read staged compose file: %w", err)
	}

	doc, err := compose.ParseDocument(content)
	if err != nil {
		o.failDeployment(d, progress, domain.ActivityDeploymentFailed,
			fmt.Sprintf("compose file not parseable: %v", err), nil)
		return nil
	}

	removed := doc.PruneExternalServices(configSet.Services)
	if len(removed) == 0 {
		return nil
	}

	rewritten, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize rewritten compose file: %w", err)
	}
	if err := compose.Validate(rewritten); err != nil {
		o.failDeployment(d, progress, domain.ActivityDeploymentFailed,
			fmt.Sprintf("rewritten compose file is invalid: %v", err),
			map[string]any{"removed_services": removed})
		return nil
	}
	if err := os.WriteFile(composePath, rewritten, 0o644); err != nil {
		return fmt.Errorf("failed to write rewritten compose file: %w", err)
	}

	o.appendActivity(d.ID, domain.ActivityComposeTransformed,
		fmt.Sprintf("removed %d service(s) from compose document", len(removed)),
		map[string]any{"removed_services": removed})
	return nil
}

// runUp invokes the executor's build entrypoint, forwarding its stream into
// the caller's progress channel. Executor error events flip the phase to
// error as they pass through.
func (o *Orchestrator) runUp(
	ctx context.Context,
	executor PlatformExecutor,
	target ExecTarget,
	progress chan<- domain.ProgressEvent,
) *docker.UpResult {
	var streamChan chan docker.StreamMessage
	var wg sync.WaitGroup

	if progress != nil {
		streamChan = make(chan docker.StreamMessage, 64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range streamChan {
				phase := domain.ProgressPhaseBuild
				status := "running"
				if msg.Type == "error" {
					phase = domain.ProgressPhaseError
					status = "error"
				}
				progress <- domain.ProgressEvent{Phase: phase, Status: status, Message: msg.Message}
			}
		}()
	}

	result := executor.Up(ctx, target, streamChan)

	if streamChan != nil {
		close(streamChan)
		wg.Wait()
	}
	return result
}

// Start resumes a stopped deployment's services.
func (o *Orchestrator) Start(ctx context.Context, userID, id uuid.UUID) (*domain.Deployment, error) {
	d, executor, target, err := o.loadForLifecycle(userID, id)
	if err != nil {
		return nil, err
	}

	result := executor.Start(ctx, target)
	if !result.Success {
		return nil, fmt.Errorf("failed to start deployment: %s", result.ErrorMessage)
	}

	d.Status = domain.DeploymentStatusRunning
	if err := o.deployments.Update(d); err != nil {
		return nil, err
	}
	o.appendActivity(d.ID, domain.ActivityDeploymentResumed, "deployment started", nil)
	return o.reload(userID, id)
}

// Stop halts a deployment's services and records the stop time.
func (o *Orchestrator) Stop(ctx context.Context, userID, id uuid.UUID) (*domain.Deployment, error) {
	d, executor, target, err := o.loadForLifecycle(userID, id)
	if err != nil {
		return nil, err
	}

	result := executor.Stop(ctx, target)
	if !result.Success {
		return nil, fmt.Errorf("failed to stop deployment: %s", result.ErrorMessage)
	}

	now := time.Now()
	d.Status = domain.DeploymentStatusStopped
	d.StoppedAt = &now
	if err := o.deployments.Update(d); err != nil {
		return nil, err
	}
	o.appendActivity(d.ID, domain.ActivityDeploymentStopped, "deployment stopped", nil)
	return o.reload(userID, id)
}

// Restart restarts a deployment's services in place.
func (o *Orchestrator) Restart(ctx context.Context, userID, id uuid.UUID) (*domain.Deployment, error) {
	d, executor, target, err := o.loadForLifecycle(userID, id)
	if err != nil {
		return nil, err
	}

	result := executor.Restart(ctx, target)
	if !result.Success {
		return nil, fmt.Errorf("failed to restart deployment: %s", result.ErrorMessage)
	}

	d.Status = domain.DeploymentStatusRunning
	if err := o.deployments.Update(d); err != nil {
		return nil, err
	}
	o.appendActivity(d.ID, domain.ActivityDeploymentResumed, "deployment restarted", nil)
	return o.reload(userID, id)
}

// Delete tears down a deployment best-effort and marks the record terminated.
// Teardown or cleanup failures are swallowed: from the caller's point of view
// deletion always succeeds, and calling it again is harmless.
func (o *Orchestrator) Delete(ctx context.Context, userID, id uuid.UUID) (*domain.Deployment, error) {
	d, err := o.loadOwned(userID, id)
	if err != nil {
		return nil, err
	}

	if d.Metadata.Valid() {
		target := ExecTarget{Namespace: d.Metadata.Namespace, BuildDir: d.Metadata.BuildDir}
		if executor, err := o.registry.Get(d.Platform); err == nil {
			if err := executor.Down(ctx, target, docker.DownOptions{RemoveVolumes: true, RemoveImages: true}); err != nil {
				slog.Warn("Deployment teardown failed, continuing delete",
					"deployment_id", d.ID,
					"error", err)
			}
		}
		if err := os.RemoveAll(d.Metadata.BuildDir); err != nil {
			slog.Warn("Build directory cleanup failed, continuing delete",
				"deployment_id", d.ID,
				"build_dir", d.Metadata.BuildDir,
				"error", err)
		}
	}

	now := time.Now()
	d.Status = domain.DeploymentStatusTerminated
	if d.StoppedAt == nil {
		d.StoppedAt = &now
	}
	if err := o.deployments.Update(d); err != nil {
		return nil, err
	}
	o.appendActivity(d.ID, domain.ActivityDeploymentDeleted, "deployment deleted", nil)
	return o.reload(userID, id)
}

// GetStatus polls live container state and reconciles the stored status with
// it. Executor failures fall back to the last-known stored status; the
// reconciliation never surfaces orchestration errors to this read path.
func (o *Orchestrator) GetStatus(ctx context.Context, userID, id uuid.UUID) (domain.DeploymentStatus, error) {
	d, executor, target, err := o.loadForLifecycle(userID, id)
	if err != nil {
		return domain.DeploymentStatusUnknown, err
	}

	if !reconcilable(d.Status) {
		return d.Status, nil
	}

	ps, err := executor.Ps(ctx, target)
	if err != nil {
		slog.Debug("Status poll failed, returning stored status",
			"deployment_id", d.ID,
			"error", err)
		return d.Status, nil
	}

	derived := deriveStatus(ps)
	if derived != d.Status {
		d.Status = derived
		if err := o.deployments.Update(d); err != nil {
			slog.Error("Failed to persist reconciled status",
				"deployment_id", d.ID,
				"status", derived.String(),
				"error", err)
		}
	}
	return derived, nil
}

// GetLogs returns stored build logs unconditionally and best-effort live
// runtime logs, persisting the latter when the fetch succeeds.
func (o *Orchestrator) GetLogs(ctx context.Context, userID, id uuid.UUID) (*LogsResult, error) {
	d, err := o.loadOwned(userID, id)
	if err != nil {
		return nil, err
	}

	result := &LogsResult{
		BuildLogs:   d.BuildLogs,
		RuntimeLogs: d.RuntimeLogs,
	}

	if !d.Metadata.Valid() {
		return result, nil
	}
	executor, err := o.registry.Get(d.Platform)
	if err != nil {
		return result, nil
	}

	target := ExecTarget{Namespace: d.Metadata.Namespace, BuildDir: d.Metadata.BuildDir}
	live, err := executor.Logs(ctx, target, docker.LogsOptions{})
	if err != nil {
		// No logs is fine: the project may be torn down or never built
		slog.Debug("Runtime log fetch failed, returning stored logs",
			"deployment_id", d.ID,
			"error", err)
		return result, nil
	}

	result.RuntimeLogs = live
	d.RuntimeLogs = live
	if err := o.deployments.Update(d); err != nil {
		slog.Error("Failed to persist runtime logs",
			"deployment_id", d.ID,
			"error", err)
	}
	return result, nil
}

// Get returns a deployment scoped to its owner.
func (o *Orchestrator) Get(userID, id uuid.UUID) (*domain.Deployment, error) {
	return o.loadOwned(userID, id)
}

// List returns the caller's deployments narrowed by filter.
func (o *Orchestrator) List(userID uuid.UUID, filter domain.ListFilter) ([]*domain.Deployment, error) {
	return o.deployments.List(userID, filter)
}

// ActivityLog returns a deployment's audit trail in ascending timestamp order.
func (o *Orchestrator) ActivityLog(userID, id uuid.UUID) ([]*domain.ActivityLogEntry, error) {
	if _, err := o.loadOwned(userID, id); err != nil {
		return nil, err
	}
	return o.activityLog.ListByDeploymentID(id)
}

// Helpers

func (o *Orchestrator) checkSourceFiles(project *domain.Project, configSet *domain.ConfigSet) error {
	filesDir, err := project.FilesDir()
	if err != nil {
		return err
	}
	if _, err := os.Stat(filesDir); err != nil {
		return fmt.Errorf("project source files missing at %s", filesDir)
	}
	for _, name := range []string{docker.ComposeFileName, docker.DockerfileName} {
		if _, err := os.Stat(filepath.Join(configSet.LocalPath, name)); err != nil {
			return fmt.Errorf("config set is missing %s", name)
		}
	}
	return nil
}

func (o *Orchestrator) loadOwned(userID, id uuid.UUID) (*domain.Deployment, error) {
	d, err := o.deployments.FindByID(userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeploymentNotFound
		}
		return nil, err
	}
	return d, nil
}

func (o *Orchestrator) loadForLifecycle(userID, id uuid.UUID) (*domain.Deployment, PlatformExecutor, ExecTarget, error) {
	d, err := o.loadOwned(userID, id)
	if err != nil {
		return nil, nil, ExecTarget{}, err
	}
	if !d.Metadata.Valid() {
		return nil, nil, ExecTarget{}, ErrNoOrchestrationMetadata
	}
	executor, err := o.registry.Get(d.Platform)
	if err != nil {
		return nil, nil, ExecTarget{}, err
	}
	target := ExecTarget{Namespace: d.Metadata.Namespace, BuildDir: d.Metadata.BuildDir}
	return d, executor, target, nil
}

func (o *Orchestrator) reload(userID, id uuid.UUID) (*domain.Deployment, error) {
	return o.deployments.FindByID(userID, id)
}

// failDeployment absorbs an expected failure: mark the record failed, append
// the phase's audit entry, and emit a final error event.
func (o *Orchestrator) failDeployment(
	d *domain.Deployment,
	progress chan<- domain.ProgressEvent,
	action, cause string,
	details map[string]any,
) {
	d.Status = domain.DeploymentStatusFailed
	d.ErrorMessage = cause
	if err := o.deployments.Update(d); err != nil {
		slog.Error("Failed to persist failed status",
			"deployment_id", d.ID,
			"error", err)
	}
	o.appendActivity(d.ID, action, cause, details)
	o.emitProgress(progress, domain.ProgressPhaseError, "failed", cause, nil)
}

// recordUnexpected converts an escaped error into a failed status with a
// deployment_error audit entry.
func (o *Orchestrator) recordUnexpected(d *domain.Deployment, progress chan<- domain.ProgressEvent, err error) {
	slog.Error("Service operation failed",
		"layer", "deployment",
		"operation", "create_deployment",
		"deployment_id", d.ID,
		"error", err)
	d.Status = domain.DeploymentStatusFailed
	d.ErrorMessage = err.Error()
	if updateErr := o.deployments.Update(d); updateErr != nil {
		slog.Error("Failed to persist failed status",
			"deployment_id", d.ID,
			"error", updateErr)
	}
	o.appendActivity(d.ID, domain.ActivityDeploymentError, err.Error(), nil)
	o.emitProgress(progress, domain.ProgressPhaseError, "failed", err.Error(), nil)
}

func (o *Orchestrator) appendActivity(deploymentID uuid.UUID, action, result string, details map[string]any) {
	entry := domain.NewActivityLogEntry(deploymentID, action, result, details)
	if err := o.activityLog.Append(&entry); err != nil {
		slog.Error("Failed to append activity log entry",
			"deployment_id", deploymentID,
			"action", action,
			"error", err)
	}
}

func (o *Orchestrator) emitProgress(
	progress chan<- domain.ProgressEvent,
	phase domain.ProgressPhase,
	status, message string,
	details map[string]string,
) {
	if progress == nil {
		return
	}
	progress <- domain.ProgressEvent{
		Phase:   phase,
		Status:  status,
		Message: message,
		Details: details,
	}
}

// assignURLs derives the deploy URL and per-service URLs from extracted port
// mappings. The first mapping becomes the primary URL.
func (o *Orchestrator) assignURLs(d *domain.Deployment, services []string) {
	if len(d.Ports) == 0 {
		return
	}
	d.DeployURL = fmt.Sprintf("http://localhost:%d", d.Ports[0].Host)

	urls := make(map[string]string)
	if len(services) > 0 {
		urls[services[0]] = d.DeployURL
	}
	d.ServiceURLs = urls
}

func provisionServiceNames(declarations []domain.ServiceDeclaration) []string {
	var names []string
	for _, declaration := range declarations {
		if declaration.SourceMode == domain.SourceModeProvision && declaration.ComposeServiceName != "" {
			names = append(names, declaration.ComposeServiceName)
		}
	}
	return names
}

// reconcilable reports whether live container state may overwrite the stored
// status. In-flight create phases are left alone so a concurrent status poll
// cannot clobber a build in progress.
func reconcilable(status domain.DeploymentStatus) bool {
	switch status {
	case domain.DeploymentStatusRunning, domain.DeploymentStatusStopped, domain.DeploymentStatusFailed:
		return true
	default:
		return false
	}
}

// deriveStatus maps live service states onto a logical deployment status.
func deriveStatus(ps *docker.PsResult) domain.DeploymentStatus {
	if len(ps.Services) == 0 {
		return domain.DeploymentStatusStopped
	}

	running := 0
	restarting := 0
	exited := 0
	for _, service := range ps.Services {
		switch service.Status {
		case "running":
			running++
		case "restarting":
			restarting++
		case "exited":
			exited++
		}
	}

	switch {
	case restarting > 0:
		return domain.DeploymentStatusFailed
	case running == 0:
		return domain.DeploymentStatusStopped
	case running == len(ps.Services):
		return domain.DeploymentStatusRunning
	case running+exited == len(ps.Services):
		// The remaining services exited cleanly alongside running ones
		return domain.DeploymentStatusStopped
	default:
		// A non-running service that did not exit (paused, dead, created)
		// means the stack is wedged, not cleanly stopped
		return domain.DeploymentStatusFailed
	}
}
