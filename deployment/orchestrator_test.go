package deployment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/dxlander/dxlander/config"
	"github.com/dxlander/dxlander/db"
	"github.com/dxlander/dxlander/docker"
	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/encryption"
	"github.com/dxlander/dxlander/repository"
)

const testComposeFile = `services:
  app:
    build: .
    depends_on:
      - db
      - cache
  db:
    image: postgres:16
    volumes:
      - db-data:/var/lib/postgresql/data
  cache:
    image: redis:7
volumes:
  db-data:
`

type mockExecutor struct {
	preFlightFunc func(target ExecTarget, provisionServices []string) *docker.PreFlightResult
	upFunc        func(target ExecTarget, outputChan chan<- docker.StreamMessage) *docker.UpResult
	startFunc     func(target ExecTarget) *docker.OpResult
	stopFunc      func(target ExecTarget) *docker.OpResult
	restartFunc   func(target ExecTarget) *docker.OpResult
	downFunc      func(target ExecTarget, opts docker.DownOptions) error
	psFunc        func(target ExecTarget) (*docker.PsResult, error)
	logsFunc      func(target ExecTarget, opts docker.LogsOptions) (string, error)

	upCalls   int
	downCalls int
}

func (m *mockExecutor) RunPreFlightChecks(_ context.Context, target ExecTarget, provisionServices []string) *docker.PreFlightResult {
	if m.preFlightFunc != nil {
		return m.preFlightFunc(target, provisionServices)
	}
	return &docker.PreFlightResult{
		Passed: true,
		Checks: []docker.PreFlightCheck{{Name: "compose_syntax", Status: docker.CheckStatusPassed}},
	}
}

func (m *mockExecutor) Up(_ context.Context, target ExecTarget, outputChan chan<- docker.StreamMessage) *docker.UpResult {
	m.upCalls++
	if m.upFunc != nil {
		return m.upFunc(target, outputChan)
	}
	return &docker.UpResult{
		Success:  true,
		Services: []string{"app", "cache"},
		Logs:     "build output",
	}
}

func (m *mockExecutor) Start(_ context.Context, target ExecTarget) *docker.OpResult {
	if m.startFunc != nil {
		return m.startFunc(target)
	}
	return &docker.OpResult{Success: true}
}

func (m *mockExecutor) Stop(_ context.Context, target ExecTarget) *docker.OpResult {
	if m.stopFunc != nil {
		return m.stopFunc(target)
	}
	return &docker.OpResult{Success: true}
}

func (m *mockExecutor) Restart(_ context.Context, target ExecTarget) *docker.OpResult {
	if m.restartFunc != nil {
		return m.restartFunc(target)
	}
	return &docker.OpResult{Success: true}
}

func (m *mockExecutor) Down(_ context.Context, target ExecTarget, opts docker.DownOptions) error {
	m.downCalls++
	if m.downFunc != nil {
		return m.downFunc(target, opts)
	}
	return nil
}

func (m *mockExecutor) Ps(_ context.Context, target ExecTarget) (*docker.PsResult, error) {
	if m.psFunc != nil {
		return m.psFunc(target)
	}
	return &docker.PsResult{Running: true, Services: []docker.ServiceState{{Name: "app", Status: "running"}}}, nil
}

func (m *mockExecutor) Logs(_ context.Context, target ExecTarget, opts docker.LogsOptions) (string, error) {
	if m.logsFunc != nil {
		return m.logsFunc(target, opts)
	}
	return "runtime output", nil
}

type envSourceStub struct {
	vars map[string]string
	err  error
}

func (s *envSourceStub) Resolve(_, _ uuid.UUID) (map[string]string, error) {
	return s.vars, s.err
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	executor     *mockExecutor
	envSource    *envSourceStub
	deployments  repository.DeploymentRepository
	activityLog  repository.ActivityLogRepository
	userID       uuid.UUID
	projectID    uuid.UUID
	configSetID  uuid.UUID
	buildsDir    string
}

func setupOrchestrator(t *testing.T) *orchestratorFixture {
	t.Helper()

	database, err := db.InitDatabase(db.DBConfig{Path: ":memory:", LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateAll(database))

	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	encryptionSvc, err := encryption.NewEncryptionService(key)
	require.NoError(t, err)

	projects := repository.NewProjectRepository(database, encryptionSvc)
	configSets := repository.NewConfigSetRepository(database)
	deployments := repository.NewDeploymentRepository(database)
	activityLog := repository.NewActivityLogRepository(database)

	userID := uuid.New()

	workingDir := t.TempDir()
	filesDir := filepath.Join(workingDir, domain.FilesDir)
	require.NoError(t, os.MkdirAll(filesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(filesDir, "main.go"), []byte("package main\n"), 0o644))

	project := domain.NewProject(userID, "demo-app", "https://example.com/demo.git")
	project.WorkingDir = workingDir
	_, err = projects.Create(&project)
	require.NoError(t, err)

	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, docker.ComposeFileName), []byte(testComposeFile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, docker.DockerfileName), []byte("FROM alpine\nEXPOSE 8080\n"), 0o644))

	configSet := domain.ConfigSet{
		ID:        uuid.New(),
		UserID:    userID,
		ProjectID: project.ID,
		Name:      "default",
		LocalPath: configDir,
		Services: []domain.ServiceDeclaration{
			{Name: "app", ComposeServiceName: "app", SourceMode: domain.SourceModeProvision},
			{Name: "db", ComposeServiceName: "db", SourceMode: domain.SourceModeExternal},
			{Name: "cache", ComposeServiceName: "cache", SourceMode: domain.SourceModeProvision},
		},
	}
	_, err = configSets.Create(&configSet)
	require.NoError(t, err)

	executor := &mockExecutor{}
	registry := NewRegistry()
	registry.Register(domain.PlatformDockerCompose, executor)

	envSource := &envSourceStub{vars: map[string]string{"APP_PORT": "8080", "LOG_LEVEL": "debug"}}

	buildsDir := t.TempDir()
	cfg := &config.Config{BuildsDir: buildsDir}

	return &orchestratorFixture{
		orchestrator: NewOrchestrator(deployments, activityLog, projects, configSets, envSource, registry, cfg),
		executor:     executor,
		envSource:    envSource,
		deployments:  deployments,
		activityLog:  activityLog,
		userID:       userID,
		projectID:    project.ID,
		configSetID:  configSet.ID,
		buildsDir:    buildsDir,
	}
}

func (f *orchestratorFixture) createRequest() CreateRequest {
	return CreateRequest{
		UserID:      f.userID,
		ProjectID:   f.projectID,
		ConfigSetID: f.configSetID,
		Platform:    domain.PlatformDockerCompose,
		Name:        "Demo App",
		Environment: "development",
	}
}

func (f *orchestratorFixture) activityActions(t *testing.T, deploymentID uuid.UUID) []string {
	t.Helper()
	entries, err := f.activityLog.ListByDeploymentID(deploymentID)
	require.NoError(t, err)
	actions := make([]string, len(entries))
	for i, entry := range entries {
		actions[i] = entry.Action
	}
	return actions
}

func TestCreateDeployment_Success(t *testing.T) {
	f := setupOrchestrator(t)

	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, domain.DeploymentStatusRunning, d.Status)
	assert.Equal(t, 1, f.executor.upCalls)
	assert.Equal(t, "build output", d.BuildLogs)
	assert.NotNil(t, d.StartedAt)
	assert.NotNil(t, d.CompletedAt)

	require.True(t, d.Metadata.Valid())
	assert.Contains(t, d.Metadata.Namespace, "demo-app")
	assert.Equal(t, []string{"app", "cache"}, d.Metadata.Services)

	require.Len(t, d.Ports, 1)
	assert.Equal(t, 8080, d.Ports[0].Host)
	assert.Equal(t, "http://localhost:8080", d.DeployURL)

	actions := f.activityActions(t, d.ID)
	assert.Equal(t, []string{
		domain.ActivityDeploymentStarted,
		domain.ActivityPreFlightComplete,
		domain.ActivityComposeTransformed,
		domain.ActivityEnvResolved,
		domain.ActivityBuildStarted,
		domain.ActivityDeploymentComplete,
	}, actions)
}

func TestCreateDeployment_RewritesComposeFile(t *testing.T) {
	f := setupOrchestrator(t)

	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)
	require.Equal(t, domain.DeploymentStatusRunning, d.Status)

	staged, err := os.ReadFile(filepath.Join(d.Metadata.BuildDir, docker.ComposeFileName))
	require.NoError(t, err)
	content := string(staged)

	assert.NotContains(t, content, "postgres:16")
	assert.NotContains(t, content, "- db\n")
	assert.NotContains(t, content, "db-data")
	assert.Contains(t, content, "- cache")
	assert.Contains(t, content, "app:")

	entries, err := f.activityLog.ListByDeploymentID(d.ID)
	require.NoError(t, err)
	var transformed *domain.ActivityLogEntry
	for _, entry := range entries {
		if entry.Action == domain.ActivityComposeTransformed {
			transformed = entry
		}
	}
	require.NotNil(t, transformed)
	assert.Equal(t, []any{"db"}, transformed.Details["removed_services"])
}

func TestCreateDeployment_StreamsProgress(t *testing.T) {
	f := setupOrchestrator(t)
	f.executor.upFunc = func(_ ExecTarget, outputChan chan<- docker.StreamMessage) *docker.UpResult {
		if outputChan != nil {
			outputChan <- docker.StreamMessage{Type: "progress", Message: "Step 1/4 : FROM alpine"}
		}
		return &docker.UpResult{Success: true, Services: []string{"app"}, Logs: "ok"}
	}

	progress := make(chan domain.ProgressEvent, 32)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), progress)
	require.NoError(t, err)
	close(progress)

	assert.Equal(t, domain.DeploymentStatusRunning, d.Status)

	var phases []domain.ProgressPhase
	var messages []string
	for event := range progress {
		phases = append(phases, event.Phase)
		messages = append(messages, event.Message)
	}
	assert.Contains(t, phases, domain.ProgressPhasePreFlight)
	assert.Contains(t, phases, domain.ProgressPhaseBuild)
	assert.Contains(t, messages, "Step 1/4 : FROM alpine")
	assert.Equal(t, domain.ProgressPhaseComplete, phases[len(phases)-1])
}

func TestCreateDeployment_PreFlightFailureSkipsBuild(t *testing.T) {
	f := setupOrchestrator(t)
	f.executor.preFlightFunc = func(_ ExecTarget, _ []string) *docker.PreFlightResult {
		return &docker.PreFlightResult{
			Passed: false,
			Checks: []docker.PreFlightCheck{
				{Name: "compose_syntax", Status: docker.CheckStatusFailed, Message: "services section is empty"},
			},
		}
	}

	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.DeploymentStatusFailed, d.Status)
	assert.Contains(t, d.ErrorMessage, "services section is empty")
	assert.Equal(t, 0, f.executor.upCalls)

	actions := f.activityActions(t, d.ID)
	assert.Equal(t, []string{
		domain.ActivityDeploymentStarted,
		domain.ActivityPreFlightFailed,
	}, actions)
}

func TestCreateDeployment_ProvisionServicesPassedToPreFlight(t *testing.T) {
	f := setupOrchestrator(t)
	var got []string
	f.executor.preFlightFunc = func(_ ExecTarget, provisionServices []string) *docker.PreFlightResult {
		got = provisionServices
		return &docker.PreFlightResult{Passed: true}
	}

	_, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "cache"}, got)
}

func TestCreateDeployment_EnvValidationFailure(t *testing.T) {
	f := setupOrchestrator(t)
	f.envSource.vars = map[string]string{"BAD NAME": "x", "GOOD": "y"}

	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.DeploymentStatusFailed, d.Status)
	assert.Contains(t, d.ErrorMessage, "contains a space")
	assert.Equal(t, 0, f.executor.upCalls)
	assert.Contains(t, f.activityActions(t, d.ID), domain.ActivityEnvInvalid)
}

func TestCreateDeployment_BuildFailurePersistsLogs(t *testing.T) {
	f := setupOrchestrator(t)
	f.executor.upFunc = func(_ ExecTarget, _ chan<- docker.StreamMessage) *docker.UpResult {
		return &docker.UpResult{
			Success:      false,
			ErrorMessage: "exit status 1",
			Logs:         "Step 3/4 : RUN make\nmake: *** [build] Error 1",
		}
	}

	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.DeploymentStatusFailed, d.Status)
	assert.Equal(t, "exit status 1", d.ErrorMessage)
	assert.Contains(t, d.BuildLogs, "Error 1")
	assert.Contains(t, f.activityActions(t, d.ID), domain.ActivityDeploymentFailed)
}

func TestCreateDeployment_ConfigSetNotFound(t *testing.T) {
	f := setupOrchestrator(t)
	req := f.createRequest()
	req.ConfigSetID = uuid.New()

	_, err := f.orchestrator.CreateDeployment(context.Background(), req, nil)
	require.Error(t, err)

	// No orphan record when input validation fails
	list, listErr := f.orchestrator.List(f.userID, domain.ListFilter{})
	require.NoError(t, listErr)
	assert.Empty(t, list)
}

func TestCreateDeployment_UnsupportedPlatform(t *testing.T) {
	f := setupOrchestrator(t)
	req := f.createRequest()
	req.Platform = domain.Platform("kubernetes")

	_, err := f.orchestrator.CreateDeployment(context.Background(), req, nil)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestDelete_Idempotent(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	deleted, err := f.orchestrator.Delete(context.Background(), f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusTerminated, deleted.Status)
	assert.NotNil(t, deleted.StoppedAt)
	assert.NoDirExists(t, d.Metadata.BuildDir)

	// Deleting again succeeds without changing the outcome
	again, err := f.orchestrator.Delete(context.Background(), f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusTerminated, again.Status)
	assert.Equal(t, 2, f.executor.downCalls)
}

func TestDelete_TeardownFailureStillTerminates(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	f.executor.downFunc = func(_ ExecTarget, _ docker.DownOptions) error {
		return assert.AnError
	}

	deleted, err := f.orchestrator.Delete(context.Background(), f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusTerminated, deleted.Status)
}

func TestDelete_NotFound(t *testing.T) {
	f := setupOrchestrator(t)

	_, err := f.orchestrator.Delete(context.Background(), f.userID, uuid.New())
	assert.ErrorIs(t, err, ErrDeploymentNotFound)
}

func TestLifecycle_ForeignUserDenied(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	_, err = f.orchestrator.Stop(context.Background(), uuid.New(), d.ID)
	assert.ErrorIs(t, err, ErrDeploymentNotFound)
}

func TestLifecycle_MissingMetadataFailsFast(t *testing.T) {
	f := setupOrchestrator(t)

	// A record without orchestration metadata can exist (legacy schema or a
	// create that never reached staging); lifecycle operations must refuse it.
	d := domain.NewDeployment(f.userID, f.projectID, f.configSetID, domain.PlatformDockerCompose, "legacy", "development")
	d.Status = domain.DeploymentStatusRunning
	d.Metadata = nil
	require.NoError(t, f.deployments.Create(&d))

	_, err := f.orchestrator.Start(context.Background(), f.userID, d.ID)
	assert.ErrorIs(t, err, ErrNoOrchestrationMetadata)

	_, err = f.orchestrator.Stop(context.Background(), f.userID, d.ID)
	assert.ErrorIs(t, err, ErrNoOrchestrationMetadata)

	_, err = f.orchestrator.GetStatus(context.Background(), f.userID, d.ID)
	assert.ErrorIs(t, err, ErrNoOrchestrationMetadata)
}

func TestStopAndStart(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	stopped, err := f.orchestrator.Stop(context.Background(), f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusStopped, stopped.Status)
	assert.NotNil(t, stopped.StoppedAt)

	started, err := f.orchestrator.Start(context.Background(), f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusRunning, started.Status)

	actions := f.activityActions(t, d.ID)
	assert.Contains(t, actions, domain.ActivityDeploymentStopped)
	assert.Contains(t, actions, domain.ActivityDeploymentResumed)
}

func TestStop_ExecutorFailure(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	f.executor.stopFunc = func(_ ExecTarget) *docker.OpResult {
		return &docker.OpResult{Success: false, ErrorMessage: "no such project"}
	}

	_, err = f.orchestrator.Stop(context.Background(), f.userID, d.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such project")

	// Status untouched on a failed lifecycle operation
	current, err := f.orchestrator.Get(f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusRunning, current.Status)
}

func TestGetStatus_Reconciliation(t *testing.T) {
	tests := []struct {
		name     string
		services []docker.ServiceState
		want     domain.DeploymentStatus
	}{
		{
			name:     "all running",
			services: []docker.ServiceState{{Name: "app", Status: "running"}, {Name: "cache", Status: "running"}},
			want:     domain.DeploymentStatusRunning,
		},
		{
			name:     "all exited",
			services: []docker.ServiceState{{Name: "app", Status: "exited"}},
			want:     domain.DeploymentStatusStopped,
		},
		{
			name:     "restart loop",
			services: []docker.ServiceState{{Name: "app", Status: "restarting"}},
			want:     domain.DeploymentStatusFailed,
		},
		{
			name:     "no services",
			services: nil,
			want:     domain.DeploymentStatusStopped,
		},
		{
			name:     "partial exit",
			services: []docker.ServiceState{{Name: "app", Status: "running"}, {Name: "cache", Status: "exited"}},
			want:     domain.DeploymentStatusStopped,
		},
		{
			name:     "partial with paused service",
			services: []docker.ServiceState{{Name: "app", Status: "running"}, {Name: "cache", Status: "paused"}},
			want:     domain.DeploymentStatusFailed,
		},
		{
			name:     "partial with dead service",
			services: []docker.ServiceState{{Name: "app", Status: "running"}, {Name: "cache", Status: "dead"}},
			want:     domain.DeploymentStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupOrchestrator(t)
			d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
			require.NoError(t, err)

			f.executor.psFunc = func(_ ExecTarget) (*docker.PsResult, error) {
				return &docker.PsResult{Services: tt.services}, nil
			}

			status, err := f.orchestrator.GetStatus(context.Background(), f.userID, d.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)

			// The derived status is persisted
			current, err := f.orchestrator.Get(f.userID, d.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, current.Status)
		})
	}
}

func TestGetStatus_PollFailureKeepsStoredStatus(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	f.executor.psFunc = func(_ ExecTarget) (*docker.PsResult, error) {
		return nil, assert.AnError
	}

	status, err := f.orchestrator.GetStatus(context.Background(), f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusRunning, status)
}

func TestGetStatus_TerminalStatusNotReconciled(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)
	_, err = f.orchestrator.Delete(context.Background(), f.userID, d.ID)
	require.NoError(t, err)

	f.executor.psFunc = func(_ ExecTarget) (*docker.PsResult, error) {
		t.Fatal("terminated deployments must not be polled")
		return nil, nil
	}

	status, err := f.orchestrator.GetStatus(context.Background(), f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusTerminated, status)
}

func TestGetLogs(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	logs, err := f.orchestrator.GetLogs(context.Background(), f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "build output", logs.BuildLogs)
	assert.Equal(t, "runtime output", logs.RuntimeLogs)

	// Runtime logs are persisted once fetched
	current, err := f.orchestrator.Get(f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "runtime output", current.RuntimeLogs)
}

func TestGetLogs_RuntimeFetchFailureReturnsBuildLogs(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	f.executor.logsFunc = func(_ ExecTarget, _ docker.LogsOptions) (string, error) {
		return "", docker.ErrProjectNotFound
	}

	logs, err := f.orchestrator.GetLogs(context.Background(), f.userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "build output", logs.BuildLogs)
}

func TestActivityLog_OwnershipEnforced(t *testing.T) {
	f := setupOrchestrator(t)
	d, err := f.orchestrator.CreateDeployment(context.Background(), f.createRequest(), nil)
	require.NoError(t, err)

	_, err = f.orchestrator.ActivityLog(uuid.New(), d.ID)
	assert.ErrorIs(t, err, ErrDeploymentNotFound)

	entries, err := f.orchestrator.ActivityLog(f.userID, d.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
