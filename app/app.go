// Package app provides the main application context for DXLander, wiring the
// database, repositories, and services together.
package app

import (
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dxlander/dxlander/config"
	"github.com/dxlander/dxlander/db"
	"github.com/dxlander/dxlander/deployment"
	"github.com/dxlander/dxlander/encryption"
	"github.com/dxlander/dxlander/importer"
	"github.com/dxlander/dxlander/integration"
	"github.com/dxlander/dxlander/repository"
	"github.com/dxlander/dxlander/watcher"
)

var (
	// Version is set at build time via -ldflags
	Version = "dev"

	database        *gorm.DB
	appConfig       *config.Config
	importerService *importer.Importer
	orchestrator    *deployment.Orchestrator
	watcherService  *watcher.WatcherService

	projectRepo     repository.ProjectRepository
	configSetRepo   repository.ConfigSetRepository
	integrationRepo repository.IntegrationRepository
	deploymentRepo  repository.DeploymentRepository
	activityLogRepo repository.ActivityLogRepository
)

// InitializeWithConfig initializes the app with a pre-configured Config
func InitializeWithConfig(cfg *config.Config) error {
	var err error

	appConfig = cfg

	// Ensure required directories exist
	for _, dir := range []string{cfg.DataDir, cfg.TmpDir, cfg.BuildsDir, cfg.WorkspaceDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	database, err = db.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}

	encryptionSvc, err := encryption.NewEncryptionService(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	projectRepo = repository.NewProjectRepository(database, encryptionSvc)
	configSetRepo = repository.NewConfigSetRepository(database)
	integrationRepo = repository.NewIntegrationRepository(database, encryptionSvc)
	deploymentRepo = repository.NewDeploymentRepository(database)
	activityLogRepo = repository.NewActivityLogRepository(database)

	importerService = importer.NewImporter(projectRepo, importer.NewGitClient(cfg), cfg)

	envResolver := integration.NewEnvResolver(configSetRepo, integrationRepo)
	registry := deployment.NewDefaultRegistry(cfg)
	orchestrator = deployment.NewOrchestrator(
		deploymentRepo,
		activityLogRepo,
		projectRepo,
		configSetRepo,
		envResolver,
		registry,
		cfg,
	)

	watcherService = watcher.NewWatcherService(deploymentRepo, orchestrator, cfg.PollInterval)
	return nil
}

// LocalUserID is the deterministic identity CLI commands act as. The HTTP API
// scopes data per caller; the CLI always operates on this single local user.
func LocalUserID() uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("dxlander://local-user"))
}

func GetConfig() *config.Config {
	return appConfig
}

func GetImporter() *importer.Importer {
	return importerService
}

func GetOrchestrator() *deployment.Orchestrator {
	return orchestrator
}

func GetWatcher() *watcher.WatcherService {
	return watcherService
}

func GetConfigSetRepository() repository.ConfigSetRepository {
	return configSetRepo
}

func GetIntegrationRepository() repository.IntegrationRepository {
	return integrationRepo
}
