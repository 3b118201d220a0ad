package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dxlander/dxlander/db"
	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/encryption"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.InitDatabase(db.DBConfig{
		Path:     ":memory:",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateAll(database))
	return database
}

func newEncryptionService(t *testing.T) *encryption.EncryptionService {
	t.Helper()
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	svc, err := encryption.NewEncryptionService(key)
	require.NoError(t, err)
	return svc
}

func TestDeploymentRepository_CreateAndFind(t *testing.T) {
	database := setupTestDB(t)
	repo := NewDeploymentRepository(database)

	userID := uuid.New()
	deployment := domain.NewDeployment(
		userID, uuid.New(), uuid.New(),
		domain.PlatformDockerCompose, "My App", "development")
	deployment.Ports = []domain.PortMapping{{Host: 8080, Container: 8080, Protocol: "tcp"}}
	deployment.ServiceURLs = map[string]string{"app": "http://localhost:8080"}

	require.NoError(t, repo.Create(&deployment))

	found, err := repo.FindByID(userID, deployment.ID)
	require.NoError(t, err)
	assert.Equal(t, deployment.ID, found.ID)
	assert.Equal(t, domain.DeploymentStatusPending, found.Status)
	assert.Equal(t, "development", found.Environment)
	require.NotNil(t, found.Metadata)
	assert.Equal(t, deployment.Metadata.Namespace, found.Metadata.Namespace)
	require.Len(t, found.Ports, 1)
	assert.Equal(t, 8080, found.Ports[0].Host)
	assert.Equal(t, "http://localhost:8080", found.ServiceURLs["app"])
}

func TestDeploymentRepository_FindScopedToUser(t *testing.T) {
	database := setupTestDB(t)
	repo := NewDeploymentRepository(database)

	owner := uuid.New()
	deployment := domain.NewDeployment(
		owner, uuid.New(), uuid.New(),
		domain.PlatformDockerCompose, "private", "production")
	require.NoError(t, repo.Create(&deployment))

	// Another user cannot see the deployment
	_, err := repo.FindByID(uuid.New(), deployment.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeploymentRepository_Update(t *testing.T) {
	database := setupTestDB(t)
	repo := NewDeploymentRepository(database)

	userID := uuid.New()
	deployment := domain.NewDeployment(
		userID, uuid.New(), uuid.New(),
		domain.PlatformDockerCompose, "app", "development")
	require.NoError(t, repo.Create(&deployment))

	now := time.Now()
	deployment.Status = domain.DeploymentStatusRunning
	deployment.StartedAt = &now
	deployment.Metadata.BuildDir = "/data/builds/app-12345678"
	deployment.Metadata.Services = []string{"app", "database"}
	require.NoError(t, repo.Update(&deployment))

	found, err := repo.FindByID(userID, deployment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusRunning, found.Status)
	assert.NotNil(t, found.StartedAt)
	require.NotNil(t, found.Metadata)
	assert.Equal(t, "/data/builds/app-12345678", found.Metadata.BuildDir)
	assert.Equal(t, []string{"app", "database"}, found.Metadata.Services)
}

func TestDeploymentRepository_ListFilters(t *testing.T) {
	database := setupTestDB(t)
	repo := NewDeploymentRepository(database)

	userID := uuid.New()
	projectA := uuid.New()
	projectB := uuid.New()

	d1 := domain.NewDeployment(userID, projectA, uuid.New(), domain.PlatformDockerCompose, "a1", "development")
	require.NoError(t, repo.Create(&d1))

	d2 := domain.NewDeployment(userID, projectA, uuid.New(), domain.PlatformDockerCompose, "a2", "development")
	d2.Status = domain.DeploymentStatusRunning
	require.NoError(t, repo.Create(&d2))

	d3 := domain.NewDeployment(userID, projectB, uuid.New(), domain.PlatformDockerCompose, "b1", "development")
	require.NoError(t, repo.Create(&d3))

	all, err := repo.List(userID, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byProject, err := repo.List(userID, domain.ListFilter{ProjectID: projectA})
	require.NoError(t, err)
	assert.Len(t, byProject, 2)

	byStatus, err := repo.List(userID, domain.ListFilter{Status: domain.DeploymentStatusRunning})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, d2.ID, byStatus[0].ID)

	limited, err := repo.List(userID, domain.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// Other users see nothing
	other, err := repo.List(uuid.New(), domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDeploymentRepository_NilMetadataPersists(t *testing.T) {
	database := setupTestDB(t)
	repo := NewDeploymentRepository(database)

	userID := uuid.New()
	deployment := domain.NewDeployment(
		userID, uuid.New(), uuid.New(),
		domain.PlatformDockerCompose, "legacy", "development")
	deployment.Metadata = nil
	require.NoError(t, repo.Create(&deployment))

	found, err := repo.FindByID(userID, deployment.ID)
	require.NoError(t, err)
	assert.Nil(t, found.Metadata)
	assert.False(t, found.Metadata.Valid())
}

func TestActivityLogRepository_AppendAndList(t *testing.T) {
	database := setupTestDB(t)
	repo := NewActivityLogRepository(database)

	deploymentID := uuid.New()

	first := domain.NewActivityLogEntry(deploymentID, domain.ActivityDeploymentStarted, "deployment created", nil)
	first.CreatedAt = time.Now().Add(-2 * time.Second)
	require.NoError(t, repo.Append(&first))

	second := domain.NewActivityLogEntry(deploymentID, domain.ActivityPreFlightComplete, "all checks passed",
		map[string]any{"checks": float64(3)})
	second.CreatedAt = time.Now().Add(-1 * time.Second)
	require.NoError(t, repo.Append(&second))

	// Entry for an unrelated deployment must not leak in
	other := domain.NewActivityLogEntry(uuid.New(), domain.ActivityDeploymentStarted, "other", nil)
	require.NoError(t, repo.Append(&other))

	entries, err := repo.ListByDeploymentID(deploymentID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Ascending timestamp order
	assert.Equal(t, domain.ActivityDeploymentStarted, entries[0].Action)
	assert.Equal(t, domain.ActivityPreFlightComplete, entries[1].Action)
	assert.Equal(t, float64(3), entries[1].Details["checks"])
}

func TestIntegrationRepository_CredentialsEncryptedAtRest(t *testing.T) {
	database := setupTestDB(t)
	encryptionSvc := newEncryptionService(t)
	repo := NewIntegrationRepository(database, encryptionSvc)

	userID := uuid.New()
	integration := &domain.Integration{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     "stripe",
		Provider: "stripe",
		Credentials: map[string]string{
			"STRIPE_API_KEY": "sk_test_123",
		},
	}

	_, err := repo.Create(integration)
	require.NoError(t, err)

	// Raw row must not contain the plaintext secret
	var raw db.IntegrationModel
	require.NoError(t, database.First(&raw, integration.ID).Error)
	assert.NotContains(t, raw.Credentials, "sk_test_123")

	// Round trip restores the plaintext
	found, err := repo.FindByID(userID, integration.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk_test_123", found.Credentials["STRIPE_API_KEY"])
}

func TestConfigSetRepository_RoundTrip(t *testing.T) {
	database := setupTestDB(t)
	repo := NewConfigSetRepository(database)

	userID := uuid.New()
	integrationID := uuid.New()
	configSet := &domain.ConfigSet{
		ID:        uuid.New(),
		UserID:    userID,
		ProjectID: uuid.New(),
		Name:      "default",
		LocalPath: "/data/configs/default",
		Services: []domain.ServiceDeclaration{
			{Name: "database", ComposeServiceName: "postgres", SourceMode: domain.SourceModeExternal,
				RequiredEnvVars: []string{"DATABASE_URL"}},
		},
		EnvOverrides:   map[string]string{"APP_PORT": "8080"},
		IntegrationIDs: []uuid.UUID{integrationID},
	}

	_, err := repo.Create(configSet)
	require.NoError(t, err)

	found, err := repo.FindByID(userID, configSet.ID)
	require.NoError(t, err)
	require.Len(t, found.Services, 1)
	assert.Equal(t, domain.SourceModeExternal, found.Services[0].SourceMode)
	assert.Equal(t, "8080", found.EnvOverrides["APP_PORT"])
	require.Len(t, found.IntegrationIDs, 1)
	assert.Equal(t, integrationID, found.IntegrationIDs[0])
}

func TestProjectRepository_GitAuthRoundTrip(t *testing.T) {
	database := setupTestDB(t)
	encryptionSvc := newEncryptionService(t)
	repo := NewProjectRepository(database, encryptionSvc)

	userID := uuid.New()
	project := domain.NewProject(userID, "demo", "https://github.com/example/demo.git")
	project.GitBranch = "main"
	project.WorkingDir = "/data/projects/demo"
	project.GitAuth = &domain.GitAuthConfig{
		HTTPAuth: &domain.GitHTTPAuthConfig{Username: "token", Password: "ghp_secret"},
	}

	_, err := repo.Create(&project)
	require.NoError(t, err)

	// Raw row must not contain the plaintext token
	var raw db.ProjectModel
	require.NoError(t, database.First(&raw, project.ID).Error)
	require.NotNil(t, raw.GitAuthCredentials)
	assert.NotContains(t, *raw.GitAuthCredentials, "ghp_secret")

	found, err := repo.FindByID(userID, project.ID)
	require.NoError(t, err)
	require.NotNil(t, found.GitAuth)
	require.NotNil(t, found.GitAuth.HTTPAuth)
	assert.Equal(t, "ghp_secret", found.GitAuth.HTTPAuth.Password)
}
