package integration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dxlander/dxlander/db"
	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/encryption"
	"github.com/dxlander/dxlander/repository"
)

type resolverFixture struct {
	resolver        *EnvResolver
	configSets      repository.ConfigSetRepository
	integrations    repository.IntegrationRepository
	userID          uuid.UUID
	projectID       uuid.UUID
}

func setupResolver(t *testing.T) *resolverFixture {
	t.Helper()

	database, err := db.InitDatabase(db.DBConfig{Path: ":memory:", LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateAll(database))

	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	encryptionSvc, err := encryption.NewEncryptionService(key)
	require.NoError(t, err)

	configSets := repository.NewConfigSetRepository(database)
	integrations := repository.NewIntegrationRepository(database, encryptionSvc)

	return &resolverFixture{
		resolver:     NewEnvResolver(configSets, integrations),
		configSets:   configSets,
		integrations: integrations,
		userID:       uuid.New(),
		projectID:    uuid.New(),
	}
}

func (f *resolverFixture) createIntegration(t *testing.T, name string, credentials map[string]string) uuid.UUID {
	t.Helper()
	integration := &domain.Integration{
		ID:          uuid.New(),
		UserID:      f.userID,
		Name:        name,
		Provider:    name,
		Credentials: credentials,
	}
	_, err := f.integrations.Create(integration)
	require.NoError(t, err)
	return integration.ID
}

func (f *resolverFixture) createConfigSet(t *testing.T, overrides map[string]string, integrationIDs ...uuid.UUID) uuid.UUID {
	t.Helper()
	configSet := &domain.ConfigSet{
		ID:             uuid.New(),
		UserID:         f.userID,
		ProjectID:      f.projectID,
		Name:           "default",
		LocalPath:      "/data/configs/default",
		EnvOverrides:   overrides,
		IntegrationIDs: integrationIDs,
	}
	_, err := f.configSets.Create(configSet)
	require.NoError(t, err)
	return configSet.ID
}

func TestEnvResolver_MergesCredentialsAndOverrides(t *testing.T) {
	f := setupResolver(t)

	integrationID := f.createIntegration(t, "postgres", map[string]string{
		"DATABASE_URL": "postgres://internal",
		"DB_PORT":      "5432",
	})
	configSetID := f.createConfigSet(t, map[string]string{"APP_PORT": "8080"}, integrationID)

	resolved, err := f.resolver.Resolve(f.userID, configSetID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"DATABASE_URL": "postgres://internal",
		"DB_PORT":      "5432",
		"APP_PORT":     "8080",
	}, resolved)
}

func TestEnvResolver_OverrideWinsOnCollision(t *testing.T) {
	f := setupResolver(t)

	integrationID := f.createIntegration(t, "postgres", map[string]string{
		"DATABASE_URL": "postgres://integration-value",
	})
	configSetID := f.createConfigSet(t, map[string]string{
		"DATABASE_URL": "postgres://override-value",
	}, integrationID)

	resolved, err := f.resolver.Resolve(f.userID, configSetID)
	require.NoError(t, err)
	assert.Equal(t, "postgres://override-value", resolved["DATABASE_URL"])
}

func TestEnvResolver_NoIntegrations(t *testing.T) {
	f := setupResolver(t)

	configSetID := f.createConfigSet(t, map[string]string{"ONLY": "override"})

	resolved, err := f.resolver.Resolve(f.userID, configSetID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ONLY": "override"}, resolved)
}

func TestEnvResolver_ConfigSetNotFound(t *testing.T) {
	f := setupResolver(t)

	_, err := f.resolver.Resolve(f.userID, uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEnvResolver_ForeignUserDenied(t *testing.T) {
	f := setupResolver(t)

	configSetID := f.createConfigSet(t, map[string]string{"X": "1"})

	_, err := f.resolver.Resolve(uuid.New(), configSetID)
	assert.Error(t, err)
}
