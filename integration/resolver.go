// Package integration manages stored credentials and resolves deployment
// environments from them.
package integration

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dxlander/dxlander/repository"
)

// EnvResolver merges integration credentials with config-set overrides into
// the flat environment map a deployment is started with.
type EnvResolver struct {
	configSetRepository   repository.ConfigSetRepository
	integrationRepository repository.IntegrationRepository
}

func NewEnvResolver(
	configSetRepository repository.ConfigSetRepository,
	integrationRepository repository.IntegrationRepository,
) *EnvResolver {
	return &EnvResolver{
		configSetRepository:   configSetRepository,
		integrationRepository: integrationRepository,
	}
}

// Resolve builds the environment for a config set. Credentials from linked
// integrations are applied first, then the config set's own overrides, so an
// override always wins on key collision.
func (r *EnvResolver) Resolve(userID, configSetID uuid.UUID) (map[string]string, error) {
	configSet, err := r.configSetRepository.FindByID(userID, configSetID)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "integration",
			"operation", "resolve_env",
			"config_set_id", configSetID,
			"error", err)
		return nil, fmt.Errorf("failed to load config set: %w", err)
	}

	resolved := make(map[string]string)

	for _, integrationID := range configSet.IntegrationIDs {
		linked, err := r.integrationRepository.FindByID(userID, integrationID)
		if err != nil {
			slog.Error("Service operation failed",
				"layer", "integration",
				"operation", "resolve_env",
				"config_set_id", configSetID,
				"integration_id", integrationID,
				"error", err)
			return nil, fmt.Errorf("failed to load integration %s: %w", integrationID, err)
		}
		for key, value := range linked.Credentials {
			resolved[key] = value
		}
	}

	// Overrides take precedence over integration credentials
	for key, value := range configSet.EnvOverrides {
		resolved[key] = value
	}

	return resolved, nil
}
