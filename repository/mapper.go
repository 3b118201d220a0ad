// Package repository provides the data access layer for projects, config sets,
// integrations, deployments, and the activity log.
package repository

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dxlander/dxlander/db"
	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/encryption"
)

type ProjectMapper struct {
	encryption *encryption.EncryptionService
}

func NewProjectMapper(encryptionSvc *encryption.EncryptionService) *ProjectMapper {
	return &ProjectMapper{encryption: encryptionSvc}
}

func (m *ProjectMapper) ToDomain(p *db.ProjectModel) *domain.Project {
	// Decrypt authentication data if present
	var gitAuth *domain.GitAuthConfig
	if p.GitAuthType != nil && p.GitAuthCredentials != nil && m.encryption != nil {
		decryptedAuth, err := m.encryption.DecryptGitAuthConfig(*p.GitAuthType, *p.GitAuthCredentials)
		if err != nil {
			// Log error but don't fail - project should still be usable
			// This could happen if encryption key changed
			slog.Error("Failed to decrypt Git authentication",
				"project_id", p.ID,
				"project_name", p.Name,
				"auth_type", *p.GitAuthType,
				"error", err)
			gitAuth = nil
		} else {
			gitAuth = decryptedAuth
		}
	}

	return &domain.Project{
		ID:         p.ID,
		UserID:     p.UserID,
		Name:       p.Name,
		GitURL:     p.GitURL,
		GitBranch:  p.GitBranch,
		GitAuth:    gitAuth,
		WorkingDir: p.WorkingDir,
		LastCommit: p.LastCommit,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (m *ProjectMapper) ToModel(p *domain.Project) *db.ProjectModel {
	modelObj := &db.ProjectModel{
		BaseModel: db.BaseModel{
			ID:        p.ID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		UserID:     p.UserID,
		Name:       p.Name,
		GitURL:     p.GitURL,
		GitBranch:  p.GitBranch,
		WorkingDir: p.WorkingDir,
		LastCommit: p.LastCommit,
	}

	// Encrypt authentication data if present
	if p.GitAuth != nil && m.encryption != nil {
		authType, encryptedCredentials, err := m.encryption.EncryptGitAuthConfig(p.GitAuth)
		if err != nil {
			slog.Error("Failed to encrypt Git authentication",
				"project_id", p.ID,
				"project_name", p.Name,
				"error", err)
			return modelObj
		}

		if authType != "" && encryptedCredentials != "" {
			modelObj.GitAuthType = &authType
			modelObj.GitAuthCredentials = &encryptedCredentials
		}
	}

	return modelObj
}

type ConfigSetMapper struct{}

func (m *ConfigSetMapper) ToDomain(c *db.ConfigSetModel) *domain.ConfigSet {
	return &domain.ConfigSet{
		ID:             c.ID,
		UserID:         c.UserID,
		ProjectID:      c.ProjectID,
		Name:           c.Name,
		LocalPath:      c.LocalPath,
		Services:       unmarshalJSON[[]domain.ServiceDeclaration](c.Services, "config_set_services"),
		EnvOverrides:   unmarshalJSON[map[string]string](c.EnvOverrides, "config_set_env_overrides"),
		IntegrationIDs: unmarshalJSON[[]uuid.UUID](c.IntegrationIDs, "config_set_integration_ids"),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (m *ConfigSetMapper) ToModel(c *domain.ConfigSet) *db.ConfigSetModel {
	return &db.ConfigSetModel{
		BaseModel: db.BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		UserID:         c.UserID,
		ProjectID:      c.ProjectID,
		Name:           c.Name,
		LocalPath:      c.LocalPath,
		Services:       marshalJSON(c.Services, "[]"),
		EnvOverrides:   marshalJSON(c.EnvOverrides, "{}"),
		IntegrationIDs: marshalJSON(c.IntegrationIDs, "[]"),
	}
}

type IntegrationMapper struct {
	encryption *encryption.EncryptionService
}

func NewIntegrationMapper(encryptionSvc *encryption.EncryptionService) *IntegrationMapper {
	return &IntegrationMapper{encryption: encryptionSvc}
}

func (m *IntegrationMapper) ToDomain(i *db.IntegrationModel) *domain.Integration {
	credentials := map[string]string{}
	if m.encryption != nil {
		decrypted, err := m.encryption.DecryptCredentials(i.Credentials)
		if err != nil {
			// Integration record stays readable; env resolution will see no credentials
			slog.Error("Failed to decrypt integration credentials",
				"integration_id", i.ID,
				"integration_name", i.Name,
				"error", err)
		} else {
			credentials = decrypted
		}
	}

	return &domain.Integration{
		ID:          i.ID,
		UserID:      i.UserID,
		Name:        i.Name,
		Provider:    i.Provider,
		Credentials: credentials,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

func (m *IntegrationMapper) ToModel(i *domain.Integration) (*db.IntegrationModel, error) {
	encrypted := ""
	if m.encryption != nil {
		var err error
		encrypted, err = m.encryption.EncryptCredentials(i.Credentials)
		if err != nil {
			return nil, err
		}
	}

	return &db.IntegrationModel{
		BaseModel: db.BaseModel{
			ID:        i.ID,
			CreatedAt: i.CreatedAt,
			UpdatedAt: i.UpdatedAt,
		},
		UserID:      i.UserID,
		Name:        i.Name,
		Provider:    i.Provider,
		Credentials: encrypted,
	}, nil
}

type DeploymentMapper struct{}

func (m *DeploymentMapper) ToDomain(d *db.DeploymentModel) *domain.Deployment {
	status, err := domain.ParseDeploymentStatus(d.Status)
	if err != nil {
		status = domain.DeploymentStatusUnknown
	}

	platform, err := domain.ParsePlatform(d.Platform)
	if err != nil {
		platform = domain.Platform(d.Platform)
	}

	var metadata *domain.OrchestrationMetadata
	if d.Metadata != nil && *d.Metadata != "" {
		var decoded domain.OrchestrationMetadata
		if err := json.Unmarshal([]byte(*d.Metadata), &decoded); err != nil {
			slog.Error("Failed to decode orchestration metadata",
				"deployment_id", d.ID,
				"error", err)
		} else {
			metadata = &decoded
		}
	}

	return &domain.Deployment{
		ID:           d.ID,
		UserID:       d.UserID,
		ProjectID:    d.ProjectID,
		ConfigSetID:  d.ConfigSetID,
		Platform:     platform,
		Name:         d.Name,
		Environment:  d.Environment,
		Status:       status,
		Notes:        d.Notes,
		Metadata:     metadata,
		Ports:        unmarshalJSON[[]domain.PortMapping](d.Ports, "deployment_ports"),
		ServiceURLs:  unmarshalJSON[map[string]string](d.ServiceURLs, "deployment_service_urls"),
		DeployURL:    d.DeployURL,
		BuildLogs:    d.BuildLogs,
		RuntimeLogs:  d.RuntimeLogs,
		ErrorMessage: d.ErrorMsg,
		StartedAt:    d.StartedAt,
		CompletedAt:  d.CompletedAt,
		StoppedAt:    d.StoppedAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (m *DeploymentMapper) ToModel(d *domain.Deployment) *db.DeploymentModel {
	var metadata *string
	if d.Metadata != nil {
		encoded := marshalJSON(d.Metadata, "{}")
		metadata = &encoded
	}

	return &db.DeploymentModel{
		BaseModel: db.BaseModel{
			ID:        d.ID,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		UserID:      d.UserID,
		ProjectID:   d.ProjectID,
		ConfigSetID: d.ConfigSetID,
		Platform:    d.Platform.String(),
		Name:        d.Name,
		Environment: d.Environment,
		Status:      d.Status.String(),
		Notes:       d.Notes,
		Metadata:    metadata,
		Ports:       marshalJSON(d.Ports, "[]"),
		ServiceURLs: marshalJSON(d.ServiceURLs, "{}"),
		DeployURL:   d.DeployURL,
		BuildLogs:   d.BuildLogs,
		RuntimeLogs: d.RuntimeLogs,
		ErrorMsg:    d.ErrorMessage,
		StartedAt:   d.StartedAt,
		CompletedAt: d.CompletedAt,
		StoppedAt:   d.StoppedAt,
	}
}

type ActivityLogMapper struct{}

func (m *ActivityLogMapper) ToDomain(e *db.ActivityLogModel) *domain.ActivityLogEntry {
	return &domain.ActivityLogEntry{
		ID:           e.ID,
		DeploymentID: e.DeploymentID,
		Action:       e.Action,
		Result:       e.Result,
		Details:      unmarshalJSON[map[string]any](e.Details, "activity_log_details"),
		CreatedAt:    e.CreatedAt,
	}
}

func (m *ActivityLogMapper) ToModel(e *domain.ActivityLogEntry) *db.ActivityLogModel {
	return &db.ActivityLogModel{
		ID:           e.ID,
		DeploymentID: e.DeploymentID,
		Action:       e.Action,
		Result:       e.Result,
		Details:      marshalJSON(e.Details, "{}"),
		CreatedAt:    e.CreatedAt,
	}
}

// Helper functions

func marshalJSON(v any, fallback string) string {
	if v == nil {
		return fallback
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to serialize field", "error", err)
		return fallback
	}
	return string(data)
}

func unmarshalJSON[T any](s, field string) T {
	var v T
	if s == "" {
		return v
	}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		slog.Error("Failed to deserialize field", "field", field, "error", err)
	}
	return v
}
