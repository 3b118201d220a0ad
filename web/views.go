// Package web exposes the DXLander HTTP API.
package web

import (
	"time"

	"github.com/google/uuid"

	"github.com/dxlander/dxlander/domain"
)

// View types decouple API payloads from domain entities. Credential material
// never appears in a view.

type ProjectView struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	GitURL     string    `json:"gitUrl"`
	GitBranch  string    `json:"gitBranch"`
	LastCommit string    `json:"lastCommit,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toProjectView(p *domain.Project) ProjectView {
	return ProjectView{
		ID:         p.ID,
		Name:       p.Name,
		GitURL:     p.GitURL,
		GitBranch:  p.GitBranch,
		LastCommit: p.LastCommitStr(),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

type ServiceDeclarationView struct {
	Name               string   `json:"name"`
	ComposeServiceName string   `json:"composeServiceName"`
	SourceMode         string   `json:"sourceMode"`
	RequiredEnvVars    []string `json:"requiredEnvVars,omitempty"`
}

type ConfigSetView struct {
	ID             uuid.UUID                `json:"id"`
	ProjectID      uuid.UUID                `json:"projectId"`
	Name           string                   `json:"name"`
	Services       []ServiceDeclarationView `json:"services"`
	EnvOverrides   map[string]string        `json:"envOverrides,omitempty"`
	IntegrationIDs []uuid.UUID              `json:"integrationIds,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

func toConfigSetView(c *domain.ConfigSet) ConfigSetView {
	services := make([]ServiceDeclarationView, len(c.Services))
	for i, s := range c.Services {
		services[i] = ServiceDeclarationView{
			Name:               s.Name,
			ComposeServiceName: s.ComposeServiceName,
			SourceMode:         s.SourceMode.String(),
			RequiredEnvVars:    s.RequiredEnvVars,
		}
	}
	return ConfigSetView{
		ID:             c.ID,
		ProjectID:      c.ProjectID,
		Name:           c.Name,
		Services:       services,
		EnvOverrides:   c.EnvOverrides,
		IntegrationIDs: c.IntegrationIDs,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// IntegrationView lists credential keys only; values stay encrypted at rest
// and are never returned by the API.
type IntegrationView struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Provider       string    `json:"provider"`
	CredentialKeys []string  `json:"credentialKeys"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toIntegrationView(i *domain.Integration) IntegrationView {
	keys := make([]string, 0, len(i.Credentials))
	for key := range i.Credentials {
		keys = append(keys, key)
	}
	return IntegrationView{
		ID:             i.ID,
		Name:           i.Name,
		Provider:       i.Provider,
		CredentialKeys: keys,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

type DeploymentView struct {
	ID           uuid.UUID            `json:"id"`
	ProjectID    uuid.UUID            `json:"projectId"`
	ConfigSetID  uuid.UUID            `json:"configSetId"`
	Platform     string               `json:"platform"`
	Name         string               `json:"name"`
	Environment  string               `json:"environment"`
	Status       string               `json:"status"`
	Notes        string               `json:"notes,omitempty"`
	Services     []string             `json:"services,omitempty"`
	Ports        []domain.PortMapping `json:"ports,omitempty"`
	ServiceURLs  map[string]string    `json:"serviceUrls,omitempty"`
	DeployURL    string               `json:"deployUrl,omitempty"`
	ErrorMessage string               `json:"errorMessage,omitempty"`
	StartedAt    *time.Time           `json:"startedAt,omitempty"`
	CompletedAt  *time.Time           `json:"completedAt,omitempty"`
	StoppedAt    *time.Time           `json:"stoppedAt,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func toDeploymentView(d *domain.Deployment) DeploymentView {
	view := DeploymentView{
		ID:           d.ID,
		ProjectID:    d.ProjectID,
		ConfigSetID:  d.ConfigSetID,
		Platform:     d.Platform.String(),
		Name:         d.Name,
		Environment:  d.Environment,
		Status:       d.Status.String(),
		Notes:        d.Notes,
		Ports:        d.Ports,
		ServiceURLs:  d.ServiceURLs,
		DeployURL:    d.DeployURL,
		ErrorMessage: d.ErrorMessage,
		StartedAt:    d.StartedAt,
		CompletedAt:  d.CompletedAt,
		StoppedAt:    d.StoppedAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Metadata != nil {
		view.Services = d.Metadata.Services
	}
	return view
}

type ActivityLogEntryView struct {
	ID        uuid.UUID      `json:"id"`
	Action    string         `json:"action"`
	Result    string         `json:"result"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func toActivityLogEntryView(e *domain.ActivityLogEntry) ActivityLogEntryView {
	return ActivityLogEntryView{
		ID:        e.ID,
		Action:    e.Action,
		Result:    e.Result,
		Details:   e.Details,
		CreatedAt: e.CreatedAt,
	}
}
