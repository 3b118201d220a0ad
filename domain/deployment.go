// Package domain provides core domain types and entities for DXLander.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Platform identifies the deployment target backend.
type Platform string

const (
	// PlatformDockerCompose is the local multi-container orchestration backend.
	PlatformDockerCompose Platform = "docker-compose"
)

// String implements the Stringer interface
func (p Platform) String() string {
	return string(p)
}

// IsValid checks if the Platform is valid
func (p Platform) IsValid() bool {
	return p == PlatformDockerCompose
}

// ParsePlatform parses a string into a Platform
func ParsePlatform(s string) (Platform, error) {
	platform := Platform(s)
	if !platform.IsValid() {
		return "", fmt.Errorf("invalid platform: %q", s)
	}
	return platform, nil
}

// OrchestrationMetadata holds the orchestration identifiers a deployment needs
// for any lifecycle operation after creation. Its absence on a record means the
// deployment predates the current schema or was never successfully staged.
type OrchestrationMetadata struct {
	Namespace string   `json:"namespace"`
	BuildDir  string   `json:"buildDir"`
	Services  []string `json:"services,omitempty"`
}

// Valid reports whether the metadata carries everything lifecycle operations require.
func (m *OrchestrationMetadata) Valid() bool {
	return m != nil && m.Namespace != "" && m.BuildDir != ""
}

// PortMapping maps a host port to a container port.
type PortMapping struct {
	Host      int    `json:"host"`
	Container int    `json:"container"`
	Protocol  string `json:"protocol"`
}

type Deployment struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	ProjectID    uuid.UUID
	ConfigSetID  uuid.UUID
	Platform     Platform
	Name         string
	Environment  string // environment tag, e.g. "development"
	Status       DeploymentStatus
	Notes        string
	Metadata     *OrchestrationMetadata
	Ports        []PortMapping
	ServiceURLs  map[string]string
	DeployURL    string
	BuildLogs    string
	RuntimeLogs  string
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	StoppedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewDeployment creates a deployment in pending status with a freshly generated
// orchestration namespace. The deployment id is the sole build-directory
// discriminator, so concurrent deployments never share on-disk state.
func NewDeployment(userID, projectID, configSetID uuid.UUID, platform Platform, name, environment string) Deployment {
	id := uuid.New()
	return Deployment{
		ID:          id,
		UserID:      userID,
		ProjectID:   projectID,
		ConfigSetID: configSetID,
		Platform:    platform,
		Name:        name,
		Environment: environment,
		Status:      DeploymentStatusPending,
		Metadata: &OrchestrationMetadata{
			Namespace: NamespaceFor(name, id),
		},
	}
}

// NamespaceFor derives the orchestration namespace for a deployment:
// <normalized-name>-<first-uuid-segment>. The uuid segment keeps namespaces
// unique across deployments sharing a label.
func NamespaceFor(name string, id uuid.UUID) string {
	normalized := slug.Make(name)
	if normalized == "" {
		normalized = "deployment"
	}
	return fmt.Sprintf("%s-%.8s", normalized, id.String())
}

// ListFilter narrows deployment listings. Zero values mean "no constraint".
type ListFilter struct {
	ProjectID   uuid.UUID
	ConfigSetID uuid.UUID
	Status      DeploymentStatus
	Limit       int
	Offset      int
}
