package domain

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	// FilesDir is the directory name for imported source files within a project's working directory
	FilesDir = "files"
)

// GitAuthConfig holds Git authentication configuration for a project import
type GitAuthConfig struct {
	HTTPAuth *GitHTTPAuthConfig
	SSHAuth  *GitSSHAuthConfig
}

// GitHTTPAuthConfig for HTTP basic authentication (GitHub tokens, etc.)
type GitHTTPAuthConfig struct {
	Username string // "token" for GitHub
	Password string // actual token/password
}

// GitSSHAuthConfig for passwordless SSH key authentication
type GitSSHAuthConfig struct {
	PrivateKey string // PEM-encoded private key as string
	User       string // SSH user (default: "git")
}

// GitAuthType represents the Git authentication method type
type GitAuthType string

const (
	GitAuthTypeHTTP GitAuthType = "http"
	GitAuthTypeSSH  GitAuthType = "ssh"
)

// String implements the Stringer interface
func (a GitAuthType) String() string {
	return string(a)
}

// IsValid checks if the GitAuthType is valid
func (a GitAuthType) IsValid() bool {
	switch a {
	case GitAuthTypeHTTP, GitAuthTypeSSH:
		return true
	default:
		return false
	}
}

// ParseGitAuthType parses a string into a GitAuthType
func ParseGitAuthType(s string) (GitAuthType, error) {
	authType := GitAuthType(s)
	if !authType.IsValid() {
		return "", fmt.Errorf("invalid auth type: %s", s)
	}
	return authType, nil
}

// Project is an imported source project. Its source files live under
// WorkingDir/files and are staged into each deployment's build directory.
type Project struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Name       string
	GitURL     string
	GitBranch  string
	GitAuth    *GitAuthConfig
	WorkingDir string
	LastCommit *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FilesDir returns the directory holding the project's imported source files.
func (p *Project) FilesDir() (string, error) {
	if p.WorkingDir == "" {
		return "", fmt.Errorf("working directory is not set for project %s", p.Name)
	}
	return filepath.Join(p.WorkingDir, FilesDir), nil
}

func (p *Project) LastCommitStr() string {
	if p.LastCommit == nil {
		return ""
	}
	return *p.LastCommit
}

func NewProject(userID uuid.UUID, name, gitURL string) Project {
	return Project{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		GitURL: gitURL,
	}
}

// ConfigSet is a versioned bundle of generated deployment files for a project:
// Dockerfile, compose file, optionally .dockerignore, plus per-service source
// declarations and environment overrides. LocalPath points at the directory
// holding the generated files.
type ConfigSet struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ProjectID      uuid.UUID
	Name           string
	LocalPath      string
	Services       []ServiceDeclaration
	EnvOverrides   map[string]string
	IntegrationIDs []uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Integration is a stored third-party credential set. Credential values are
// encrypted at rest and merged into deployment environments at resolve time.
type Integration struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Provider    string
	Credentials map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
