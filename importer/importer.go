package importer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dxlander/dxlander/config"
	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/repository"
)

// ErrProjectNotFound is returned when a project does not exist or belongs to
// another user.
var ErrProjectNotFound = errors.New("project not found")

// ImportRequest describes a source project to bring into the workspace.
type ImportRequest struct {
	UserID    uuid.UUID
	Name      string
	GitURL    string
	GitBranch string
	GitAuth   *domain.GitAuthConfig
}

// Importer clones source projects into per-project working directories and
// tracks their latest commit. Each project's files land under
// <workspace>/<slug>-<id>/files so deployments stage from a stable path.
type Importer struct {
	projects repository.ProjectRepository
	git      *GitClient
	config   *config.Config
}

func NewImporter(projects repository.ProjectRepository, git *GitClient, cfg *config.Config) *Importer {
	return &Importer{
		projects: projects,
		git:      git,
		config:   cfg,
	}
}

// Import clones the repository and persists the project record. The clone
// happens before the record is created, so a failed import leaves no state
// behind apart from log output.
func (i *Importer) Import(req ImportRequest) (*domain.Project, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if req.GitURL == "" {
		return nil, fmt.Errorf("git URL is required")
	}

	branch := req.GitBranch
	if branch == "" {
		detected, err := i.git.GetDefaultBranch(req.GitURL, req.GitAuth)
		if err != nil {
			return nil, fmt.Errorf("failed to detect default branch: %w", err)
		}
		branch = detected
	}

	project := domain.NewProject(req.UserID, req.Name, req.GitURL)
	project.GitBranch = branch
	project.GitAuth = req.GitAuth
	project.WorkingDir = filepath.Join(i.config.WorkspaceDir, domain.NamespaceFor(req.Name, project.ID))

	filesDir, err := project.FilesDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(project.WorkingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create project working directory: %w", err)
	}

	if err := i.git.Clone(project.GitURL, project.GitBranch, project.GitAuth, filesDir); err != nil {
		i.cleanup(project.WorkingDir)
		return nil, err
	}

	commit, err := i.git.GetLatestCommit(filesDir)
	if err != nil {
		i.cleanup(project.WorkingDir)
		return nil, fmt.Errorf("failed to read cloned commit: %w", err)
	}
	project.LastCommit = &commit

	created, err := i.projects.Create(&project)
	if err != nil {
		i.cleanup(project.WorkingDir)
		return nil, err
	}

	slog.Info("Project imported",
		"project_id", created.ID,
		"project_name", created.Name,
		"git_branch", created.GitBranch,
		"commit", commit)
	return created, nil
}

// Refresh pulls the latest changes for a project's branch and records the new
// commit hash.
func (i *Importer) Refresh(userID, id uuid.UUID) (*domain.Project, error) {
	project, err := i.load(userID, id)
	if err != nil {
		return nil, err
	}

	filesDir, err := project.FilesDir()
	if err != nil {
		return nil, err
	}

	if err := i.git.Pull(project.GitBranch, project.GitAuth, filesDir); err != nil {
		return nil, fmt.Errorf("failed to refresh project: %w", err)
	}

	commit, err := i.git.GetLatestCommit(filesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read refreshed commit: %w", err)
	}

	project.LastCommit = &commit
	if err := i.projects.Update(project); err != nil {
		return nil, err
	}

	slog.Info("Project refreshed",
		"project_id", project.ID,
		"git_branch", project.GitBranch,
		"commit", commit)
	return project, nil
}

// OutOfDate reports whether the remote branch has moved past the local clone.
func (i *Importer) OutOfDate(userID, id uuid.UUID) (bool, error) {
	project, err := i.load(userID, id)
	if err != nil {
		return false, err
	}

	filesDir, err := project.FilesDir()
	if err != nil {
		return false, err
	}

	if err := i.git.Fetch(project.GitBranch, project.GitAuth, filesDir); err != nil {
		return false, err
	}

	remote, err := i.git.GetRemoteLatestCommit(filesDir, project.GitBranch)
	if err != nil {
		return false, err
	}
	return remote != project.LastCommitStr(), nil
}

// Remove deletes the project record and its working directory. Directory
// cleanup is best-effort.
func (i *Importer) Remove(userID, id uuid.UUID) error {
	project, err := i.load(userID, id)
	if err != nil {
		return err
	}

	if err := i.projects.Delete(userID, id); err != nil {
		return err
	}

	if project.WorkingDir != "" {
		i.cleanup(project.WorkingDir)
	}
	return nil
}

// Get returns a project scoped to its owner.
func (i *Importer) Get(userID, id uuid.UUID) (*domain.Project, error) {
	return i.load(userID, id)
}

// List returns the caller's projects.
func (i *Importer) List(userID uuid.UUID) ([]*domain.Project, error) {
	return i.projects.List(userID)
}

// TestAuthentication verifies Git credentials against a remote without
// cloning anything.
func (i *Importer) TestAuthentication(gitURL string, gitAuth *domain.GitAuthConfig) error {
	return i.git.TestAuthentication(gitURL, gitAuth)
}

func (i *Importer) load(userID, id uuid.UUID) (*domain.Project, error) {
	project, err := i.projects.FindByID(userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

func (i *Importer) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("Failed to clean up project directory", "dir", dir, "error", err)
	}
}
