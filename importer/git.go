// Package importer brings external source projects into the DXLander
// workspace and keeps their local clones current.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/dxlander/dxlander/config"
	"github.com/dxlander/dxlander/domain"
)

// GitClient wraps the Git operations the importer needs. All remote
// operations are bounded by the configured Git timeout.
type GitClient struct {
	config *config.Config
}

func NewGitClient(config *config.Config) *GitClient {
	return &GitClient{config: config}
}

// createAuthMethod builds a transport auth method from a project's stored
// auth config. A nil config means a public repository.
func (c *GitClient) createAuthMethod(auth *domain.GitAuthConfig) (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	if auth.HTTPAuth != nil {
		return &http.BasicAuth{
			Username: auth.HTTPAuth.Username,
			Password: auth.HTTPAuth.Password,
		}, nil
	}

	if auth.SSHAuth != nil {
		return c.createSSHAuth(auth.SSHAuth)
	}

	return nil, nil
}

func (c *GitClient) createSSHAuth(sshConfig *domain.GitSSHAuthConfig) (transport.AuthMethod, error) {
	if sshConfig == nil {
		return nil, fmt.Errorf("SSH auth config is nil")
	}

	user := sshConfig.User
	if user == "" {
		user = "git"
	}

	return ssh.NewPublicKeys(user, []byte(sshConfig.PrivateKey), "")
}

// Clone clones a repository into workingDir, restricted to a single branch.
func (c *GitClient) Clone(gitURL, gitBranch string, gitAuth *domain.GitAuthConfig, workingDir string) error {
	slog.Info("Cloning repository", "git_url", gitURL, "git_branch", gitBranch, "working_dir", workingDir)

	authMethod, err := c.createAuthMethod(gitAuth)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "importer",
			"operation", "git_clone_auth",
			"git_url", gitURL,
			"working_dir", workingDir,
			"error", err)
		return fmt.Errorf("failed to create auth method: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.GitTimeout)
	defer cancel()

	cloneOptions := &git.CloneOptions{
		URL:          gitURL,
		SingleBranch: true,
		Auth:         authMethod,
	}
	if gitBranch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(gitBranch)
	}

	if _, err := git.PlainCloneContext(ctx, workingDir, false, cloneOptions); err != nil {
		slog.Error("Service operation failed",
			"layer", "importer",
			"operation", "git_clone",
			"git_url", gitURL,
			"git_branch", gitBranch,
			"working_dir", workingDir,
			"error", err)
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	slog.Info("Repository cloned successfully", "git_url", gitURL, "git_branch", gitBranch, "working_dir", workingDir)
	return nil
}

// Fetch fetches the latest changes for one branch without touching the worktree.
func (c *GitClient) Fetch(gitBranch string, gitAuth *domain.GitAuthConfig, workingDir string) error {
	slog.Debug("Fetching from Git repository", "git_branch", gitBranch, "working_dir", workingDir)

	if gitBranch == "" {
		return fmt.Errorf("git branch is required")
	}

	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "importer",
			"operation", "git_fetch",
			"git_branch", gitBranch,
			"working_dir", workingDir,
			"error", err)
		return err
	}

	authMethod, err := c.createAuthMethod(gitAuth)
	if err != nil {
		return fmt.Errorf("failed to create auth method: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.GitTimeout)
	defer cancel()

	fetchOptions := &git.FetchOptions{
		Auth: authMethod,
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", gitBranch, gitBranch)),
		},
	}

	err = repo.FetchContext(ctx, fetchOptions)
	if err != nil && err != git.NoErrAlreadyUpToDate {
		slog.Error("Service operation failed",
			"layer", "importer",
			"operation", "git_fetch",
			"git_branch", gitBranch,
			"working_dir", workingDir,
			"error", err)
		return err
	}

	return nil
}

// Pull updates the local clone to the remote branch head. It fetches, then
// checks the worktree out at the remote commit while keeping untracked files,
// so force-pushed branches converge the same way as fast-forwards.
func (c *GitClient) Pull(gitBranch string, gitAuth *domain.GitAuthConfig, workingDir string) error {
	slog.Debug("Pulling repository changes", "git_branch", gitBranch, "working_dir", workingDir)

	if err := c.Fetch(gitBranch, gitAuth, workingDir); err != nil {
		return fmt.Errorf("failed to fetch changes: %w", err)
	}

	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}

	currentCommit, err := c.GetLatestCommit(workingDir)
	if err != nil {
		currentCommit = "unknown"
	}

	remoteBranchName := fmt.Sprintf("refs/remotes/origin/%s", gitBranch)
	ref, err := repo.Reference(plumbing.ReferenceName(remoteBranchName), true)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "importer",
			"operation", "git_pull_get_remote_ref",
			"git_branch", gitBranch,
			"working_dir", workingDir,
			"remote_ref", remoteBranchName,
			"error", err)
		return fmt.Errorf("failed to get remote reference %s: %w", remoteBranchName, err)
	}

	if currentCommit == ref.Hash().String() {
		slog.Debug("Repository already up to date", "git_branch", gitBranch, "working_dir", workingDir)
		return nil
	}

	err = worktree.Checkout(&git.CheckoutOptions{
		Hash: ref.Hash(),
		Keep: true, // Keep untracked files
	})
	if err != nil {
		return fmt.Errorf("failed to checkout files from %s: %w", ref.Hash().String(), err)
	}

	if err := c.resetTrackedFiles(worktree); err != nil {
		return fmt.Errorf("failed to reset tracked files: %w", err)
	}

	slog.Info("Repository updated successfully",
		"git_branch", gitBranch,
		"working_dir", workingDir,
		"from_commit", currentCommit,
		"to_commit", ref.Hash().String())
	return nil
}

// GetLatestCommit returns the local HEAD commit hash.
func (c *GitClient) GetLatestCommit(workingDir string) (string, error) {
	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		return "", err
	}

	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// GetRemoteLatestCommit returns the last fetched commit hash of the remote branch.
func (c *GitClient) GetRemoteLatestCommit(workingDir, gitBranch string) (string, error) {
	if gitBranch == "" {
		return "", fmt.Errorf("git branch is required")
	}

	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		return "", err
	}

	remoteBranchName := fmt.Sprintf("refs/remotes/origin/%s", gitBranch)
	ref, err := repo.Reference(plumbing.ReferenceName(remoteBranchName), true)
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// TestAuthentication verifies credentials against a remote using ls-remote,
// which is resistant to credential caching.
func (c *GitClient) TestAuthentication(gitURL string, gitAuth *domain.GitAuthConfig) error {
	slog.Info("Testing Git authentication", "git_url", gitURL)

	if _, err := c.listRemote(gitURL, gitAuth); err != nil {
		slog.Error("Git authentication test failed",
			"layer", "importer",
			"operation", "test_git_authentication",
			"git_url", gitURL,
			"error", err)
		return err
	}
	return nil
}

// GetDefaultBranch determines the default branch of a remote repository from
// its HEAD reference.
func (c *GitClient) GetDefaultBranch(gitURL string, gitAuth *domain.GitAuthConfig) (string, error) {
	refs, err := c.listRemote(gitURL, gitAuth)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "importer",
			"operation", "get_default_branch",
			"git_url", gitURL,
			"error", err)
		return "", fmt.Errorf("failed to list remote references: %w", err)
	}

	for _, ref := range refs {
		if ref.Name() != plumbing.HEAD {
			continue
		}
		if ref.Type() == plumbing.SymbolicReference {
			if target := ref.Target(); target.IsBranch() {
				return target.Short(), nil
			}
			continue
		}
		// HEAD points at a commit; find a branch with the same hash
		for _, other := range refs {
			if other.Hash() == ref.Hash() && other.Name().IsBranch() {
				return other.Name().Short(), nil
			}
		}
	}

	return "", fmt.Errorf("could not determine default branch for repository %s", gitURL)
}

func (c *GitClient) listRemote(gitURL string, gitAuth *domain.GitAuthConfig) ([]*plumbing.Reference, error) {
	authMethod, err := c.createAuthMethod(gitAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth method: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.GitTimeout)
	defer cancel()

	remote := git.NewRemote(nil, &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{gitURL},
	})

	return remote.ListContext(ctx, &git.ListOptions{Auth: authMethod})
}

// resetTrackedFiles discards local changes to tracked files while leaving
// untracked files intact.
func (c *GitClient) resetTrackedFiles(worktree *git.Worktree) error {
	changedFiles, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}

	resetFiles := make([]string, 0, len(changedFiles))
	for file, status := range changedFiles {
		if status.Staging != git.Untracked {
			resetFiles = append(resetFiles, file)
		}
	}

	if len(resetFiles) > 0 {
		err = worktree.Reset(&git.ResetOptions{
			Mode:  git.HardReset,
			Files: resetFiles,
		})
		if err != nil {
			return fmt.Errorf("failed to reset tracked files: %w", err)
		}
	}

	return nil
}
