package project

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/importer"
)

func NewCmdProjectAdd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Import a source project from a Git repository",
		Long: `Clone a Git repository into the DXLander workspace and register it as a
project. The clone is restricted to a single branch; when no branch is given
the remote's default branch is detected and used.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runProjectAdd(cmd, args); err != nil {
				utils.HandleCommandError("importing project", err)
			}
		},
	}

	cmd.Flags().String("git-url", "", "Git repository URL (required)")
	cmd.Flags().String("branch", "", "Git branch to track (default: remote default branch)")
	cmd.Flags().String("username", "", "HTTP auth username (\"token\" for GitHub tokens)")
	cmd.Flags().String("password", "", "HTTP auth password or token")
	cmd.Flags().String("ssh-key-file", "", "Path to a PEM-encoded SSH private key")
	cmd.Flags().String("ssh-user", "", "SSH user (default: git)")
	_ = cmd.MarkFlagRequired("git-url")
	return cmd
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	gitURL, _ := cmd.Flags().GetString("git-url")
	branch, _ := cmd.Flags().GetString("branch")

	gitAuth, err := buildGitAuth(cmd)
	if err != nil {
		return err
	}

	project, err := app.GetImporter().Import(importer.ImportRequest{
		UserID:    app.LocalUserID(),
		Name:      args[0],
		GitURL:    gitURL,
		GitBranch: branch,
		GitAuth:   gitAuth,
	})
	if err != nil {
		return err
	}

	if err := output.FprintSuccess(cmd, "Project '%s' imported", project.Name); err != nil {
		return err
	}

	details, err := output.PrintProjectDetails(project)
	if err != nil {
		return err
	}
	return output.FprintPlain(cmd, "%s", details)
}

func buildGitAuth(cmd *cobra.Command) (*domain.GitAuthConfig, error) {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	sshKeyFile, _ := cmd.Flags().GetString("ssh-key-file")
	sshUser, _ := cmd.Flags().GetString("ssh-user")

	if sshKeyFile != "" {
		key, err := os.ReadFile(sshKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key file: %w", err)
		}
		return &domain.GitAuthConfig{
			SSHAuth: &domain.GitSSHAuthConfig{PrivateKey: string(key), User: sshUser},
		}, nil
	}

	if username != "" || password != "" {
		return &domain.GitAuthConfig{
			HTTPAuth: &domain.GitHTTPAuthConfig{Username: username, Password: password},
		}, nil
	}

	return nil, nil
}
