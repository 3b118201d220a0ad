package deployment

import (
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
	"github.com/dxlander/dxlander/deployment"
	"github.com/dxlander/dxlander/domain"
)

func NewCmdDeploymentCreate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create and deploy a new deployment",
		Long: `Build and deploy a project with one of its config sets. Progress is
printed phase by phase; the final deployment state is shown when the
pipeline finishes.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runDeploymentCreate(cmd, args); err != nil {
				utils.HandleCommandError("creating deployment", err)
			}
		},
	}

	cmd.Flags().String("project", "", "Project ID (required)")
	cmd.Flags().String("config-set", "", "Config set ID (required)")
	cmd.Flags().String("env", "", "Environment label (e.g. staging, production)")
	cmd.Flags().String("platform", string(domain.PlatformDockerCompose), "Target platform")
	cmd.Flags().String("notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("config-set")
	return cmd
}

func runDeploymentCreate(cmd *cobra.Command, args []string) error {
	projectID, err := uuid.Parse(mustString(cmd, "project"))
	if err != nil {
		return err
	}
	configSetID, err := uuid.Parse(mustString(cmd, "config-set"))
	if err != nil {
		return err
	}
	platform, err := domain.ParsePlatform(mustString(cmd, "platform"))
	if err != nil {
		return err
	}

	progress := make(chan domain.ProgressEvent, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range progress {
			printProgressEvent(cmd, event)
		}
	}()

	result, err := app.GetOrchestrator().CreateDeployment(cmd.Context(), deployment.CreateRequest{
		UserID:      app.LocalUserID(),
		ProjectID:   projectID,
		ConfigSetID: configSetID,
		Platform:    platform,
		Name:        args[0],
		Environment: mustString(cmd, "env"),
		Notes:       mustString(cmd, "notes"),
	}, progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	details, printErr := output.PrintDeploymentDetails(result)
	if printErr != nil {
		return printErr
	}
	return output.FprintPlain(cmd, "%s", details)
}

func printProgressEvent(cmd *cobra.Command, event domain.ProgressEvent) {
	switch event.Phase {
	case domain.ProgressPhaseError:
		_ = output.FprintError(cmd, "[%s] %s", event.Phase, event.Message)
	case domain.ProgressPhaseComplete:
		_ = output.FprintSuccess(cmd, "%s", event.Message)
	default:
		_ = output.FprintPlain(cmd, "[%s] %s", event.Phase, event.Message)
	}
}

func mustString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}
