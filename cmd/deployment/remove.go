package deployment

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdDeploymentRemove() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <deployment-id>",
		Aliases: []string{"delete"},
		Short:   "Tear down a deployment and remove its resources",
		Long: `Stop the deployment's containers, remove its volumes, images and build
directory, and mark the record terminated. Teardown is best effort; the
deployment always ends up terminated.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deploymentID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("deployment remove", args[0])
				return
			}

			deployment, err := app.GetOrchestrator().Delete(cmd.Context(), app.LocalUserID(), deploymentID)
			if err != nil {
				utils.HandleCommandError("removing deployment", err)
				return
			}

			if err := output.FprintSuccess(cmd, "Deployment '%s' removed", deployment.Name); err != nil {
				utils.HandleCommandError("printing remove output", err)
			}
		},
	}
}
