package deployment

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdDeploymentStart() *cobra.Command {
	return &cobra.Command{
		Use:   "start <deployment-id>",
		Short: "Start a stopped deployment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deploymentID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("deployment start", args[0])
				return
			}

			deployment, err := app.GetOrchestrator().Start(cmd.Context(), app.LocalUserID(), deploymentID)
			if err != nil {
				utils.HandleCommandError("starting deployment", err)
				return
			}

			if err := output.FprintSuccess(cmd, "Deployment '%s' started", deployment.Name); err != nil {
				utils.HandleCommandError("printing start output", err)
			}
		},
	}
}
