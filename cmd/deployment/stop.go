package deployment

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdDeploymentStop() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <deployment-id>",
		Short: "Stop a running deployment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deploymentID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("deployment stop", args[0])
				return
			}

			deployment, err := app.GetOrchestrator().Stop(cmd.Context(), app.LocalUserID(), deploymentID)
			if err != nil {
				utils.HandleCommandError("stopping deployment", err)
				return
			}

			if err := output.FprintSuccess(cmd, "Deployment '%s' stopped", deployment.Name); err != nil {
				utils.HandleCommandError("printing stop output", err)
			}
		},
	}
}
