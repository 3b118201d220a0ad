package deployment

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdDeploymentRestart() *cobra.Command {
	return &cobra.Command{
		Use:   "restart <deployment-id>",
		Short: "Restart a deployment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deploymentID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("deployment restart", args[0])
				return
			}

			deployment, err := app.GetOrchestrator().Restart(cmd.Context(), app.LocalUserID(), deploymentID)
			if err != nil {
				utils.HandleCommandError("restarting deployment", err)
				return
			}

			if err := output.FprintSuccess(cmd, "Deployment '%s' restarted", deployment.Name); err != nil {
				utils.HandleCommandError("printing restart output", err)
			}
		},
	}
}
