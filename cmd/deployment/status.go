package deployment

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdDeploymentStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status <deployment-id>",
		Short: "Show the live status of a deployment",
		Long:  "Poll the platform for the deployment's container state and reconcile the stored status.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deploymentID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("deployment status", args[0])
				return
			}

			status, err := app.GetOrchestrator().GetStatus(cmd.Context(), app.LocalUserID(), deploymentID)
			if err != nil {
				utils.HandleCommandError("getting deployment status", err)
				return
			}

			if err := output.FprintPlain(cmd, "%s", status); err != nil {
				utils.HandleCommandError("printing deployment status", err)
			}
		},
	}
}
