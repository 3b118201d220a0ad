package deployment

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdDeploymentActivity() *cobra.Command {
	return &cobra.Command{
		Use:   "activity <deployment-id>",
		Short: "Show the activity log of a deployment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deploymentID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("deployment activity", args[0])
				return
			}

			entries, err := app.GetOrchestrator().ActivityLog(app.LocalUserID(), deploymentID)
			if err != nil {
				utils.HandleCommandError("getting deployment activity log", err)
				return
			}

			out, err := output.PrintActivityLog(entries)
			if err != nil {
				utils.HandleCommandError("printing activity log table", err)
				return
			}

			if err := output.FprintPlain(cmd, "%s", out); err != nil {
				utils.HandleCommandError("printing activity log output", err)
			}
		},
	}
}
