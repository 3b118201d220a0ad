package deployment

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdDeploymentShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show <deployment-id>",
		Short: "Show details of a deployment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deploymentID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("deployment show", args[0])
				return
			}

			deployment, err := app.GetOrchestrator().Get(app.LocalUserID(), deploymentID)
			if err != nil {
				utils.HandleCommandError("showing deployment", err)
				return
			}

			details, err := output.PrintDeploymentDetails(deployment)
			if err != nil {
				utils.HandleCommandError("printing deployment details", err)
				return
			}

			if err := output.FprintPlain(cmd, "%s", details); err != nil {
				utils.HandleCommandError("printing deployment details output", err)
			}
		},
	}
}
