package deployment

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdDeploymentLogs() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <deployment-id>",
		Short: "Show build and runtime logs of a deployment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deploymentID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("deployment logs", args[0])
				return
			}

			logs, err := app.GetOrchestrator().GetLogs(cmd.Context(), app.LocalUserID(), deploymentID)
			if err != nil {
				utils.HandleCommandError("getting deployment logs", err)
				return
			}

			buildOnly, _ := cmd.Flags().GetBool("build")
			if logs.BuildLogs != "" {
				if err := output.FprintPlain(cmd, "%s", logs.BuildLogs); err != nil {
					utils.HandleCommandError("printing deployment logs", err)
					return
				}
			}
			if buildOnly {
				return
			}
			if logs.RuntimeLogs != "" {
				if err := output.FprintPlain(cmd, "%s", logs.RuntimeLogs); err != nil {
					utils.HandleCommandError("printing deployment logs", err)
				}
			}
		},
	}

	cmd.Flags().Bool("build", false, "Show only build logs")
	return cmd
}
