package project

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdProjectRemove() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <project-id>",
		Short: "Remove a project and its working directory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			projectID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("project remove", args[0])
				return
			}

			if err := app.GetImporter().Remove(app.LocalUserID(), projectID); err != nil {
				utils.HandleCommandError("removing project", err)
				return
			}

			if err := output.FprintSuccess(cmd, "Project %s removed", projectID); err != nil {
				utils.HandleCommandError("printing remove output", err)
			}
		},
	}
}
