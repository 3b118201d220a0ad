package project

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdProjectUpdate() *cobra.Command {
	return &cobra.Command{
		Use:   "update <project-id>",
		Short: "Pull the latest changes for a project",
		Long:  "Fetch and check out the latest commit of the project's tracked branch.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			projectID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("project update", args[0])
				return
			}

			project, err := app.GetImporter().Refresh(app.LocalUserID(), projectID)
			if err != nil {
				utils.HandleCommandError("updating project", err)
				return
			}

			if err := output.FprintSuccess(cmd, "Project '%s' updated", project.Name); err != nil {
				utils.HandleCommandError("printing update output", err)
				return
			}
			if err := output.FprintPlain(cmd, "Latest commit: %s", output.FormatCommitHash(project.LastCommitStr())); err != nil {
				utils.HandleCommandError("printing update output", err)
			}
		},
	}
}
