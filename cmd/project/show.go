package project

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdProjectShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show details of an imported project",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			projectID, err := uuid.Parse(args[0])
			if err != nil {
				utils.HandleInvalidUUID("project show", args[0])
				return
			}

			project, err := app.GetImporter().Get(app.LocalUserID(), projectID)
			if err != nil {
				utils.HandleCommandError("showing project", err)
				return
			}

			details, err := output.PrintProjectDetails(project)
			if err != nil {
				utils.HandleCommandError("printing project details", err)
				return
			}

			if err := output.FprintPlain(cmd, "%s", details); err != nil {
				utils.HandleCommandError("printing project details output", err)
			}
		},
	}
}
