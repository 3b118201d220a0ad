package project

import (
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
)

func NewCmdProjectList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all imported projects",
		Run: func(cmd *cobra.Command, args []string) {
			projects, err := app.GetImporter().List(app.LocalUserID())
			if err != nil {
				utils.HandleCommandError("listing projects", err)
				return
			}

			out, err := output.PrintProjectList(projects)
			if err != nil {
				utils.HandleCommandError("printing project list table", err)
				return
			}

			if err := output.FprintPlain(cmd, "%s", out); err != nil {
				utils.HandleCommandError("printing project list output", err)
			}
		},
	}
}
