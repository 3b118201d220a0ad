// Package project implements project management commands.
package project

import (
	"github.com/spf13/cobra"
)

func NewCmdProject() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage imported source projects",
		Long:  "Import, inspect, refresh, and remove source projects tracked by DXLander.",
	}

	cmd.AddCommand(NewCmdProjectAdd())
	cmd.AddCommand(NewCmdProjectList())
	cmd.AddCommand(NewCmdProjectShow())
	cmd.AddCommand(NewCmdProjectUpdate())
	cmd.AddCommand(NewCmdProjectRemove())
	return cmd
}
