package deployment

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/utils"
	"github.com/dxlander/dxlander/domain"
)

func NewCmdDeploymentList() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deployments",
		Run: func(cmd *cobra.Command, args []string) {
			filter, err := listFilterFromFlags(cmd)
			if err != nil {
				utils.HandleCommandError("listing deployments", err)
				return
			}

			deployments, err := app.GetOrchestrator().List(app.LocalUserID(), filter)
			if err != nil {
				utils.HandleCommandError("listing deployments", err)
				return
			}

			out, err := output.PrintDeploymentList(deployments)
			if err != nil {
				utils.HandleCommandError("printing deployment list table", err)
				return
			}

			if err := output.FprintPlain(cmd, "%s", out); err != nil {
				utils.HandleCommandError("printing deployment list output", err)
			}
		},
	}

	cmd.Flags().String("project", "", "Filter by project ID")
	cmd.Flags().String("status", "", "Filter by status (pending, pre_flight, building, running, stopped, failed, terminated)")
	return cmd
}

func listFilterFromFlags(cmd *cobra.Command) (domain.ListFilter, error) {
	var filter domain.ListFilter

	if raw, _ := cmd.Flags().GetString("project"); raw != "" {
		projectID, err := uuid.Parse(raw)
		if err != nil {
			return filter, err
		}
		filter.ProjectID = projectID
	}

	if raw, _ := cmd.Flags().GetString("status"); raw != "" {
		status, err := domain.ParseDeploymentStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}

	return filter, nil
}
