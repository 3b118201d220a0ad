package deployment

import (
	"github.com/spf13/cobra"
)

func NewCmdDeployment() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deployment",
		Aliases: []string{"deploy"},
		Short:   "Manage deployments",
	}
	cmd.AddCommand(
		NewCmdDeploymentCreate(),
		NewCmdDeploymentList(),
		NewCmdDeploymentShow(),
		NewCmdDeploymentStatus(),
		NewCmdDeploymentLogs(),
		NewCmdDeploymentActivity(),
		NewCmdDeploymentStart(),
		NewCmdDeploymentStop(),
		NewCmdDeploymentRestart(),
		NewCmdDeploymentRemove(),
	)
	return cmd
}
