package version

import (
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/output"
)

func NewCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the DXLander version",
		Run: func(cmd *cobra.Command, args []string) {
			_ = output.FprintPlain(cmd, "dxlander %s", app.Version)
		},
	}
}
