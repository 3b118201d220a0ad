// Package root implements the command line interface for DXLander.
package root

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/app"
	"github.com/dxlander/dxlander/cmd/deployment"
	"github.com/dxlander/dxlander/cmd/output"
	"github.com/dxlander/dxlander/cmd/project"
	"github.com/dxlander/dxlander/cmd/server"
	"github.com/dxlander/dxlander/cmd/version"
	appconfig "github.com/dxlander/dxlander/config"
	"github.com/dxlander/dxlander/logging"
)

var config *appconfig.Config

func Execute() {
	if err := NewCmdRoot().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCmdRoot() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "dxlander",
		Short: "Deployment config generator and orchestrator for imported projects",
		Long: `DXLander imports source projects, generates deployment configuration,
and orchestrates Docker Compose deployments with full state tracking.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize configuration for CLI with data directory override
			var err error
			config, err = appconfig.NewConfigForCLI(dataDir)
			if err != nil {
				log.Fatalf("Failed to initialize configuration: %s", err)
			}

			// Initialize colors (CLI flag overrides config)
			colorDisabled := !config.ColorEnabled
			if output.NoColor.IsSet() {
				colorDisabled = true
			}
			output.InitColors(colorDisabled)

			// Initialize logging (CLI flag overrides config)
			logLevel := config.LogLevel
			if logging.LogLevel.IsSet() {
				logLevel = logging.LogLevel.String()
			}
			logging.InitLogging(logLevel)

			// Initialize application with config
			if err := app.InitializeWithConfig(config); err != nil {
				log.Fatalf("Failed to initialize application: %s", err)
			}
		},
	}

	cmd.PersistentFlags().
		StringVarP(&dataDir, "data-dir", "d", "", "Data directory for DXLander configuration and projects")
	cmd.PersistentFlags().VarP(logging.LogLevel, "log-level", "l", "Set log verbosity level")
	cmd.PersistentFlags().VarP(output.NoColor, "no-color", "c", "Disable colored terminal output")

	cmd.AddCommand(project.NewCmdProject())
	cmd.AddCommand(deployment.NewCmdDeployment())
	cmd.AddCommand(server.NewCmdServer())
	cmd.AddCommand(version.NewCmdVersion())
	return cmd
}
