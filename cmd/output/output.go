// Package output provides functions to print messages with optional color formatting
package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/dxlander/dxlander/domain"
)

const (
	Plain   = color.FgWhite
	Success = color.FgGreen
	Warning = color.FgYellow
	Error   = color.FgRed
)

var maybeColorize func(kind color.Attribute, tmpl string, a ...any) string

// InitColors sets up color functions based on environment
func InitColors(isColorDisabled bool) {
	if color.NoColor || isColorDisabled {
		// Fallback to plain formatting if colors are not supported
		maybeColorize = func(kind color.Attribute, tmpl string, a ...any) string {
			return fmt.Sprintf(tmpl, a...)
		}
	} else {
		maybeColorize = func(kind color.Attribute, tmpl string, a ...any) string {
			return color.New(kind).SprintfFunc()(tmpl, a...)
		}
	}
}

// PrintMessage formats a message with color (if enabled) and returns it
func PrintMessage(kind color.Attribute, tmpl string, a ...any) string {
	if maybeColorize == nil || kind == Plain {
		return fmt.Sprintf(tmpl+"\n", a...)
	}
	return fmt.Sprintln(maybeColorize(kind, tmpl, a...))
}

func FprintPlain(cmd *cobra.Command, tmpl string, a ...any) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), PrintMessage(Plain, tmpl, a...))
	return err
}

func FprintSuccess(cmd *cobra.Command, tmpl string, a ...any) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), PrintMessage(Success, tmpl, a...))
	return err
}

func FprintWarning(cmd *cobra.Command, tmpl string, a ...any) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), PrintMessage(Warning, tmpl, a...))
	return err
}

func FprintError(cmd *cobra.Command, tmpl string, a ...any) error {
	_, err := fmt.Fprint(cmd.ErrOrStderr(), PrintMessage(Error, tmpl, a...))
	return err
}

func PrintTable(header []string, data [][]string) (string, error) {
	buf := strings.Builder{}

	table := tablewriter.NewTable(
		&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines: tw.Lines{
					ShowHeaderLine: tw.Off,
				},
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{PerColumn: []tw.Align{tw.AlignRight, tw.AlignLeft}},
			},
		}))

	if len(header) > 0 {
		table.Header(header)
	}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("bulk adding data to table: %w", err)
	}

	if err := table.Render(); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}

	return buf.String(), nil
}

func PrintProjectDetails(project *domain.Project) (string, error) {
	data := [][]string{
		{"ID", project.ID.String()},
		{"Name", project.Name},
		{"Git URL", project.GitURL},
		{"Git Branch", project.GitBranch},
		{"Working Directory", project.WorkingDir},
		{"Last Commit", FormatCommitHash(project.LastCommitStr())},
		{"Created At", project.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Updated At", project.UpdatedAt.Format("2006-01-02 15:04:05")},
	}

	table, err := PrintTable([]string{}, data)
	if err != nil {
		return "", fmt.Errorf("printing project details table: %w", err)
	}
	return table, nil
}

func PrintProjectList(projects []*domain.Project) (string, error) {
	if len(projects) == 0 {
		return PrintMessage(Plain, "No projects found."), nil
	}

	header := []string{"ID", "Name", "Branch", "Commit", "Created At"}
	var data [][]string
	for _, project := range projects {
		data = append(data, []string{
			project.ID.String(),
			project.Name,
			project.GitBranch,
			FormatCommitHash(project.LastCommitStr()),
			project.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	table, err := PrintTable(header, data)
	if err != nil {
		return "", fmt.Errorf("printing project list table: %w", err)
	}
	return table, nil
}

func PrintDeploymentDetails(deployment *domain.Deployment) (string, error) {
	data := [][]string{
		{"ID", deployment.ID.String()},
		{"Name", deployment.Name},
		{"Environment", deployment.Environment},
		{"Platform", deployment.Platform.String()},
		{"Status", deployment.Status.String()},
	}

	if deployment.Metadata != nil {
		data = append(data, []string{"Namespace", deployment.Metadata.Namespace})
		if len(deployment.Metadata.Services) > 0 {
			data = append(data, []string{"Services", strings.Join(deployment.Metadata.Services, ", ")})
		}
	}
	if deployment.DeployURL != "" {
		data = append(data, []string{"Deploy URL", deployment.DeployURL})
	}
	if deployment.ErrorMessage != "" {
		data = append(data, []string{"Error", deployment.ErrorMessage})
	}
	data = append(data,
		[]string{"Created At", deployment.CreatedAt.Format("2006-01-02 15:04:05")},
		[]string{"Updated At", deployment.UpdatedAt.Format("2006-01-02 15:04:05")},
	)

	table, err := PrintTable([]string{}, data)
	if err != nil {
		return "", fmt.Errorf("printing deployment details table: %w", err)
	}
	return table, nil
}

func PrintDeploymentList(deployments []*domain.Deployment) (string, error) {
	if len(deployments) == 0 {
		return PrintMessage(Plain, "No deployments found."), nil
	}

	header := []string{"ID", "Name", "Environment", "Status", "Created At"}
	var data [][]string
	for _, deployment := range deployments {
		data = append(data, []string{
			deployment.ID.String(),
			deployment.Name,
			deployment.Environment,
			deployment.Status.String(),
			deployment.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	table, err := PrintTable(header, data)
	if err != nil {
		return "", fmt.Errorf("printing deployment list table: %w", err)
	}
	return table, nil
}

func PrintActivityLog(entries []*domain.ActivityLogEntry) (string, error) {
	if len(entries) == 0 {
		return PrintMessage(Plain, "No activity recorded."), nil
	}

	header := []string{"Time", "Action", "Result"}
	var data [][]string
	for _, entry := range entries {
		data = append(data, []string{
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
			entry.Action,
			entry.Result,
		})
	}

	table, err := PrintTable(header, data)
	if err != nil {
		return "", fmt.Errorf("printing activity log table: %w", err)
	}
	return table, nil
}

// FormatCommitHash shortens a commit hash for display
func FormatCommitHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// CLI flag for disabling color output

// NoColor is a flag that can be used to disable colored output in the CLI.
var NoColor = &noColorFlag{set: false}

type noColorFlag struct {
	set bool
}

func (f *noColorFlag) Set(value string) error {
	// This is a boolean flag, so we ignore the value and just mark it as set
	f.set = true
	return nil
}

func (f *noColorFlag) String() string {
	if f.set {
		return "true"
	}
	return "false"
}

func (f *noColorFlag) Type() string {
	return "bool"
}

// IsSet returns true if the --no-color flag was explicitly set
func (f *noColorFlag) IsSet() bool {
	return f.set
}

// IsBoolFlag tells pflag this is a boolean flag (no argument required)
func (f *noColorFlag) IsBoolFlag() bool {
	return true
}
