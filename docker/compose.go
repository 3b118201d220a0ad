package docker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dxlander/dxlander/config"
)

// ComposeFileName is the compose file every staged build directory carries.
const ComposeFileName = "docker-compose.yml"

// ComposeProject runs compose CLI commands for one deployment namespace.
// WorkingDir is the staged build directory; Name is the orchestration
// namespace used as the compose project name.
type ComposeProject struct {
	Name       string
	WorkingDir string
	EnvVars    map[string]string
	Config     *config.Config
}

func NewComposeProject(name, workingDir string, envVars map[string]string, cfg *config.Config) *ComposeProject {
	return &ComposeProject{
		Name:       name,
		WorkingDir: workingDir,
		EnvVars:    envVars,
		Config:     cfg,
	}
}

// Up builds and starts all services. Build and startup failures are returned
// inside UpResult, not as an error, so the captured logs always reach the
// caller. Each output line is also forwarded to outputChan when non-nil.
func (p *ComposeProject) Up(build bool, outputChan chan<- StreamMessage) *UpResult {
	args := []string{"--detach", "--wait", "--quiet-pull", "--no-color", "--remove-orphans"}
	if build {
		args = append(args, "--build")
	}
	cmd := p.prepareCommand("up", args)

	logs, err := p.executeCommandStreaming(cmd, outputChan)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "docker_compose",
			"operation", "compose_up",
			"project_name", p.Name,
			"error", err)
		return &UpResult{
			Success:      false,
			ErrorMessage: err.Error(),
			Logs:         logs,
		}
	}

	services, err := p.configServices()
	if err != nil {
		// Started fine but service discovery failed; not fatal
		slog.Warn("Failed to list compose services after up",
			"project_name", p.Name,
			"error", err)
	}

	return &UpResult{
		Success:  true,
		Services: services,
		Logs:     logs,
	}
}

// Start brings up previously built services. Safe to call when the project is
// already running.
func (p *ComposeProject) Start() *OpResult {
	return p.lifecycleOp("start")
}

// Stop halts running services. Safe to call when already stopped.
func (p *ComposeProject) Stop() *OpResult {
	return p.lifecycleOp("stop")
}

// Restart restarts the project's services.
func (p *ComposeProject) Restart() *OpResult {
	return p.lifecycleOp("restart")
}

func (p *ComposeProject) lifecycleOp(op string) *OpResult {
	cmd := p.prepareCommand(op, nil)
	output, err := p.executeCommand(cmd)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "docker_compose",
			"operation", "compose_"+op,
			"project_name", p.Name,
			"error", err,
			"output", output)
		return &OpResult{Success: false, ErrorMessage: composeErrorMessage(output, err)}
	}
	return &OpResult{Success: true}
}

// Down tears down containers and networks, optionally named volumes and
// locally built images. A project that no longer exists is not an error.
func (p *ComposeProject) Down(opts DownOptions) error {
	args := []string{"--remove-orphans"}
	if opts.RemoveVolumes {
		args = append(args, "--volumes")
	}
	if opts.RemoveImages {
		args = append(args, "--rmi", "local")
	}
	cmd := p.prepareCommand("down", args)

	output, err := p.executeCommand(cmd)
	if err != nil {
		// Compose down on an unknown project exits zero, but a missing
		// compose file or daemon hiccup should not block teardown either
		slog.Warn("Compose down failed, continuing teardown",
			"project_name", p.Name,
			"error", err,
			"output", output)
	}
	return nil
}

// composePsEntry mirrors the JSON-lines format of compose ps.
type composePsEntry struct {
	Service string `json:"Service"`
	Name    string `json:"Name"`
	State   string `json:"State"`
	Status  string `json:"Status"`
}

// Ps reports live container state. An empty service list (project never
// started or fully removed) yields Running=false with no error.
func (p *ComposeProject) Ps() (*PsResult, error) {
	cmd := p.prepareCommand("ps", []string{"--all", "--format", "json"})
	output, err := p.executeCommand(cmd)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "docker_compose",
			"operation", "compose_ps",
			"project_name", p.Name,
			"error", err)
		return nil, fmt.Errorf("compose ps failed: %w", err)
	}

	return parsePsOutput(output), nil
}

// parsePsOutput decodes the JSON-lines output of compose ps.
func parsePsOutput(output string) *PsResult {
	result := &PsResult{}
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry composePsEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			slog.Error("Failed to parse container JSON",
				"line", line,
				"error", err)
			continue
		}
		state := entry.State
		if state == "" {
			state = entry.Status
		}
		result.Services = append(result.Services, ServiceState{
			Name:   entry.Service,
			Status: state,
		})
		if state == "running" {
			result.Running = true
		}
	}
	return result
}

// Logs returns combined log text. A project with no containers at all yields
// ErrProjectNotFound so callers can tell "no logs yet" from "project doesn't
// exist".
func (p *ComposeProject) Logs(opts LogsOptions) (string, error) {
	ps, err := p.Ps()
	if err != nil {
		return "", err
	}
	if len(ps.Services) == 0 {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, p.Name)
	}

	args := []string{"--no-color"}
	if opts.Tail > 0 {
		args = append(args, "--tail", strconv.Itoa(opts.Tail))
	}
	if opts.Service != "" {
		args = append(args, opts.Service)
	}
	cmd := p.prepareCommand("logs", args)

	output, err := p.executeCommand(cmd)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "docker_compose",
			"operation", "compose_logs",
			"project_name", p.Name,
			"error", err)
		return "", fmt.Errorf("compose logs failed: %w", err)
	}
	return output, nil
}

// configServices lists the service names the compose file defines.
func (p *ComposeProject) configServices() ([]string, error) {
	cmd := p.prepareCommand("config", []string{"--services"})
	output, err := p.executeCommand(cmd)
	if err != nil {
		return nil, fmt.Errorf("compose config failed: %w", err)
	}

	var services []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			services = append(services, line)
		}
	}
	sort.Strings(services)
	return services, nil
}

func (p *ComposeProject) prepareCommand(command string, args []string) *exec.Cmd {
	commandArgs := []string{
		"--host", p.Config.DockerHost,
		"compose",
		"--project-name", p.Name,
		"--file", filepath.Join(p.WorkingDir, ComposeFileName),
	}
	commandArgs = append(commandArgs, command)
	commandArgs = append(commandArgs, args...)

	slog.Debug("Executing Docker Compose command",
		"command", p.Config.DockerCommand,
		"args", commandArgs,
		"working_dir", p.WorkingDir)

	cmd := exec.Command(p.Config.DockerCommand, commandArgs...)
	cmd.Dir = p.WorkingDir

	// Inject resolved deployment environment on top of the process env
	if len(p.EnvVars) > 0 {
		env := os.Environ()
		keys := make([]string, 0, len(p.EnvVars))
		for key := range p.EnvVars {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			env = append(env, key+"="+p.EnvVars[key])
		}
		cmd.Env = env
		slog.Debug("Injecting variables",
			"project_name", p.Name,
			"var_count", len(p.EnvVars))
	}

	return cmd
}

func (p *ComposeProject) executeCommand(cmd *exec.Cmd) (string, error) {
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// executeCommandStreaming runs the command forwarding each output line to
// outputChan while buffering everything for the returned log text. Stderr
// lines are tagged as errors only if the command ultimately fails.
func (p *ComposeProject) executeCommandStreaming(cmd *exec.Cmd, outputChan chan<- StreamMessage) (string, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", err
	}

	if err := cmd.Start(); err != nil {
		return "", err
	}

	var mu sync.Mutex
	var logs strings.Builder

	emit := func(msgType, line string) {
		mu.Lock()
		logs.WriteString(line)
		logs.WriteString("\n")
		mu.Unlock()
		if outputChan != nil {
			outputChan <- StreamMessage{Type: msgType, Message: line}
		}
	}

	// Use a WaitGroup to ensure all goroutines complete before returning
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			emit("progress", scanner.Text())
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			emit("progress", scanner.Text())
		}
	}()

	cmdErr := cmd.Wait()

	// Wait for all goroutines to finish reading output before checking for
	// errors, so all output is captured even if the command failed
	wg.Wait()

	if cmdErr != nil {
		if outputChan != nil {
			outputChan <- StreamMessage{Type: "error", Message: cmdErr.Error()}
		}
		return logs.String(), cmdErr
	}

	slog.Debug("Docker Compose command completed successfully",
		"project_name", p.Name)
	return logs.String(), nil
}

// composeErrorMessage prefers the CLI's own output over the bare exit error.
func composeErrorMessage(output string, err error) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return err.Error()
	}
	return trimmed
}
