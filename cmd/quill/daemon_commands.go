package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quill/internal/daemonctl"
	"quill/internal/ipc"
)

const (
	daemonStopTimeout  = 5 * time.Second
	daemonStartTimeout = 10 * time.Second
)

func newDaemonCommands(ctx *cliEnv) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
		newRestartCommand(ctx),
		newStatusCommand(ctx),
	}
}

func newStartCommand(ctx *cliEnv) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quill daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonctl.ResolveDaemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx, logLevel), daemonStartTimeout)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			reportStartState(stdout, result)
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override daemon log level (debug, info, warn, error)")
	return cmd
}

func newStopCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the quill daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configOrNil(), daemonStopTimeout)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			reportStopProgress(stdout, result)
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newRestartCommand(ctx *cliEnv) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the quill daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonctl.ResolveDaemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configOrNil(),
				exe,
				daemonLaunchOptions(ctx, logLevel),
				daemonStopTimeout,
				daemonStartTimeout,
			)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if result.WasRunning {
				reportStopProgress(stdout, result.Stop)
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			if result.Start.State == daemonctl.StartStateRequested {
				reportStartState(stdout, result.Start)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override daemon log level (debug, info, warn, error)")
	return cmd
}

func reportStartState(out io.Writer, result daemonctl.StartResult) {
	switch result.State {
	case daemonctl.StartStateStarted:
		fmt.Fprintln(out, "Daemon started")
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintln(out, "Daemon already running")
	case daemonctl.StartStateRequested:
		if message := strings.TrimSpace(result.Message); message != "" {
			fmt.Fprintln(out, message)
			return
		}
		fmt.Fprintln(out, "Start request sent")
	}
}

func reportStopProgress(out io.Writer, result daemonctl.StopResult) {
	if !result.StopAcknowledged {
		fmt.Fprintln(out, "Stop request sent")
	} else {
		fmt.Fprintln(out, "Stopping daemon workflow...")
	}
	if result.ForcedKill && result.PID > 0 {
		fmt.Fprintf(out, "Stopping daemon process (pid %d)...\n", result.PID)
	}
}

func newStatusCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configOrNil())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return emitJSON(cmd.OutOrStdout(), statusResp)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			printSection := func(title string, lines []string) {
				for _, line := range renderSectionHeader(title, colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range lines {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)
			}

			printSection("System Status", checkLines(statusResp.SystemChecks, colorize))
			printSection("Dependencies", dependencyLines(statusResp.Dependencies, statusResp.DependencySummary, colorize))
			printSection("Directories", checkLines(statusResp.DirectoryChecks, colorize))

			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if rendered := queueStatusTable(statusResp.QueueStats); rendered != "" {
				fmt.Fprintln(stdout, rendered)
				return nil
			}
			fmt.Fprintln(stdout, "Queue is empty")
			return nil
		},
	}
}

func checkLines(checks []ipc.StatusLine, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		lines = append(lines, renderStatusLine(check.Label, statusKindFromSeverity(check.Severity), check.Detail, colorize))
	}
	return lines
}

func dependencyLines(deps []ipc.DependencyStatus, summary ipc.DependencySummary, colorize bool) []string {
	lines := []string{renderStatusLine("Summary", statusKindFromSeverity(summary.Severity), summary.Detail, colorize)}
	var missing []string
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, statusKindFromSeverity(dep.Severity), detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		note := fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", "))
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, note, colorize))
	}
	return lines
}

func daemonLaunchOptions(ctx *cliEnv, logLevel string) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: strings.TrimSpace(logLevel)}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
