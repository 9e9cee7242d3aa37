package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"quill/internal/ipc"
)

const logFollowWaitMillis = 1000

func newLogsCommand(ctx *cliEnv) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				return streamLogs(cmd.Context(), cmd.OutOrStdout(), client, lines, follow)
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

// streamLogs prints the daemon log tail over IPC. The first request asks for
// the last `lines` entries (offset -1 means "from the end"); follow mode then
// re-polls from the returned offset so only new lines arrive.
func streamLogs(ctx context.Context, out io.Writer, client *ipc.Client, lines int, follow bool) error {
	req := ipc.LogTailRequest{
		Offset:     -1,
		Limit:      max(lines, 0),
		Follow:     follow,
		WaitMillis: logFollowWaitMillis,
	}
	if req.Limit == 0 {
		req.Offset = 0
	}

	sawOutput := false
	for {
		resp, err := client.LogTail(req)
		if err != nil {
			return fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(out, line)
			sawOutput = true
		}
		if !follow {
			if !sawOutput {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		req.Offset = resp.Offset
		req.Limit = 0
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
