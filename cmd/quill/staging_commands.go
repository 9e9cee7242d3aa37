package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quill/internal/ipc"
	"quill/internal/logging"
	"quill/internal/queue"
	"quill/internal/staging"
)

func newStagingCommand(ctx *cliEnv) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and clean staging directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx), newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show staging directories and their sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			stagingDir := strings.TrimSpace(cfg.Paths.StagingDir)
			if stagingDir == "" {
				if ctx.JSONMode() {
					return emitJSON(cmd.OutOrStdout(), map[string]any{
						"staging_dir":      "",
						"directories":      []any{},
						"total_size_bytes": 0,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Staging directory not configured")
				return nil
			}

			dirs, err := staging.ListDirectories(stagingDir)
			if err != nil {
				return fmt.Errorf("scan staging directory: %w", err)
			}

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}

			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return emitJSON(cmd.OutOrStdout(), map[string]any{
					"staging_dir":      stagingDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging directories found")
				return nil
			}

			fmt.Fprintf(out, "Staging directory: %s\n\n", stagingDir)
			view := newTableView("Directory", "Age", "Size").alignNumeric(1, 2)
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				view.addRow(dir.Name, formatAge(age), logging.FormatBytes(dir.Size))
			}
			fmt.Fprintln(out, view.render())
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), logging.FormatBytes(totalSize))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *cliEnv) *cobra.Command {
	var cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete staging directories nothing owns",
		Long: `Remove staging directories left behind by cleared or removed queue items.

By default only directories no current queue item owns are removed; the work
directories of items still in the queue are kept so their transcripts stay
readable. Use --all to remove every staging directory regardless of queue
state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			stagingDir := strings.TrimSpace(cfg.Paths.StagingDir)
			if stagingDir == "" {
				if ctx.JSONMode() {
					return emitJSON(cmd.OutOrStdout(), map[string]any{"removed": 0, "errors": []string{}})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Staging directory not configured")
				return nil
			}

			if cleanAll {
				result := staging.CleanStale(cmd.Context(), stagingDir, 0, nil)
				return writeCleanSummary(cmd, ctx, result, "staging")
			}

			return ctx.withQueue(func(q queueAPI) error {
				items, err := q.List(cmd.Context(), nil)
				if err != nil {
					return err
				}
				active := activeStagingNames(items, stagingDir)
				result := staging.CleanOrphaned(cmd.Context(), stagingDir, active, nil)
				return writeCleanSummary(cmd, ctx, result, "orphaned staging")
			})
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove all staging directories, including ones owned by queue items")

	return cmd
}

// activeStagingNames maps every queued item to the lowercased base name of
// its staging root so the orphan sweep can recognize owned directories.
func activeStagingNames(items []ipc.QueueItem, stagingDir string) map[string]struct{} {
	active := make(map[string]struct{}, len(items))
	for _, item := range items {
		root := queue.Item{ID: item.ID, Title: item.Title}.StagingRoot(stagingDir)
		if root == "" {
			continue
		}
		active[strings.ToLower(filepath.Base(root))] = struct{}{}
	}
	return active
}

func writeCleanSummary(cmd *cobra.Command, ctx *cliEnv, result staging.Result, label string) error {
	if ctx.JSONMode() {
		errs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
		}
		return emitJSON(cmd.OutOrStdout(), map[string]any{
			"removed": len(result.Removed),
			"errors":  errs,
		})
	}

	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s directories to clean\n", label)
		return nil
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d %s directories, %d errors\n", len(result.Removed), label, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d %s directories\n", len(result.Removed), label)
	return nil
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
