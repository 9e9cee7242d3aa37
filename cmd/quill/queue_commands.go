package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/ipc"
	"quill/internal/language"
)

func newQueueCommand(ctx *cliEnv) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the transcription queue",
	}

	queueCmd.AddCommand(
		newQueueStatusCommand(ctx),
		newQueueListCommand(ctx),
		newQueueShowCommand(ctx),
		newQueueClearCommand(ctx),
		newQueueResetCommand(ctx),
		newQueueRetryCommand(ctx),
		newQueueStopCommand(ctx),
		newQueueRemoveCommand(ctx),
		newQueueHealthSubcommand(ctx),
	)

	return queueCmd
}

func parseItemIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("item id %q is not a positive integer", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newQueueStatusCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize queue item counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(api queueAPI) error {
				stats, err := api.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return emitJSON(cmd.OutOrStdout(), stats)
				}
				if rendered := queueStatusTable(stats); rendered != "" {
					fmt.Fprintln(cmd.OutOrStdout(), rendered)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *cliEnv) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(api queueAPI) error {
				items, err := api.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return emitJSON(cmd.OutOrStdout(), items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), queueListTable(items))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Only show items with this status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show details for a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(api queueAPI) error {
				item, err := api.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("queue item %d not found", ids[0])
				}
				if ctx.JSONMode() {
					return emitJSON(cmd.OutOrStdout(), item)
				}
				printQueueItemDetails(cmd, *item)
				return nil
			})
		},
	}
}

func printQueueItemDetails(cmd *cobra.Command, item ipc.QueueItem) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Item #%d\n", item.ID)
	fmt.Fprintf(out, "  Title:      %s\n", itemDisplayTitle(item))
	fmt.Fprintf(out, "  Source:     %s\n", item.SourcePath)
	fmt.Fprintf(out, "  Status:     %s\n", humanizeToken(item.Status))
	fmt.Fprintf(out, "  Lane:       %s\n", laneLabel(item.Lane))
	if item.Progress.Stage != "" {
		progress := item.Progress.Stage
		if item.Progress.Percent > 0 {
			progress = fmt.Sprintf("%s (%.0f%%)", progress, item.Progress.Percent)
		}
		if item.Progress.Message != "" {
			progress = fmt.Sprintf("%s: %s", progress, item.Progress.Message)
		}
		fmt.Fprintf(out, "  Progress:   %s\n", progress)
	}
	if item.CreatedAt != "" {
		fmt.Fprintf(out, "  Created:    %s\n", shortTimestamp(item.CreatedAt))
	}
	if item.UpdatedAt != "" {
		fmt.Fprintf(out, "  Updated:    %s\n", shortTimestamp(item.UpdatedAt))
	}
	if item.DurationSeconds > 0 {
		fmt.Fprintf(out, "  Duration:   %.1fs\n", item.DurationSeconds)
	}
	if item.Language != "" {
		label := item.Language
		if name := language.DisplayName(item.Language); name != "" {
			label = fmt.Sprintf("%s (%s)", name, item.Language)
		}
		fmt.Fprintf(out, "  Language:   %s\n", label)
	}
	if item.TranscriptPath != "" {
		fmt.Fprintf(out, "  Transcript: %s\n", item.TranscriptPath)
	}
	if item.CaptionPath != "" {
		fmt.Fprintf(out, "  Captions:   %s (%d cues)\n", item.CaptionPath, item.CueCount)
	}
	if item.NeedsReview {
		fmt.Fprintf(out, "  Review:     %s\n", item.ReviewReason)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:      %s\n", item.ErrorMessage)
	}
}

func newQueueClearCommand(ctx *cliEnv) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearForce bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withQueue(func(api queueAPI) error {
				out := cmd.OutOrStdout()
				if clearForce {
					fmt.Fprintln(out, "Clearing queue without confirmation (--force)")
				}
				switch {
				case clearCompleted:
					removed, err := api.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed items\n", removed)
				case clearFailed:
					removed, err := api.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed items\n", removed)
				default:
					removed, err := api.ClearAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d queue items\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Limit removal to completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Limit removal to failed items")
	cmd.Flags().BoolVar(&clearForce, "force", false, "Accepted for compatibility; removal never prompts")
	return cmd
}

func newQueueResetCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight items to the start of their stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(api queueAPI) error {
				updated, err := api.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed or review-parked queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueue(func(api queueAPI) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := api.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d items\n", updated)
					return nil
				}

				for _, id := range ids {
					item, err := api.Describe(cmd.Context(), id)
					if err != nil {
						return err
					}
					if item == nil {
						fmt.Fprintf(out, "Item %d not found\n", id)
						continue
					}
					status := strings.ToLower(strings.TrimSpace(item.Status))
					if status != "failed" && status != "review" {
						fmt.Fprintf(out, "Item %d is not in a retryable state\n", id)
						continue
					}
					updated, err := api.Retry(cmd.Context(), []int64{id})
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Item %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Item %d is not in a retryable state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueStopCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <itemID...>",
		Short: "Park queue items for review so the workflow skips them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(api queueAPI) error {
				updated, err := api.Stop(cmd.Context(), ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <itemID...>",
		Short: "Delete queue items regardless of status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(api queueAPI) error {
				removed, err := api.Remove(cmd.Context(), ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
				return nil
			})
		},
	}
}

func newQueueHealthSubcommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report queue health counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(api queueAPI) error {
				health, err := api.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return emitJSON(cmd.OutOrStdout(), ipc.QueueHealthResponse(health))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nReview: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Processing,
					health.Failed,
					health.Review,
					health.Completed,
				)
				return nil
			})
		},
	}
}
