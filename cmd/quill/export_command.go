package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/captions"
	"quill/internal/exporting"
	"quill/internal/textutil"
)

type exportResult struct {
	TranscriptPath string `json:"transcript_path"`
	CueCount       int    `json:"cue_count"`
	CaptionPath    string `json:"caption_path"`
	FilesRendered  int    `json:"files_rendered"`
}

func newExportCommand(ctx *cliEnv) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export <itemID|transcript-file>",
		Short: "Render caption files from a stored transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			transcriptPath, slug, err := resolveExportSource(cmd, ctx, args[0])
			if err != nil {
				return err
			}

			payload, err := os.ReadFile(transcriptPath)
			if err != nil {
				return fmt.Errorf("read transcript payload: %w", err)
			}

			cues := captions.Extract(string(payload))
			if len(cues) == 0 {
				return errors.New("no caption cues could be extracted from the transcript")
			}

			outDir := strings.TrimSpace(outputDir)
			if outDir == "" {
				outDir = strings.TrimSpace(cfg.Paths.OutputDir)
			}
			if outDir == "" {
				outDir = filepath.Dir(transcriptPath)
			}

			primary, rendered, err := exporting.WriteCaptionFiles(outDir, slug, cfg.Captions.Formats, cues)
			if err != nil {
				return fmt.Errorf("render captions: %w", err)
			}

			if ctx.JSONMode() {
				return emitJSON(cmd.OutOrStdout(), exportResult{
					TranscriptPath: transcriptPath,
					CueCount:       len(cues),
					CaptionPath:    primary,
					FilesRendered:  rendered,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Captions written to %s (%d cues)\n", primary, len(cues))
			if rendered > 1 {
				fmt.Fprintf(out, "Rendered %d caption files\n", rendered)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for rendered captions (defaults to output_dir, then the transcript directory)")
	return cmd
}

// resolveExportSource accepts either a queue item id or a transcript file
// path and returns the payload location plus a slug for output naming.
func resolveExportSource(cmd *cobra.Command, ctx *cliEnv, arg string) (string, string, error) {
	if id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64); err == nil && id > 0 {
		var transcriptPath, slug string
		err := ctx.withQueue(func(api queueAPI) error {
			item, err := api.Describe(cmd.Context(), id)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("queue item %d not found", id)
			}
			transcriptPath = strings.TrimSpace(item.TranscriptPath)
			if transcriptPath == "" {
				return fmt.Errorf("queue item %d has no transcript recorded; run transcription first", id)
			}
			slug = exporting.SlugForTitle(item.Title, fmt.Sprintf("queue-%d", id))
			return nil
		})
		return transcriptPath, slug, err
	}

	absPath, err := filepath.Abs(arg)
	if err != nil {
		return "", "", fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("transcript file does not exist: %s", absPath)
		}
		return "", "", fmt.Errorf("inspect transcript file: %w", err)
	}
	return absPath, exporting.SlugForTitle(textutil.DeriveTitle(absPath), "captions"), nil
}
