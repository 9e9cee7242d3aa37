package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/captions"
	"quill/internal/exporting"
	"quill/internal/media"
	"quill/internal/services/speech"
	"quill/internal/textutil"
)

type transcribeResult struct {
	Source          string  `json:"source"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	CueCount        int     `json:"cue_count"`
	CaptionPath     string  `json:"caption_path,omitempty"`
	FilesRendered   int     `json:"files_rendered"`
	TranscriptPath  string  `json:"transcript_path,omitempty"`
}

func newTranscribeCommand(ctx *cliEnv) *cobra.Command {
	var outputDir string
	var saveTranscript bool

	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe a single media file without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			if !media.IsSupportedPath(absPath) {
				return fmt.Errorf("unsupported file extension %q (supported: %s)",
					strings.ToLower(filepath.Ext(absPath)), strings.Join(media.SupportedExtensions(), ", "))
			}

			probe, probeErr := media.Probe(cmd.Context(), cfg.FFprobeBinary(), absPath)
			if probeErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: media probe failed: %v\n", probeErr)
			} else if len(probe.RawJSON()) > 0 && !probe.HasAudio() {
				return fmt.Errorf("%s has no audio streams to transcribe", absPath)
			}

			audio, err := os.ReadFile(absPath)
			if err != nil {
				return fmt.Errorf("read source media: %w", err)
			}
			if len(audio) == 0 {
				return fmt.Errorf("source file is empty: %s", absPath)
			}

			sc := cfg.GetSpeech()
			client := speech.NewClient(speech.Config{
				APIKey:         sc.APIKey,
				BaseURL:        sc.BaseURL,
				Model:          sc.Model,
				Language:       sc.Language,
				Granularity:    sc.Granularity,
				Punctuation:    sc.Punctuation,
				TimeoutSeconds: sc.TimeoutSeconds,
			})

			fmt.Fprintf(cmd.OutOrStdout(), "Transcribing %s...\n", filepath.Base(absPath))
			payload, err := client.Transcribe(cmd.Context(), speech.Request{
				Audio:           audio,
				MIMEType:        media.MIMETypeForPath(absPath),
				DurationSeconds: probe.DurationSeconds(),
			})
			if err != nil {
				return fmt.Errorf("transcribe audio: %w", err)
			}
			if strings.TrimSpace(payload) == "" {
				return errors.New("speech service returned an empty transcript")
			}

			outDir := strings.TrimSpace(outputDir)
			if outDir == "" {
				outDir = strings.TrimSpace(cfg.Paths.OutputDir)
			}
			if outDir == "" {
				outDir = filepath.Dir(absPath)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			slug := exporting.SlugForTitle(textutil.DeriveTitle(absPath), "transcript")
			result := transcribeResult{
				Source:          absPath,
				DurationSeconds: probe.DurationSeconds(),
			}

			if saveTranscript {
				transcriptPath := filepath.Join(outDir, slug+".transcript.json")
				if err := os.WriteFile(transcriptPath, []byte(payload), 0o644); err != nil {
					return fmt.Errorf("write transcript payload: %w", err)
				}
				result.TranscriptPath = transcriptPath
			}

			cues := captions.Extract(payload)
			if len(cues) == 0 {
				if result.TranscriptPath != "" {
					return fmt.Errorf("no caption cues could be extracted; raw transcript saved to %s", result.TranscriptPath)
				}
				return errors.New("no caption cues could be extracted from the transcript (rerun with --save-transcript to inspect the raw payload)")
			}

			primary, rendered, err := exporting.WriteCaptionFiles(outDir, slug, cfg.Captions.Formats, cues)
			if err != nil {
				return fmt.Errorf("render captions: %w", err)
			}
			result.CueCount = len(cues)
			result.CaptionPath = primary
			result.FilesRendered = rendered

			if ctx.JSONMode() {
				return emitJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Captions written to %s (%d cues)\n", primary, len(cues))
			if rendered > 1 {
				fmt.Fprintf(out, "Rendered %d caption files\n", rendered)
			}
			if result.TranscriptPath != "" {
				fmt.Fprintf(out, "Transcript saved to %s\n", result.TranscriptPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for rendered captions (defaults to output_dir, then the source directory)")
	cmd.Flags().BoolVar(&saveTranscript, "save-transcript", false, "Also save the raw transcript payload next to the captions")
	return cmd
}
