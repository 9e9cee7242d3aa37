package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/media"
)

func newAddCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file...>",
		Short: "Add media files to the transcription queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				absPath, err := filepath.Abs(arg)
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
				paths = append(paths, absPath)
			}

			return ctx.withQueue(func(api queueAPI) error {
				out := cmd.OutOrStdout()
				for _, path := range paths {
					item, err := api.Add(cmd.Context(), path)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Queued %s as item #%d\n", filepath.Base(path), item.ID)
				}
				return nil
			})
		},
	}
}
