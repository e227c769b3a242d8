package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"aivideodub/internal/config"
	"aivideodub/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url-or-file>",
		Short: "Queue a video for dubbing",
		Long:  "Queues a remote URL for download and dubbing, or a local video file that skips the download stage.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			if source == "" {
				return fmt.Errorf("empty source")
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				var (
					item *queue.Item
					err  error
				)
				if isLocalFile(source) {
					abs, absErr := filepath.Abs(source)
					if absErr != nil {
						return fmt.Errorf("resolve path: %w", absErr)
					}
					item, err = store.NewFile(cmd.Context(), abs)
				} else {
					item, err = store.NewURL(cmd.Context(), source)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item %d (%s)\n", item.ID, item.DisplayTitle())
				return nil
			})
		},
	}
}

func isLocalFile(source string) bool {
	info, err := os.Stat(source)
	return err == nil && !info.IsDir()
}
