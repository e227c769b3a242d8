package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"aivideodub/internal/config"
	"aivideodub/internal/logging"
	"aivideodub/internal/queue"
	"aivideodub/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the queue",
		Long:  "Runs the dubbing pipeline. By default it keeps polling the queue until interrupted; with --once it drains the currently ready items and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				// One processing daemon per queue database.
				lock := flock.New(filepath.Join(cfg.Paths.LogDir, "aivideodub.lock"))
				locked, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire run lock: %w", err)
				}
				if !locked {
					return fmt.Errorf("another aivideodub run is already processing this queue")
				}
				defer lock.Unlock()

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("initialize logging: %w", err)
				}

				manager := workflow.NewManager(cfg, store, logger)
				if once {
					return runOnce(cmd, store, manager)
				}
				return runDaemon(cmd, manager)
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Drain ready items and exit instead of polling")
	return cmd
}

func runOnce(cmd *cobra.Command, store *queue.Store, manager *workflow.Manager) error {
	runCtx := cmd.Context()
	if _, err := store.ResetStuckProcessing(runCtx); err != nil {
		return fmt.Errorf("reset stuck items: %w", err)
	}
	processed := 0
	for {
		ok, err := manager.RunOnce(runCtx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "item failed: %v\n", err)
		}
		if !ok {
			break
		}
		processed++
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d item(s)\n", processed)
	return nil
}

func runDaemon(cmd *cobra.Command, manager *workflow.Manager) error {
	runCtx := cmd.Context()
	if err := manager.Start(runCtx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Processing queue; press Ctrl-C to stop")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case <-runCtx.Done():
	case <-signals:
	}
	manager.Stop()
	fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
	return nil
}
