package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aivideodub/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Verify the environment before processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, 8)
			failures := 0
			for _, status := range preflight.CheckSystemDeps(cfg) {
				detail := status.Detail
				mark := passMark(status.Available)
				if status.Available {
					detail = status.Command
				} else if !status.Optional {
					failures++
				}
				rows = append(rows, []string{status.Name, mark, detail})
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				if !result.Passed {
					failures++
				}
				rows = append(rows, []string{result.Name, passMark(result.Passed), result.Detail})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "OK", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			if failures > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failures)
			}
			return nil
		},
	}
}

func passMark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
