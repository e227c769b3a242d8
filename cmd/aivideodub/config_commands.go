package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aivideodub/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write an annotated sample configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if ctx.configFlag != nil && strings.TrimSpace(*ctx.configFlag) != "" {
				path = *ctx.configFlag
			}
			if err := config.WriteSample(path); err != nil {
				return err
			}
			expanded, err := config.ExpandPath(path)
			if err != nil {
				expanded = path
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", expanded)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staging directory: %s\n", cfg.Paths.StagingDir)
			fmt.Fprintf(out, "Output directory:  %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Log directory:     %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Languages:         %s -> %s\n", cfg.Dubbing.SourceLanguage, cfg.Dubbing.TargetLanguage)
			fmt.Fprintf(out, "Silence detection: %.1f dB, min %.2fs\n", cfg.Dubbing.SilenceThresholdDB, cfg.Dubbing.SilenceMinDuration)
			fmt.Fprintf(out, "STT model:         %s\n", cfg.STT.Model)
			fmt.Fprintf(out, "Translate model:   %s\n", cfg.Translate.Model)
			fmt.Fprintf(out, "TTS model/voice:   %s / %s\n", cfg.TTS.Model, cfg.TTS.Voice)
			fmt.Fprintf(out, "Tempo window:      %.2f - %.2f (max stretch %.2f)\n",
				cfg.Alignment.TempoMinFactor, cfg.Alignment.TempoMaxFactor, cfg.Alignment.MaxTotalStretch)
			fmt.Fprintf(out, "Synthesis workers: %d\n", cfg.Alignment.SynthesisWorkers)
			return nil
		},
	}
}
