package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xrdisplay/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check kernel interfaces, drivers, and attached glasses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configDetail := ctx.configPath
			if !ctx.configExists {
				configDetail += " (not found; defaults in use)"
			}
			lines = append(lines, renderStatusLine("Config file", statusInfo, configDetail, colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Environment", colorize)...)
			checks, failedChecks := checkLines(preflight.RunAll(cmd.Context(), cfg), colorize)
			lines = append(lines, checks...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			depLines, missing := dependencyLines(preflight.CheckSystemDeps(cfg), colorize)
			lines = append(lines, depLines...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Glasses", colorize)...)
			probe := preflight.ProbeDisplay(cmd.Context(), cfg, nil)
			kind := statusOK
			if !probe.Detected {
				kind = statusWarn
			}
			lines = append(lines, renderStatusLine("Glasses", kind, probe.DisplayDetail(), colorize))

			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if problems := failedChecks + missing; problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			return nil
		},
	}
}
