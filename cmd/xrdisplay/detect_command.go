package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"xrdisplay/internal/discovery"
	"xrdisplay/internal/edid"
	"xrdisplay/internal/logging"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "List attached displays and whether they are supported glasses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, _, err := ctx.newLogger()
			if err != nil {
				return err
			}

			d := discovery.New(discovery.Options{
				Bus:              discovery.NewLspciLister(cfg.Devices.LspciBinary),
				Hierarchy:        discovery.NewSysfsHierarchy(cfg.Devices.PCIRoot),
				Registry:         cfg.QuirkRegistry(),
				AllowUnsupported: cfg.Devices.AllowUnsupported,
				Logger:           logging.NewComponentLogger(logger, "detect"),
			})
			candidates, err := d.Candidates(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "No displays attached")
				return nil
			}

			rows := make([][]string, 0, len(candidates))
			for _, c := range candidates {
				rows = append(rows, []string{
					c.Card + "-" + c.Connector,
					c.PCIAddress,
					c.Info.ManufacturerID,
					c.Info.ModelName,
					bestMode(c.Info.Modes),
					candidateStatus(c),
					yesNo(c.Specialized),
					strconv.Itoa(c.EDIDSize),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Connector", "PCI", "Vendor", "Model", "Best Mode", "Status", "Patched", "EDID Bytes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignCenter, alignRight},
			))
			return nil
		},
	}
}

func candidateStatus(c discovery.Candidate) string {
	switch {
	case c.ParseErr != nil:
		return "unreadable"
	case c.Matched && c.Supported:
		return "supported"
	case c.Matched:
		return "unsupported model"
	default:
		return "ignored"
	}
}

// bestMode reports the largest advertised resolution and the highest refresh
// rate seen at that resolution.
func bestMode(modes []edid.Mode) string {
	var best edid.Mode
	for _, m := range modes {
		if m.Width*m.Height > best.Width*best.Height ||
			(m.Width == best.Width && m.Height == best.Height && m.Refresh > best.Refresh) {
			best = m
		}
	}
	if best.Width == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d@%d", best.Width, best.Height, best.Refresh)
}
