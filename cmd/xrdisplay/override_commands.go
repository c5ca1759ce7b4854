package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"xrdisplay/internal/config"
	"xrdisplay/internal/kms"
	"xrdisplay/internal/session"
	"xrdisplay/internal/store"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Reset EDID overrides left active by a session that did not shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			release, err := session.AcquireLock(cfg)
			if err != nil {
				return err
			}
			defer release()

			logger, _, err := ctx.newLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				writer := kms.NewWriter(cfg.Devices.DebugfsDRIRoot, logger)
				n, err := session.Restore(cmd.Context(), st, writer, logger)
				out := cmd.OutOrStdout()
				if n == 0 && err == nil {
					fmt.Fprintln(out, "No active overrides")
					return nil
				}
				fmt.Fprintf(out, "Restored %d override(s)\n", n)
				return err
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show EDID overrides applied by recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()
				if pruneDays > 0 {
					removed, err := st.PruneReleased(cmd.Context(), time.Now().Add(-time.Duration(pruneDays)*24*time.Hour))
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Pruned %d released override(s)\n", removed)
				}

				overrides, err := st.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(overrides) == 0 {
					fmt.Fprintln(out, "No overrides recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Run", "Device", "Connector", "Token", "Applied", "Released"},
					historyRows(overrides),
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows to show (0 for all)")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete released rows older than this many days first")
	return cmd
}

func historyRows(overrides []*store.Override) [][]string {
	rows := make([][]string, 0, len(overrides))
	for _, o := range overrides {
		released := "active"
		if o.ReleasedAt != nil {
			released = o.ReleasedAt.Local().Format(historyTimeLayout)
		}
		rows = append(rows, []string{
			strconv.FormatInt(o.ID, 10),
			shortID(o.RunID),
			o.Vendor + " " + o.Model,
			fmt.Sprintf("card%d-%s", o.CardIndex, o.Connector),
			shortID(o.Token.String()),
			o.AppliedAt.Local().Format(historyTimeLayout),
			released,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
