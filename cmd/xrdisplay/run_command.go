package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"xrdisplay/internal/discovery"
	"xrdisplay/internal/logging"
	"xrdisplay/internal/session"
	"xrdisplay/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var waitSeconds int
	var noTracking bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the patched EDID, start head tracking, and hold until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("wait") {
				cfg.Devices.HotplugWaitSeconds = waitSeconds
			}
			if noTracking {
				cfg.MCU.Enabled = false
			}

			logger, runID, err := ctx.newLogger()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg)
			if err != nil {
				logging.ErrorWithContext(logger, "open override history", "store_open_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check permissions on "+cfg.Paths.StateDir),
				)
				return err
			}
			defer st.Close()

			s, err := session.New(session.Options{
				Config: cfg,
				Store:  st,
				Logger: logger,
				RunID:  runID,
			})
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}

			logger.Info("xrdisplay starting",
				logging.String(logging.FieldEventType, "session_starting"),
				logging.String("config", ctx.configPath),
				logging.Bool("config_exists", ctx.configExists),
				logging.Bool("head_tracking", cfg.MCU.Enabled),
			)
			if err := s.Run(signalCtx); err != nil {
				if errors.Is(err, discovery.ErrNoSupportedDevice) {
					return fmt.Errorf("%w (run `xrdisplay detect` to list attached displays)", err)
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&waitSeconds, "wait", 0, "Seconds to wait for glasses to be plugged in")
	cmd.Flags().BoolVar(&noTracking, "no-tracking", false, "Do not start the vendor MCU driver")
	return cmd
}
