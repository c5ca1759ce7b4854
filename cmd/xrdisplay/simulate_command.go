package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xrdisplay/internal/mcu"
)

func newSimulateDriverCommand() *cobra.Command {
	var socketEnv string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:         "simulate-driver",
		Short:       "Act as a vendor MCU driver that streams a synthetic head sweep",
		Hidden:      true,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			socketPath := strings.TrimSpace(os.Getenv(socketEnv))
			if socketPath == "" {
				return fmt.Errorf("%s is not set; this command is started by `xrdisplay run`", socketEnv)
			}
			var dialer net.Dialer
			conn, err := dialer.DialContext(signalCtx, "unix", socketPath)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", socketPath, err)
			}
			defer conn.Close()

			err = mcu.Simulate(signalCtx, mcu.NewEncoder(conn), interval)
			if errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&socketEnv, "socket-env", mcu.DefaultSocketEnv, "Environment variable holding the socket path")
	cmd.Flags().DurationVar(&interval, "interval", 20*time.Millisecond, "Delay between orientation frames")
	return cmd
}
