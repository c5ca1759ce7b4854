package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pilebones/go-udev/netlink"

	"xrdisplay/internal/logging"
)

// ueventSource is the subset of *netlink.UEventConn the waiter uses.
type ueventSource interface {
	Monitor(queue chan netlink.UEvent, errs chan error, matcher netlink.Matcher) chan struct{}
	Close() error
}

type displayFinder interface {
	Discover(ctx context.Context) (Display, error)
}

// HotplugWaiter retries discovery whenever the kernel reports a DRM change,
// so glasses plugged in after startup are picked up.
type HotplugWaiter struct {
	finder  displayFinder
	logger  *slog.Logger
	connect func() (ueventSource, error)
}

// NewHotplugWaiter wraps finder with a netlink uevent listener.
func NewHotplugWaiter(finder displayFinder, logger *slog.Logger) *HotplugWaiter {
	return &HotplugWaiter{
		finder:  finder,
		logger:  logging.NewComponentLogger(logger, "hotplug"),
		connect: connectUdev,
	}
}

func connectUdev() (ueventSource, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}
	return conn, nil
}

// Wait returns as soon as discovery succeeds. Errors other than
// ErrNoSupportedDevice end the wait immediately.
func (w *HotplugWaiter) Wait(ctx context.Context) (Display, error) {
	display, err := w.finder.Discover(ctx)
	if !errors.Is(err, ErrNoSupportedDevice) {
		return display, err
	}

	source, err := w.connect()
	if err != nil {
		return Display{}, fmt.Errorf("connect netlink socket: %w", err)
	}
	defer source.Close()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := source.Monitor(queue, errs, drmMatcher())
	defer close(monitorQuit)

	w.logger.Info("waiting for glasses to be connected",
		logging.String(logging.FieldEventType, "hotplug_wait_started"),
	)

	for {
		select {
		case <-ctx.Done():
			return Display{}, ctx.Err()
		case event := <-queue:
			w.logger.Debug("drm uevent received",
				logging.String("action", string(event.Action)),
				logging.String("kobj", event.KObj),
			)
			display, err := w.finder.Discover(ctx)
			if errors.Is(err, ErrNoSupportedDevice) {
				continue
			}
			return display, err
		case err := <-errs:
			logging.WarnWithContext(w.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "hotplug detection may be delayed"),
			)
		}
	}
}

// drmMatcher matches connector changes: SUBSYSTEM=drm, ACTION=change|add.
func drmMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "drm",
		},
	})
	return rules
}
