package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"xrdisplay/internal/config"
	"xrdisplay/internal/discovery"
)

// DisplayProbe reports the glasses discovery would pick right now.
type DisplayProbe struct {
	Detected  bool
	Vendor    string
	Model     string
	Connector string
	Mode      string
	Supported bool
	Err       error
}

// ProbeDisplay runs discovery once with the configured roots.
func ProbeDisplay(ctx context.Context, cfg *config.Config, logger *slog.Logger) DisplayProbe {
	return probeDisplay(ctx, cfg, discovery.NewLspciLister(cfg.Devices.LspciBinary), logger)
}

func probeDisplay(ctx context.Context, cfg *config.Config, bus discovery.BusLister, logger *slog.Logger) DisplayProbe {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	d := discovery.New(discovery.Options{
		Bus:              bus,
		Hierarchy:        discovery.NewSysfsHierarchy(cfg.Devices.PCIRoot),
		Registry:         cfg.QuirkRegistry(),
		AllowUnsupported: cfg.Devices.AllowUnsupported,
		Logger:           logger,
	})
	display, err := d.Discover(probeCtx)
	if err != nil {
		return DisplayProbe{Err: err}
	}
	display = discovery.ApplyOverrides(display, cfg.Overrides.Width, cfg.Overrides.Height, cfg.Overrides.RefreshRate)
	return DisplayProbe{
		Detected:  true,
		Vendor:    display.Vendor,
		Model:     display.Model,
		Connector: display.Card + "-" + display.Connector,
		Mode:      fmt.Sprintf("%dx%d@%d", display.MaxWidth, display.MaxHeight, display.MaxRefresh),
		Supported: display.Supported,
	}
}

// Result converts the probe into a check row.
func (p DisplayProbe) Result() Result {
	const name = "Glasses"
	if p.Detected {
		return Result{Name: name, Passed: true, Detail: p.DisplayDetail()}
	}
	return Result{Name: name, Detail: p.DisplayDetail()}
}

// DisplayDetail renders a display-friendly summary for status UIs.
func (p DisplayProbe) DisplayDetail() string {
	if !p.Detected {
		switch {
		case p.Err == nil, errors.Is(p.Err, discovery.ErrNoSupportedDevice):
			return "No supported glasses detected"
		default:
			return fmt.Sprintf("Discovery failed (%v)", p.Err)
		}
	}
	detail := fmt.Sprintf("%s %s on %s, %s", p.Vendor, p.Model, p.Connector, p.Mode)
	if !p.Supported {
		detail += " (unsupported model)"
	}
	return detail
}
