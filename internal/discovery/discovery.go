package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"xrdisplay/internal/edid"
	"xrdisplay/internal/logging"
	"xrdisplay/internal/quirks"
)

var (
	// ErrPlatformScanFailed indicates the bus listing could not be executed.
	ErrPlatformScanFailed = errors.New("platform scan failed")
	// ErrNoSupportedDevice indicates no attached display matched the registry.
	ErrNoSupportedDevice = errors.New("no supported device found")
	// ErrCapabilityUnresolved indicates a matched display whose resolution or
	// refresh rate is neither advertised nor declared as a quirk.
	ErrCapabilityUnresolved = errors.New("display capability unresolved")
)

// Parser decodes a raw descriptor.
type Parser interface {
	Parse(raw []byte) (edid.Info, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(raw []byte) (edid.Info, error)

// Parse calls f(raw).
func (f ParserFunc) Parse(raw []byte) (edid.Info, error) { return f(raw) }

// Display is a resolved, attached display. Values are built by Discover and
// not modified afterwards.
type Display struct {
	Vendor     string
	Model      string
	Quirks     quirks.Quirks
	Supported  bool
	MaxWidth   int
	MaxHeight  int
	MaxRefresh int
	PCIAddress string
	Card       string
	Connector  string

	edid []byte
}

// EDID returns a copy of the raw descriptor read from the connector.
func (d Display) EDID() []byte {
	return bytes.Clone(d.edid)
}

// CardIndex returns the DRM minor of the card ("card1" yields "1").
func (d Display) CardIndex() string {
	return strings.TrimPrefix(d.Card, "card")
}

// ApplyOverrides returns a copy of d with non-zero overrides applied.
func ApplyOverrides(d Display, width, height, refresh int) Display {
	if width > 0 && height > 0 {
		d.MaxWidth = width
		d.MaxHeight = height
	}
	if refresh > 0 {
		d.MaxRefresh = refresh
	}
	return d
}

// Options configures a Discoverer.
type Options struct {
	Bus              BusLister
	Hierarchy        Hierarchy
	Parser           Parser
	Registry         quirks.Registry
	AllowUnsupported bool
	Logger           *slog.Logger
}

// Discoverer finds the first supported display.
type Discoverer struct {
	bus              BusLister
	hierarchy        Hierarchy
	parser           Parser
	registry         quirks.Registry
	allowUnsupported bool
	logger           *slog.Logger
}

// New constructs a Discoverer. A nil Parser defaults to edid.Parse and a nil
// Registry to quirks.Default.
func New(opts Options) *Discoverer {
	parser := opts.Parser
	if parser == nil {
		parser = ParserFunc(edid.Parse)
	}
	registry := opts.Registry
	if registry == nil {
		registry = quirks.Default()
	}
	return &Discoverer{
		bus:              opts.Bus,
		hierarchy:        opts.Hierarchy,
		parser:           parser,
		registry:         registry,
		allowUnsupported: opts.AllowUnsupported,
		logger:           logging.NewComponentLogger(opts.Logger, "discovery"),
	}
}

// connector is one attached, parsed descriptor in enumeration order.
type connector struct {
	address string
	card    string
	name    string
	raw     []byte
	info    edid.Info
	err     error
}

func (c connector) id() string {
	return strings.TrimPrefix(c.name, c.card+"-")
}

// walk visits every connector with a non-empty descriptor in
// controller, card, connector order until visit returns false.
func (d *Discoverer) walk(ctx context.Context, visit func(connector) bool) error {
	if d.bus == nil || d.hierarchy == nil {
		return fmt.Errorf("%w: discoverer not configured", ErrPlatformScanFailed)
	}
	addresses, err := d.bus.VGAControllers(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPlatformScanFailed, err)
	}
	d.logger.Debug("vga controllers listed", logging.Int("count", len(addresses)))

	for _, address := range addresses {
		cards, err := d.hierarchy.Cards(address)
		if err != nil {
			logging.WarnWithContext(d.logger, "drm cards unreadable; skipping controller", "drm_cards_unreadable",
				logging.String("pci_address", address),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the controller has a DRM driver bound"),
				logging.String(logging.FieldImpact, "outputs of this controller are not scanned"),
			)
			continue
		}
		for _, card := range cards {
			names, err := d.hierarchy.Connectors(address, card)
			if err != nil {
				logging.WarnWithContext(d.logger, "drm connectors unreadable; skipping card", "drm_connectors_unreadable",
					logging.String("pci_address", address),
					logging.String(logging.FieldCard, card),
					logging.Error(err),
					logging.String(logging.FieldImpact, "outputs of this card are not scanned"),
				)
				continue
			}
			for _, name := range names {
				if err := ctx.Err(); err != nil {
					return err
				}
				raw, err := d.hierarchy.ReadDescriptor(address, card, name)
				if err != nil {
					d.logger.Debug("edid unreadable; skipping connector",
						logging.String(logging.FieldCard, card),
						logging.String(logging.FieldConnector, name),
						logging.Error(err),
					)
					continue
				}
				if len(raw) == 0 {
					continue
				}
				c := connector{address: address, card: card, name: name, raw: raw}
				c.info, c.err = d.parser.Parse(raw)
				if !visit(c) {
					return nil
				}
			}
		}
	}
	return nil
}

// match applies the registry test to a parsed descriptor.
func (d *Discoverer) match(info edid.Info) (quirks.Quirks, bool, bool) {
	if !d.registry.HasVendor(info.ManufacturerID) {
		return quirks.Quirks{}, false, false
	}
	q, supported := d.registry.Lookup(info.ManufacturerID, info.ModelName)
	if !supported && !d.allowUnsupported {
		return quirks.Quirks{}, false, false
	}
	return q, supported, true
}

// Discover returns the first attached display matching the registry.
func (d *Discoverer) Discover(ctx context.Context) (Display, error) {
	var (
		found    Display
		foundErr error
		matched  bool
	)
	err := d.walk(ctx, func(c connector) bool {
		logger := logging.WithContext(logging.WithDevice(ctx, c.info.ManufacturerID, c.id()), d.logger)
		if c.err != nil {
			logging.WarnWithContext(logger, "edid unparsable; skipping connector", "edid_parse_failed",
				logging.String(logging.FieldConnector, c.id()),
				logging.Error(c.err),
				logging.String(logging.FieldImpact, "display on this connector is ignored"),
			)
			return true
		}
		q, supported, ok := d.match(c.info)
		if !ok {
			logger.Debug("display not supported",
				logging.String(logging.FieldModel, c.info.ModelName),
			)
			return true
		}
		matched = true
		found, foundErr = d.resolve(c, q, supported)
		if foundErr == nil {
			logger.Info("glasses found",
				logging.String(logging.FieldEventType, "device_found"),
				logging.String(logging.FieldModel, found.Model),
				logging.Bool("supported", supported),
				logging.Int("max_width", found.MaxWidth),
				logging.Int("max_height", found.MaxHeight),
				logging.Int("max_refresh", found.MaxRefresh),
			)
		}
		return false
	})
	if err != nil {
		return Display{}, err
	}
	if !matched {
		return Display{}, ErrNoSupportedDevice
	}
	if foundErr != nil {
		return Display{}, foundErr
	}
	return found, nil
}

func (d *Discoverer) resolve(c connector, q quirks.Quirks, supported bool) (Display, error) {
	width, height, refresh := ResolveCapabilities(c.info.Modes, q)
	if width == 0 || height == 0 {
		return Display{}, fmt.Errorf("%w: %s %s has no usable resolution", ErrCapabilityUnresolved, c.info.ManufacturerID, c.info.ModelName)
	}
	if refresh == 0 {
		return Display{}, fmt.Errorf("%w: %s %s has no usable refresh rate", ErrCapabilityUnresolved, c.info.ManufacturerID, c.info.ModelName)
	}
	return Display{
		Vendor:     c.info.ManufacturerID,
		Model:      c.info.ModelName,
		Quirks:     q,
		Supported:  supported,
		MaxWidth:   width,
		MaxHeight:  height,
		MaxRefresh: refresh,
		PCIAddress: c.address,
		Card:       c.card,
		Connector:  c.id(),
		edid:       bytes.Clone(c.raw),
	}, nil
}

// ResolveCapabilities picks the largest mode that improves width and height
// together and the highest refresh across all modes, falling back to the quirk
// values for whichever group the modes leave unresolved. Zero means unresolved.
func ResolveCapabilities(modes []edid.Mode, q quirks.Quirks) (width, height, refresh int) {
	for _, m := range modes {
		if m.Width > width && m.Height > height {
			width, height = m.Width, m.Height
		}
		if m.Refresh > refresh {
			refresh = m.Refresh
		}
	}
	if width == 0 || height == 0 {
		width, height = 0, 0
		if q.MaxWidth > 0 && q.MaxHeight > 0 {
			width, height = q.MaxWidth, q.MaxHeight
		}
	}
	if refresh == 0 {
		refresh = q.MaxRefresh
	}
	return width, height, refresh
}

// Candidate describes one attached display for reporting.
type Candidate struct {
	PCIAddress  string
	Card        string
	Connector   string
	Info        edid.Info
	ParseErr    error
	Matched     bool
	Supported   bool
	Specialized bool
	EDIDSize    int
}

// Candidates lists every connector with a display attached, matched or not.
func (d *Discoverer) Candidates(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	err := d.walk(ctx, func(c connector) bool {
		cand := Candidate{
			PCIAddress: c.address,
			Card:       c.card,
			Connector:  c.id(),
			Info:       c.info,
			ParseErr:   c.err,
			EDIDSize:   len(c.raw),
		}
		if c.err == nil {
			_, cand.Supported, cand.Matched = d.match(c.info)
		}
		_, cand.Specialized = edid.IdentityToken(c.raw)
		out = append(out, cand)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
