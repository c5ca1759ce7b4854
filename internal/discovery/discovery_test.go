package discovery_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"xrdisplay/internal/discovery"
	"xrdisplay/internal/edid"
	"xrdisplay/internal/quirks"
	"xrdisplay/internal/testsupport"
)

type stubExec struct {
	output []byte
	err    error
}

func (s stubExec) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	return s.output, s.err
}

const lspciOutput = `00:00.0 Host bridge: Intel Corporation Device 4621 (rev 02)
00:02.0 VGA compatible controller: Intel Corporation Alder Lake-P GT2 [Iris Xe Graphics] (rev 0c)
00:14.0 USB controller: Intel Corporation Alder Lake PCH USB 3.2 xHCI Host Controller (rev 01)
01:00.0 VGA compatible controller: NVIDIA Corporation GA107M [GeForce RTX 3050 Mobile] (rev a1)
`

// stubParser maps descriptor contents to parse results.
type stubParser map[string]edid.Info

func (p stubParser) Parse(raw []byte) (edid.Info, error) {
	info, ok := p[string(raw)]
	if !ok {
		return edid.Info{}, fmt.Errorf("unparsable descriptor %q", raw)
	}
	return info, nil
}

func newDiscoverer(t *testing.T, fs *testsupport.Sysfs, parser discovery.Parser, registry quirks.Registry, allow bool) *discovery.Discoverer {
	t.Helper()
	return discovery.New(discovery.Options{
		Bus:              discovery.NewLspciListerWithExecutor("lspci", stubExec{output: []byte(lspciOutput)}),
		Hierarchy:        discovery.NewSysfsHierarchy(fs.Root),
		Parser:           parser,
		Registry:         registry,
		AllowUnsupported: allow,
	})
}

func vendorRegistry() quirks.Registry {
	return quirks.Registry{
		"VND": {"Model": {MaxWidth: 1920, MaxHeight: 1080, MaxRefresh: 120}},
	}
}

func TestParseVGAControllers(t *testing.T) {
	got := discovery.ParseVGAControllers(lspciOutput)
	if len(got) != 2 || got[0] != "00:02.0" || got[1] != "01:00.0" {
		t.Fatalf("unexpected controllers: %v", got)
	}
}

func TestDiscoverFallsBackToQuirks(t *testing.T) {
	fs := testsupport.NewSysfs(t, t.TempDir())
	fs.AddConnector("00:02.0", "card1", "DP-1", []byte("vnd"))
	parser := stubParser{"vnd": {ManufacturerID: "VND", ModelName: "Model"}}

	display, err := newDiscoverer(t, fs, parser, vendorRegistry(), false).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if display.MaxWidth != 1920 || display.MaxHeight != 1080 || display.MaxRefresh != 120 {
		t.Fatalf("unexpected capabilities: %dx%d@%d", display.MaxWidth, display.MaxHeight, display.MaxRefresh)
	}
	if display.Card != "card1" || display.Connector != "DP-1" || display.CardIndex() != "1" {
		t.Fatalf("unexpected location: card=%q connector=%q", display.Card, display.Connector)
	}
	if !display.Supported {
		t.Fatal("expected supported model")
	}
}

func TestDiscoverUsesConjunctiveResolutionAndIndependentRefresh(t *testing.T) {
	fs := testsupport.NewSysfs(t, t.TempDir())
	fs.AddConnector("00:02.0", "card1", "DP-1", []byte("vnd"))
	parser := stubParser{"vnd": {
		ManufacturerID: "VND",
		ModelName:      "Model",
		Modes:          []edid.Mode{{Width: 1920, Height: 1080, Refresh: 60}, {Width: 1280, Height: 720, Refresh: 120}},
	}}
	registry := quirks.Registry{"VND": {"Model": {}}}

	display, err := newDiscoverer(t, fs, parser, registry, false).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if display.MaxWidth != 1920 || display.MaxHeight != 1080 {
		t.Fatalf("unexpected resolution: %dx%d", display.MaxWidth, display.MaxHeight)
	}
	if display.MaxRefresh != 120 {
		t.Fatalf("unexpected refresh: %d", display.MaxRefresh)
	}
}

func TestDiscoverRejectsUnknownModelUnlessAllowed(t *testing.T) {
	fs := testsupport.NewSysfs(t, t.TempDir())
	fs.AddConnector("00:02.0", "card1", "DP-1", []byte("other"))
	parser := stubParser{"other": {
		ManufacturerID: "VND",
		ModelName:      "Other",
		Modes:          []edid.Mode{{Width: 3840, Height: 1080, Refresh: 60}},
	}}

	_, err := newDiscoverer(t, fs, parser, vendorRegistry(), false).Discover(context.Background())
	if !errors.Is(err, discovery.ErrNoSupportedDevice) {
		t.Fatalf("expected ErrNoSupportedDevice, got %v", err)
	}

	display, err := newDiscoverer(t, fs, parser, vendorRegistry(), true).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover with allow_unsupported returned error: %v", err)
	}
	if display.Supported {
		t.Fatal("expected unsupported model flagged")
	}
	if display.MaxWidth != 3840 || display.MaxRefresh != 60 {
		t.Fatalf("unexpected capabilities: %+v", display)
	}
}

func TestDiscoverRejectsUnknownVendorEvenWhenAllowed(t *testing.T) {
	fs := testsupport.NewSysfs(t, t.TempDir())
	fs.AddConnector("00:02.0", "card1", "HDMI-A-1", []byte("dell"))
	parser := stubParser{"dell": {ManufacturerID: "DEL", ModelName: "U2720Q"}}

	_, err := newDiscoverer(t, fs, parser, vendorRegistry(), true).Discover(context.Background())
	if !errors.Is(err, discovery.ErrNoSupportedDevice) {
		t.Fatalf("expected ErrNoSupportedDevice, got %v", err)
	}
}

func TestDiscoverFailsWhenCapabilityUnresolved(t *testing.T) {
	fs := testsupport.NewSysfs(t, t.TempDir())
	fs.AddConnector("00:02.0", "card1", "DP-1", []byte("bare"))
	parser := stubParser{"bare": {ManufacturerID: "VND", ModelName: "Bare"}}

	_, err := newDiscoverer(t, fs, parser, vendorRegistry(), true).Discover(context.Background())
	if !errors.Is(err, discovery.ErrCapabilityUnresolved) {
		t.Fatalf("expected ErrCapabilityUnresolved, got %v", err)
	}
}

func TestDiscoverReportsPlatformScanFailure(t *testing.T) {
	d := discovery.New(discovery.Options{
		Bus:       discovery.NewLspciListerWithExecutor("lspci", stubExec{err: errors.New("exec: \"lspci\": executable file not found")}),
		Hierarchy: discovery.NewSysfsHierarchy(t.TempDir()),
	})
	_, err := d.Discover(context.Background())
	if !errors.Is(err, discovery.ErrPlatformScanFailed) {
		t.Fatalf("expected ErrPlatformScanFailed, got %v", err)
	}
}

func TestDiscoverSkipsEmptyAndUnparsableAndTakesFirstMatch(t *testing.T) {
	fs := testsupport.NewSysfs(t, t.TempDir())
	fs.AddConnector("00:02.0", "card0", "eDP-1", nil)
	fs.AddConnector("00:02.0", "card0", "DP-1", []byte("garbage"))
	fs.AddConnector("00:02.0", "card0", "DP-2", []byte("first"))
	fs.AddConnector("01:00.0", "card1", "DP-1", []byte("second"))
	parser := stubParser{
		"first":  {ManufacturerID: "VND", ModelName: "Model", Modes: []edid.Mode{{Width: 1280, Height: 720, Refresh: 60}}},
		"second": {ManufacturerID: "VND", ModelName: "Model", Modes: []edid.Mode{{Width: 3840, Height: 2160, Refresh: 144}}},
	}

	display, err := newDiscoverer(t, fs, parser, vendorRegistry(), false).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if display.Card != "card0" || display.Connector != "DP-2" {
		t.Fatalf("expected first match card0/DP-2, got %s/%s", display.Card, display.Connector)
	}
	if display.MaxWidth != 1280 {
		t.Fatalf("unexpected width: %d", display.MaxWidth)
	}
	if string(display.EDID()) != "first" {
		t.Fatalf("unexpected descriptor: %q", display.EDID())
	}
}

func TestDiscoverWithRealDescriptor(t *testing.T) {
	fs := testsupport.NewSysfs(t, t.TempDir())
	raw := testsupport.BuildEDID("MRG", "Air", testsupport.Timing{Width: 1920, Height: 1080, Refresh: 60})
	fs.AddConnector("00:02.0", "card1", "DP-1", raw)

	d := discovery.New(discovery.Options{
		Bus:       discovery.NewLspciListerWithExecutor("lspci", stubExec{output: []byte(lspciOutput)}),
		Hierarchy: discovery.NewSysfsHierarchy(fs.Root),
	})
	display, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if display.Vendor != "MRG" || display.Model != "Air" {
		t.Fatalf("unexpected identity: %s %s", display.Vendor, display.Model)
	}
	if display.MaxWidth != 1920 || display.MaxHeight != 1080 || display.MaxRefresh != 60 {
		t.Fatalf("unexpected capabilities: %dx%d@%d", display.MaxWidth, display.MaxHeight, display.MaxRefresh)
	}
	if !display.Quirks.ZVectorDisabled {
		t.Fatal("expected Air quirks attached")
	}

	copyOf := display.EDID()
	copyOf[0] = 0x42
	if display.EDID()[0] != 0x00 {
		t.Fatal("EDID must return a copy")
	}
}

func TestCandidatesListsAllAttachedDisplays(t *testing.T) {
	fs := testsupport.NewSysfs(t, t.TempDir())
	fs.AddConnector("00:02.0", "card0", "eDP-1", testsupport.BuildEDID("BOE", "Panel", testsupport.Timing{Width: 1920, Height: 1200, Refresh: 60}))
	fs.AddConnector("00:02.0", "card0", "DP-1", nil)
	fs.AddConnector("01:00.0", "card1", "DP-1", testsupport.BuildEDID("MRG", "Air"))

	d := discovery.New(discovery.Options{
		Bus:       discovery.NewLspciListerWithExecutor("lspci", stubExec{output: []byte(lspciOutput)}),
		Hierarchy: discovery.NewSysfsHierarchy(fs.Root),
	})
	cands, err := d.Candidates(context.Background())
	if err != nil {
		t.Fatalf("Candidates returned error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].Info.ManufacturerID != "BOE" || cands[0].Matched {
		t.Fatalf("unexpected first candidate: %+v", cands[0])
	}
	if cands[1].Connector != "DP-1" || !cands[1].Matched || !cands[1].Supported || cands[1].Specialized {
		t.Fatalf("unexpected second candidate: %+v", cands[1])
	}
}

func TestResolveCapabilitiesFallsBackPerGroup(t *testing.T) {
	q := quirks.Quirks{MaxWidth: 1920, MaxHeight: 1080, MaxRefresh: 90}

	w, h, r := discovery.ResolveCapabilities([]edid.Mode{{Width: 0, Height: 0, Refresh: 72}}, q)
	if w != 1920 || h != 1080 || r != 72 {
		t.Fatalf("expected quirk resolution with advertised refresh, got %dx%d@%d", w, h, r)
	}

	w, h, r = discovery.ResolveCapabilities([]edid.Mode{{Width: 2560, Height: 1440}}, q)
	if w != 2560 || h != 1440 || r != 90 {
		t.Fatalf("expected advertised resolution with quirk refresh, got %dx%d@%d", w, h, r)
	}

	w, h, r = discovery.ResolveCapabilities(nil, quirks.Quirks{})
	if w != 0 || h != 0 || r != 0 {
		t.Fatalf("expected unresolved, got %dx%d@%d", w, h, r)
	}
}

func TestApplyOverrides(t *testing.T) {
	base := discovery.Display{MaxWidth: 1920, MaxHeight: 1080, MaxRefresh: 120}

	got := discovery.ApplyOverrides(base, 1280, 720, 0)
	if got.MaxWidth != 1280 || got.MaxHeight != 720 || got.MaxRefresh != 120 {
		t.Fatalf("unexpected override result: %+v", got)
	}
	got = discovery.ApplyOverrides(base, 0, 0, 60)
	if got.MaxWidth != 1920 || got.MaxRefresh != 60 {
		t.Fatalf("unexpected override result: %+v", got)
	}
	if base.MaxWidth != 1920 || base.MaxRefresh != 120 {
		t.Fatal("ApplyOverrides must not modify its input")
	}
}
