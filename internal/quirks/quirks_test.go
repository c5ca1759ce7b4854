package quirks_test

import (
	"testing"
	"time"

	"xrdisplay/internal/quirks"
)

func TestDefaultRegistryContainsXrealAir(t *testing.T) {
	q, ok := quirks.Default().Lookup("MRG", "Air")
	if !ok {
		t.Fatal("expected MRG/Air in default registry")
	}
	if q.MaxWidth != 1920 || q.MaxHeight != 1080 || q.MaxRefresh != 120 {
		t.Fatalf("unexpected capabilities: %+v", q)
	}
	if q.SensorInitDelay != 10*time.Second {
		t.Fatalf("unexpected sensor delay: %v", q.SensorInitDelay)
	}
	if !q.ZVectorDisabled {
		t.Fatal("expected z vector disabled")
	}
}

func TestLookupMisses(t *testing.T) {
	reg := quirks.Default()
	if _, ok := reg.Lookup("MRG", "Air 2"); ok {
		t.Fatal("expected unknown model to miss")
	}
	if _, ok := reg.Lookup("mrg", "Air"); ok {
		t.Fatal("expected vendor match to be case sensitive")
	}
	if !reg.HasVendor("MRG") || reg.HasVendor("VIT") {
		t.Fatal("unexpected HasVendor result")
	}
}

func TestMergeOverlaysExtraModels(t *testing.T) {
	extra := quirks.Registry{
		"MRG": {"Air 2": {MaxWidth: 1920, MaxHeight: 1080, MaxRefresh: 90, SensorInitDelay: 3 * time.Second}},
		"VIT": {"One": {MaxRefresh: 60}},
	}
	base := quirks.Default()
	merged := base.Merge(extra)

	if _, ok := merged.Lookup("MRG", "Air"); !ok {
		t.Fatal("expected built-in model retained")
	}
	q, ok := merged.Lookup("MRG", "Air 2")
	if !ok || q.MaxRefresh != 90 || q.SensorInitDelay != 3*time.Second {
		t.Fatalf("unexpected merged quirk: %+v ok=%v", q, ok)
	}
	if got := merged.Vendors(); len(got) != 2 || got[0] != "MRG" || got[1] != "VIT" {
		t.Fatalf("unexpected vendors: %v", got)
	}
	if _, ok := base.Lookup("MRG", "Air 2"); ok {
		t.Fatal("merge must not mutate the receiver")
	}
}
