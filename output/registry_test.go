package output

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mstarongithub/consolation/geom"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	err := r.Add(&Output{
		Name:    "eDP-1",
		Make:    "BOE",
		Model:   "0x0A1C",
		Modes:   []Mode{{Width: 1920, Height: 1080, Refresh: 60000, Preferred: true}, {Width: 1280, Height: 720, Refresh: 60000}},
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("Adding eDP-1 failed: %s", err)
	}
	err = r.Add(&Output{
		Name:        "HDMI-A-1",
		Modes:       []Mode{{Width: 2560, Height: 1440, Refresh: 144000}},
		CurrentMode: -1,
		Enabled:     true,
		Position:    geom.Pt(1920, 0),
	})
	if err != nil {
		t.Fatalf("Adding HDMI-A-1 failed: %s", err)
	}
	return r
}

func TestAddPicksPreferredMode(t *testing.T) {
	r := testRegistry(t)
	o, ok := r.Find("hdmi-a-1")
	if !ok {
		t.Fatalf("Case insensitive lookup failed")
	}
	if m, ok := o.Mode(); !ok || m.Width != 2560 {
		t.Errorf("Expected the only mode to be selected, got %+v", m)
	}
	if err := r.Add(&Output{Name: "eDP-1"}); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Expected duplicate name error, got %v", err)
	}
}

func TestGeometryUsesScaleAndTransform(t *testing.T) {
	o := &Output{Modes: []Mode{{Width: 1920, Height: 1080}}, Scale: 2, Transform: geom.Transform90}
	if got := o.Geometry(); got != geom.R(0, 0, 540, 960) {
		t.Errorf("Unexpected geometry %s", got)
	}
}

func TestApplyDisablingEverythingFails(t *testing.T) {
	r := testRegistry(t)
	before := r.Snapshot()
	err := r.Apply([]Config{{Name: "eDP-1"}, {Name: "HDMI-A-1"}})
	if !errors.Is(err, ErrNoEnabledOutput) {
		t.Fatalf("Expected ErrNoEnabledOutput, got %v", err)
	}
	if err := r.Test([]Config{{Name: "eDP-1"}, {Name: "HDMI-A-1"}}); !errors.Is(err, ErrNoEnabledOutput) {
		t.Errorf("Test should fail the same way, got %v", err)
	}
	if !reflect.DeepEqual(before, r.Snapshot()) {
		t.Errorf("Registry changed after a failed apply")
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	r := testRegistry(t)
	before := r.Snapshot()
	scale := 2.0
	bad := 7
	err := r.Apply([]Config{
		{Name: "eDP-1", Enabled: true, Scale: &scale},
		{Name: "HDMI-A-1", Enabled: true, Mode: &bad},
	})
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("Expected ErrInvalidMode, got %v", err)
	}
	if !reflect.DeepEqual(before, r.Snapshot()) {
		t.Errorf("First config leaked into the registry")
	}
}

func TestApplyChangesState(t *testing.T) {
	r := testRegistry(t)
	gen := r.Generation()
	mode := 1
	tr := geom.Transform180
	if err := r.Apply([]Config{{Name: "eDP-1", Enabled: true, Mode: &mode, Transform: &tr}, {Name: "HDMI-A-1"}}); err != nil {
		t.Fatalf("Apply failed: %s", err)
	}
	o, _ := r.Find("eDP-1")
	if o.CurrentMode != 1 || o.Transform != geom.Transform180 {
		t.Errorf("Config not applied: %+v", o)
	}
	if len(r.Enabled()) != 1 {
		t.Errorf("Expected one enabled output, got %d", len(r.Enabled()))
	}
	if r.Generation() == gen {
		t.Errorf("Generation should change on apply")
	}
}

func TestCustomModeMatching(t *testing.T) {
	r := testRegistry(t)
	err := r.Apply([]Config{{Name: "eDP-1", Enabled: true, Custom: &Mode{Width: 1280, Height: 720}}})
	if err != nil {
		t.Fatalf("Custom mode with refresh 0 should match: %s", err)
	}
	err = r.Apply([]Config{{Name: "eDP-1", Enabled: true, Custom: &Mode{Width: 1280, Height: 720, Refresh: 75000}}})
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Mismatching refresh should fail, got %v", err)
	}
}

func TestPrimaryAndAt(t *testing.T) {
	r := testRegistry(t)
	if p, ok := r.Primary(); !ok || p.Name != "eDP-1" {
		t.Errorf("Expected eDP-1 as primary")
	}
	if o, ok := r.At(geom.PointF{X: 2000, Y: 10}); !ok || o.Name != "HDMI-A-1" {
		t.Errorf("Point should be on HDMI-A-1")
	}
}
