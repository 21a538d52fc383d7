package outputmgmt

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/exp/slices"

	"github.com/mstarongithub/consolation/output"
)

type recClient struct {
	events []string
}

func (c *recClient) NewHead(o *output.Output) {
	c.events = append(c.events, "head "+o.Description())
}

func (c *recClient) HeadChanged(o *output.Output, what Changes) {
	c.events = append(c.events, fmt.Sprintf("changed %s %d", o.Name, what))
}

func (c *recClient) HeadRemoved(name string) { c.events = append(c.events, "removed "+name) }
func (c *recClient) Done(serial uint32)      { c.events = append(c.events, fmt.Sprintf("done %d", serial)) }
func (c *recClient) Finished()               { c.events = append(c.events, "finished") }

type recListener struct{ result string }

func (l *recListener) Succeeded() { l.result = "succeeded" }
func (l *recListener) Failed()    { l.result = "failed" }
func (l *recListener) Cancelled() { l.result = "cancelled" }

func registry(t *testing.T) *output.Registry {
	t.Helper()
	reg := output.NewRegistry()
	for _, name := range []string{"eDP-1", "HDMI-A-1"} {
		err := reg.Add(&output.Output{
			Name:  name,
			Make:  "ACME",
			Model: "Panel",
			Modes: []output.Mode{
				{Width: 1920, Height: 1080, Refresh: 60000, Preferred: true},
				{Width: 1280, Height: 720, Refresh: 60000},
			},
			Enabled: true,
		})
		if err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
	}
	return reg
}

func bound(t *testing.T) (*Manager, *output.Registry, *recClient) {
	t.Helper()
	reg := registry(t)
	m := NewManager()
	m.Refresh(reg)
	c := &recClient{}
	m.Bind(c)
	return m, reg, c
}

func TestBindDescribesHeads(t *testing.T) {
	_, _, c := bound(t)
	want := []string{"head ACME - Panel - eDP-1", "head ACME - Panel - HDMI-A-1", "done 1"}
	if !slices.Equal(c.events, want) {
		t.Errorf("expected %v, got %v", want, c.events)
	}
}

func TestStaleSerialIsCancelledWithoutChanges(t *testing.T) {
	m, reg, c := bound(t)
	stale := m.Serial() - 1

	l := &recListener{}
	conf := m.CreateConfiguration(c, stale, l)
	if l.result != "cancelled" {
		t.Fatalf("expected cancelled, got %q", l.result)
	}
	if _, err := conf.EnableHead("eDP-1"); err != nil {
		t.Fatalf("enabling a head on a cancelled configuration: %v", err)
	}
	if err := conf.DisableHead("HDMI-A-1"); err != nil {
		t.Fatalf("disabling a head on a cancelled configuration: %v", err)
	}
	before := reg.Generation()
	if err := conf.Apply(reg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if reg.Generation() != before {
		t.Errorf("stale configuration changed the registry")
	}
	if o, _ := reg.Find("HDMI-A-1"); !o.Enabled {
		t.Errorf("stale configuration disabled an output")
	}
}

func TestDisablingEverythingFails(t *testing.T) {
	m, reg, c := bound(t)
	l := &recListener{}
	conf := m.CreateConfiguration(c, m.Serial(), l)
	if err := conf.DisableHead("eDP-1"); err != nil {
		t.Fatal(err)
	}
	if err := conf.DisableHead("HDMI-A-1"); err != nil {
		t.Fatal(err)
	}
	if err := conf.Apply(reg); err != nil {
		t.Fatal(err)
	}
	if l.result != "failed" {
		t.Errorf("expected failed, got %q", l.result)
	}
	for _, o := range reg.All() {
		if !o.Enabled {
			t.Errorf("%s was disabled by a failed configuration", o.Name)
		}
	}
}

func TestApplyChangesAndCancelsOthers(t *testing.T) {
	m, reg, c := bound(t)
	other := &recClient{}
	m.Bind(other)

	pending := &recListener{}
	m.CreateConfiguration(other, m.Serial(), pending)

	l := &recListener{}
	conf := m.CreateConfiguration(c, m.Serial(), l)
	head, err := conf.EnableHead("HDMI-A-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := head.SetMode(1); err != nil {
		t.Fatal(err)
	}
	if err := head.SetScale(2); err != nil {
		t.Fatal(err)
	}
	c.events = nil
	if err := conf.Apply(reg); err != nil {
		t.Fatal(err)
	}
	if l.result != "succeeded" {
		t.Fatalf("expected succeeded, got %q", l.result)
	}
	o, _ := reg.Find("HDMI-A-1")
	if o.CurrentMode != 1 || o.Scale != 2 {
		t.Errorf("configuration not applied: mode %d scale %f", o.CurrentMode, o.Scale)
	}

	if pending.result != "cancelled" {
		t.Errorf("pending configuration was not cancelled, got %q", pending.result)
	}
	want := []string{fmt.Sprintf("changed HDMI-A-1 %d", ChangedMode|ChangedScale), "done 2"}
	if !slices.Equal(c.events, want) {
		t.Errorf("expected %v, got %v", want, c.events)
	}
}

func TestApplySupersedesSameSerial(t *testing.T) {
	m, reg, c := bound(t)
	serial := m.Serial()

	la, lb := &recListener{}, &recListener{}
	a := m.CreateConfiguration(c, serial, la)
	b := m.CreateConfiguration(c, serial, lb)

	ha, err := a.EnableHead("eDP-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := ha.SetScale(2); err != nil {
		t.Fatal(err)
	}
	hb, err := b.EnableHead("eDP-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := hb.SetMode(1); err != nil {
		t.Fatal(err)
	}

	if err := a.Apply(reg); err != nil || la.result != "succeeded" {
		t.Fatalf("first configuration: %v %q", err, la.result)
	}
	if m.Serial() == serial {
		t.Errorf("serial did not move after a successful apply")
	}
	if lb.result != "cancelled" {
		t.Errorf("expected the second configuration to be cancelled, got %q", lb.result)
	}
	if err := b.Apply(reg); err != nil {
		t.Fatal(err)
	}
	o, _ := reg.Find("eDP-1")
	if o.Scale != 2 || o.CurrentMode != 0 {
		t.Errorf("superseded configuration changed the output: scale %f mode %d", o.Scale, o.CurrentMode)
	}
}

func TestInternalConfiguration(t *testing.T) {
	m, reg, c := bound(t)
	pending := &recListener{}
	m.CreateConfiguration(c, m.Serial(), pending)

	l := &recListener{}
	conf := m.Configure(l)
	if err := conf.DisableHead("HDMI-A-1"); err != nil {
		t.Fatal(err)
	}
	if err := conf.Apply(reg); err != nil {
		t.Fatal(err)
	}
	if l.result != "succeeded" {
		t.Fatalf("expected succeeded, got %q", l.result)
	}
	if o, _ := reg.Find("HDMI-A-1"); o.Enabled {
		t.Errorf("HDMI-A-1 still enabled")
	}
	if pending.result != "cancelled" {
		t.Errorf("client configuration survived the change, got %q", pending.result)
	}

	// a nil listener is allowed
	if err := m.Configure(nil).Test(reg); err != nil {
		t.Errorf("Test failed: %v", err)
	}
}

func TestConfiguringHeadTwiceIsFatal(t *testing.T) {
	m, _, c := bound(t)
	conf := m.CreateConfiguration(c, m.Serial(), &recListener{})
	if _, err := conf.EnableHead("eDP-1"); err != nil {
		t.Fatal(err)
	}
	err := conf.DisableHead("eDP-1")
	if !errors.Is(err, ErrAlreadyConfiguredHead) || !Fatal(err) {
		t.Errorf("expected fatal ErrAlreadyConfiguredHead, got %v", err)
	}
}

func TestConfigurationIsSingleUse(t *testing.T) {
	m, reg, c := bound(t)
	conf := m.CreateConfiguration(c, m.Serial(), &recListener{})
	if _, err := conf.EnableHead("eDP-1"); err != nil {
		t.Fatal(err)
	}
	if err := conf.Test(reg); err != nil {
		t.Fatal(err)
	}
	if err := conf.Apply(reg); !errors.Is(err, ErrAlreadyUsed) {
		t.Errorf("expected ErrAlreadyUsed, got %v", err)
	}
}

func TestHeadValidation(t *testing.T) {
	m, _, c := bound(t)
	conf := m.CreateConfiguration(c, m.Serial(), &recListener{})
	head, err := conf.EnableHead("eDP-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := head.SetScale(0); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("expected ErrInvalidScale, got %v", err)
	}
	if err := head.SetMode(5); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
	if err := head.SetCustomMode(1280, 720, 0); err != nil {
		t.Errorf("custom mode with any refresh rate: %v", err)
	}
	if head.config.Mode == nil || *head.config.Mode != 1 {
		t.Errorf("custom mode did not select the 1280x720 mode")
	}
}

func TestRemovedHeadIsAnnounced(t *testing.T) {
	m, reg, c := bound(t)
	c.events = nil
	reg.Remove("HDMI-A-1")
	m.Refresh(reg)
	want := []string{"removed HDMI-A-1", "done 2"}
	if !slices.Equal(c.events, want) {
		t.Errorf("expected %v, got %v", want, c.events)
	}
}
