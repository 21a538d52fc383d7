package outputmgmt

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/output"
)

// Configuration collects head changes until Apply or Test
type Configuration struct {
	manager  *Manager
	client   *clientData
	serial   uint32
	listener Listener

	heads map[string]*Head
	// Head names in request order
	order     []string
	used      bool
	cancelled bool
}

// Head is the per-head part of a configuration. Setters on the head of a
// cancelled configuration do nothing
type Head struct {
	conf   *Configuration
	config output.Config
	inert  bool
}

func (c *Configuration) cancel() {
	if c.cancelled || c.used {
		return
	}
	c.cancelled = true
	if c.listener != nil {
		c.listener.Cancelled()
	}
}

func (c *Configuration) outdated() bool {
	return c.cancelled || c.serial != c.manager.serial
}

func (c *Configuration) configure(name string, enabled bool) (*Head, error) {
	if c.used {
		return nil, ErrAlreadyUsed
	}
	if c.outdated() {
		return &Head{conf: c, inert: true}, nil
	}
	cur := find(c.manager.current, name)
	if cur == nil {
		return &Head{conf: c, inert: true}, fmt.Errorf("%s: %w", name, ErrUnknownHead)
	}
	if _, ok := c.heads[name]; ok {
		return &Head{conf: c, inert: true}, fmt.Errorf("%s: %w", name, ErrAlreadyConfiguredHead)
	}
	h := &Head{conf: c, config: output.Config{Name: name, Enabled: enabled}}
	c.heads[name] = h
	c.order = append(c.order, name)
	return h, nil
}

// EnableHead adds a head to the configuration as enabled
func (c *Configuration) EnableHead(name string) (*Head, error) {
	return c.configure(name, true)
}

// DisableHead adds a head to the configuration as disabled
func (c *Configuration) DisableHead(name string) error {
	_, err := c.configure(name, false)
	return err
}

func (c *Configuration) configs() []output.Config {
	out := make([]output.Config, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.heads[name].config)
	}
	return out
}

// finish marks the configuration used. It reports false when the
// configuration was cancelled instead
func (c *Configuration) finish() (bool, error) {
	if c.used {
		return false, ErrAlreadyUsed
	}
	if c.outdated() {
		c.cancel()
		return false, nil
	}
	c.used = true
	if c.client != nil {
		c.client.confs = slices.DeleteFunc(c.client.confs, func(o *Configuration) bool { return o == c })
	}
	return true, nil
}

// Apply commits the configuration to the registry as one transaction.
// Heads not named keep their current state
func (c *Configuration) Apply(reg *output.Registry) error {
	ok, err := c.finish()
	if !ok {
		return err
	}
	if err := reg.Apply(c.configs()); err != nil {
		logrus.WithError(err).Warningln("Output configuration failed")
		c.listener.Failed()
		return nil
	}
	c.listener.Succeeded()
	// The new state supersedes every configuration still pending
	c.manager.Refresh(reg)
	return nil
}

// Test checks the configuration without changing anything
func (c *Configuration) Test(reg *output.Registry) error {
	ok, err := c.finish()
	if !ok {
		return err
	}
	if err := reg.Test(c.configs()); err != nil {
		logrus.WithError(err).Debugln("Output configuration test failed")
		c.listener.Failed()
		return nil
	}
	c.listener.Succeeded()
	return nil
}

// Destroy drops the configuration without applying it
func (c *Configuration) Destroy() {
	c.used = true
	if c.client != nil {
		c.client.confs = slices.DeleteFunc(c.client.confs, func(o *Configuration) bool { return o == c })
	}
}

func (h *Head) usable() (bool, error) {
	if h.inert || h.conf.outdated() {
		return false, nil
	}
	if h.conf.used {
		return false, ErrAlreadyUsed
	}
	return true, nil
}

// SetMode selects one of the advertised modes by index
func (h *Head) SetMode(index int) error {
	if ok, err := h.usable(); !ok {
		return err
	}
	cur := find(h.conf.manager.current, h.config.Name)
	if index < 0 || index >= len(cur.Modes) {
		return fmt.Errorf("%s mode %d: %w", h.config.Name, index, ErrInvalidMode)
	}
	h.config.Mode = &index
	h.config.Custom = nil
	return nil
}

// SetCustomMode picks the advertised mode matching the size, and the refresh
// rate unless it is 0
func (h *Head) SetCustomMode(width, height, refresh int) error {
	if ok, err := h.usable(); !ok {
		return err
	}
	if width <= 0 || height <= 0 || refresh < 0 {
		return fmt.Errorf("%dx%d@%d: %w", width, height, refresh, ErrInvalidMode)
	}
	cur := find(h.conf.manager.current, h.config.Name)
	idx := cur.FindMode(width, height, refresh)
	if idx < 0 {
		logrus.WithFields(logrus.Fields{
			"head": h.config.Name,
			"mode": output.Mode{Width: width, Height: height, Refresh: refresh},
		}).Debugln("No matching mode for custom mode request")
		return nil
	}
	h.config.Mode = &idx
	h.config.Custom = nil
	return nil
}

func (h *Head) SetPosition(x, y int) error {
	if ok, err := h.usable(); !ok {
		return err
	}
	p := geom.Pt(x, y)
	h.config.Position = &p
	return nil
}

func (h *Head) SetTransform(t geom.Transform) error {
	if ok, err := h.usable(); !ok {
		return err
	}
	if !t.Valid() {
		t = geom.TransformNormal
	}
	h.config.Transform = &t
	return nil
}

func (h *Head) SetScale(scale float64) error {
	if ok, err := h.usable(); !ok {
		return err
	}
	if scale <= 0 {
		return fmt.Errorf("%s scale %f: %w", h.config.Name, scale, ErrInvalidScale)
	}
	h.config.Scale = &scale
	return nil
}

func (h *Head) SetAdaptiveSync(enabled bool) error {
	if ok, err := h.usable(); !ok {
		return err
	}
	h.config.VRR = &enabled
	return nil
}

// Fatal reports whether err has to be posted as a protocol error that
// disconnects the client
func Fatal(err error) bool {
	return errors.Is(err, ErrAlreadyConfiguredHead) || errors.Is(err, ErrAlreadyUsed) ||
		errors.Is(err, ErrInvalidMode) || errors.Is(err, ErrInvalidScale)
}
