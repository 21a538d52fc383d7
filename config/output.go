package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/output"
)

var (
	ErrBadMode      = errors.New("mode has to look like 1920x1080 or 1920x1080@60")
	ErrBadTransform = errors.New("unknown transform")
	errNoOutput     = errors.New("no output given")
)

// OutputConfig is the per output section of the config file
type OutputConfig struct {
	Name string `toml:"name" yaml:"name"`
	// Like "1920x1080" or "1920x1080@60"
	Mode      string  `toml:"mode,omitempty" yaml:"mode,omitempty"`
	Scale     float64 `toml:"scale,omitempty" yaml:"scale,omitempty"`
	Transform string  `toml:"transform,omitempty" yaml:"transform,omitempty"`
	X         *int    `toml:"x,omitempty" yaml:"x,omitempty"`
	Y         *int    `toml:"y,omitempty" yaml:"y,omitempty"`
	// Nil leaves the output enabled
	Enabled      *bool `toml:"enabled,omitempty" yaml:"enabled,omitempty"`
	AdaptiveSync *bool `toml:"adaptive_sync,omitempty" yaml:"adaptive_sync,omitempty"`
}

// ParseMode reads a mode like 1920x1080 or 1920x1080@59.94
func ParseMode(s string) (output.Mode, error) {
	var m output.Mode
	var hz float64
	if n, _ := fmt.Sscanf(s, "%dx%d@%g", &m.Width, &m.Height, &hz); n < 2 {
		return output.Mode{}, fmt.Errorf("%q: %w", s, ErrBadMode)
	}
	if m.Width <= 0 || m.Height <= 0 || hz < 0 {
		return output.Mode{}, fmt.Errorf("%q: %w", s, ErrBadMode)
	}
	m.Refresh = int(math.Round(hz * 1000))
	return m, nil
}

// Resolve turns the section into a registry configuration for o.
// Called with a nil output it only validates
func (c OutputConfig) Resolve(o *output.Output) (output.Config, error) {
	cfg := output.Config{Name: c.Name, Enabled: c.Enabled == nil || *c.Enabled}
	if c.Mode != "" {
		m, err := ParseMode(c.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Custom = &m
	}
	if c.Scale != 0 {
		if c.Scale < 0 {
			return cfg, fmt.Errorf("scale %f: %w", c.Scale, output.ErrInvalidScale)
		}
		s := c.Scale
		cfg.Scale = &s
	}
	if c.Transform != "" {
		t, ok := geom.ParseTransform(c.Transform)
		if !ok {
			return cfg, fmt.Errorf("%q: %w", c.Transform, ErrBadTransform)
		}
		cfg.Transform = &t
	}
	if c.X != nil || c.Y != nil {
		var p geom.Point
		if c.X != nil {
			p.X = *c.X
		}
		if c.Y != nil {
			p.Y = *c.Y
		}
		cfg.Position = &p
	}
	cfg.VRR = c.AdaptiveSync
	if o == nil {
		return cfg, errNoOutput
	}
	cfg.Name = o.Name
	return cfg, nil
}
