// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package output tracks the physical displays and their configuration.
package output

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/mstarongithub/consolation/geom"
)

type ID uint32

// A mode an output supports
type Mode struct {
	Width  int
	Height int
	// Refresh rate in millihertz
	Refresh   int
	Preferred bool
}

func (m Mode) Size() geom.Size {
	return geom.Size{W: m.Width, H: m.Height}
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%.3f", m.Width, m.Height, float64(m.Refresh)/1000)
}

type Output struct {
	ID    ID
	Name  string
	Make  string
	Model string
	// Physical size in millimeters
	PhysicalSize geom.Size

	Modes []Mode
	// Index into Modes, -1 when no mode is set
	CurrentMode int
	Scale       float64
	Transform   geom.Transform
	Position    geom.Point
	Enabled     bool
	VRR         bool
}

// FindMode returns the index of the advertised mode with the given size. A
// refresh of 0 matches any rate. -1 when nothing matches
func (o *Output) FindMode(width, height, refresh int) int {
	return slices.IndexFunc(o.Modes, func(m Mode) bool {
		return m.Width == width && m.Height == height && (refresh == 0 || m.Refresh == refresh)
	})
}

// Mode returns the current mode
func (o *Output) Mode() (Mode, bool) {
	if o.CurrentMode < 0 || o.CurrentMode >= len(o.Modes) {
		return Mode{}, false
	}
	return o.Modes[o.CurrentMode], true
}

// PixelSize is the size of the framebuffer after the transform
func (o *Output) PixelSize() geom.Size {
	m, ok := o.Mode()
	if !ok {
		return geom.Size{}
	}
	return o.Transform.TransformSize(m.Size())
}

func (o *Output) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// Geometry is the rectangle the output covers in the logical coordinate space
func (o *Output) Geometry() geom.Rect {
	size := o.PixelSize().Scale(1 / o.scale())
	return geom.Rect{X: o.Position.X, Y: o.Position.Y, W: size.W, H: size.H}
}

// PreferredMode returns the index of the preferred mode, falling back to the first one
func (o *Output) PreferredMode() int {
	for i, m := range o.Modes {
		if m.Preferred {
			return i
		}
	}
	if len(o.Modes) > 0 {
		return 0
	}
	return -1
}

// Description is the human readable head description used by configuration tools
func (o *Output) Description() string {
	return fmt.Sprintf("%s - %s - %s", o.Make, o.Model, o.Name)
}

// Clone returns a deep copy
func (o *Output) Clone() *Output {
	c := *o
	c.Modes = append([]Mode(nil), o.Modes...)
	return &c
}
