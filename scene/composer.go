// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package scene decides what ends up on each output: the focused window scaled to
// fill the screen, or the window switcher menu, sandwiched between the layer-shell tiers.
package scene

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/render"
	"github.com/mstarongithub/consolation/surface"
	"github.com/mstarongithub/consolation/window"
)

type Mode int

const (
	// Only the topmost window, scaled to fill the output
	ModeSingle = Mode(iota)
	// Thumbnails of the whole stack with a selection highlight
	ModeMenuOpen
)

func (m Mode) String() string {
	if m == ModeMenuOpen {
		return "menu"
	}
	return "single"
}

const (
	menuRowHeight  = 100
	menuThumbWidth = 200
	menuLabelX     = 220
	labelScale     = 2
)

var ClearColor = color.NRGBA{R: 0, G: 0, B: 51, A: 255}

// Frame is the composed draw list of one output
type Frame struct {
	Output string
	Ops    []render.DrawOp
	// Root surfaces drawn this frame, their trees get frame callbacks after submission
	Surfaces []surface.ID
}

// Composer is the scene state machine
type Composer struct {
	mode     Mode
	selected int
	labels   *labelCache
}

func New() *Composer {
	return &Composer{labels: newLabelCache()}
}

func (c *Composer) Mode() Mode {
	return c.mode
}

func (c *Composer) MenuOpen() bool {
	return c.mode == ModeMenuOpen
}

// Selected is the highlighted menu row
func (c *Composer) Selected() int {
	return c.selected
}

// ToggleMenu opens the menu with the first row selected, or cancels an open menu
func (c *Composer) ToggleMenu() {
	if c.mode == ModeMenuOpen {
		c.Back()
		return
	}
	c.mode = ModeMenuOpen
	c.selected = 0
	logrus.Debugln("Window menu opened")
}

// MenuDown moves the selection one row down. It never wraps
func (c *Composer) MenuDown(count int) bool {
	if c.mode != ModeMenuOpen || c.selected+1 >= count {
		return false
	}
	c.selected++
	return true
}

// MenuUp moves the selection one row up. It never wraps
func (c *Composer) MenuUp() bool {
	if c.mode != ModeMenuOpen || c.selected <= 0 {
		return false
	}
	c.selected--
	return true
}

// Clamp pulls the selection back into range after windows went away
func (c *Composer) Clamp(count int) {
	if c.selected >= count {
		c.selected = count - 1
	}
	if c.selected < 0 {
		c.selected = 0
	}
}

// Confirm raises the selected window and returns to single mode.
// It returns the index that was brought to the top
func (c *Composer) Confirm(stack *window.Stack) (int, bool) {
	if c.mode != ModeMenuOpen {
		return 0, false
	}
	c.mode = ModeSingle
	c.Clamp(stack.Len())
	if stack.Len() == 0 {
		return 0, false
	}
	if err := stack.BringNthToTop(c.selected); err != nil {
		logrus.WithError(err).WithField("index", c.selected).Warningln("Menu selection vanished")
		return 0, false
	}
	logrus.WithField("index", c.selected).Debugln("Menu selection confirmed")
	return c.selected, true
}

// Back closes the menu without changing the stack
func (c *Composer) Back() {
	if c.mode == ModeMenuOpen {
		logrus.Debugln("Window menu cancelled")
	}
	c.mode = ModeSingle
}

// Input is everything the composer reads for one output
type Input struct {
	Output   *output.Output
	Stack    *window.Stack
	Layers   *window.Layers
	Surfaces *surface.Store
}

// Compose builds the draw list of one output. Tiers are drawn background, bottom,
// windows, top, overlay
func (c *Composer) Compose(r render.Renderer, in Input) (Frame, error) {
	frame := Frame{Output: in.Output.Name}
	size := in.Output.PixelSize()
	if size.Empty() || !in.Output.Enabled {
		return frame, nil
	}

	c.layerOps(&frame, in, window.TierBackground)
	c.layerOps(&frame, in, window.TierBottom)

	switch c.mode {
	case ModeSingle:
		if top := in.Stack.Top(); top != nil && !top.States.Minimized {
			dest := geom.RectF{W: float64(size.W), H: float64(size.H)}
			c.windowOps(&frame, in.Surfaces, top, dest)
		}
	case ModeMenuOpen:
		if err := c.menuOps(&frame, r, in, size); err != nil {
			return frame, err
		}
	}

	c.layerOps(&frame, in, window.TierTop)
	c.layerOps(&frame, in, window.TierOverlay)
	return frame, nil
}

func (c *Composer) layerOps(frame *Frame, in Input, tier window.Tier) {
	if in.Layers == nil {
		return
	}
	for _, ls := range in.Layers.On(tier, in.Output.Name) {
		ops := in.Surfaces.Walk(ls.Surface, surface.WalkParams{
			Location: ls.Location,
			Scale:    in.Output.Scale,
		})
		if len(ops) > 0 {
			frame.Ops = append(frame.Ops, ops...)
			frame.Surfaces = append(frame.Surfaces, ls.Surface)
		}
	}
}

// windowOps fits the window and its popups into dest
func (c *Composer) windowOps(frame *Frame, store *surface.Store, w *window.Window, dest geom.RectF) {
	fit := &surface.Fit{Dest: dest, BBox: w.BBox()}
	ops := store.Walk(w.Surface, surface.WalkParams{Location: w.Location, Fit: fit})
	if len(ops) == 0 {
		return
	}
	frame.Ops = append(frame.Ops, ops...)
	frame.Surfaces = append(frame.Surfaces, w.Surface)
	for _, p := range w.Popups {
		loc := w.Location.Add(w.PopupLocation(p))
		popupOps := store.Walk(p.Surface, surface.WalkParams{Location: loc, Fit: fit})
		if len(popupOps) > 0 {
			frame.Ops = append(frame.Ops, popupOps...)
			frame.Surfaces = append(frame.Surfaces, p.Surface)
		}
	}
}

func (c *Composer) menuOps(frame *Frame, r render.Renderer, in Input, size geom.Size) error {
	all := in.Stack.TopToBottom()
	c.Clamp(len(all))

	// Only windows on this output get a row, the selection still counts the whole stack
	area := in.Output.Geometry()
	var (
		windows []*window.Window
		indices []int
		row     int
	)
	for i, w := range all {
		if !w.BBox().Overlaps(area) {
			continue
		}
		if i == c.selected {
			row = len(windows)
		}
		windows = append(windows, w)
		indices = append(indices, i)
	}

	// Scroll so the selected row stays on screen
	pos := 0
	if overflow := (row+1)*menuRowHeight - size.H; overflow > 0 {
		pos = -overflow
	}

	for n, w := range windows {
		i := indices[n]
		if pos+menuRowHeight <= 0 {
			pos += menuRowHeight
			continue
		}
		if pos >= size.H {
			break
		}
		if i == c.selected {
			hl, err := c.labels.highlight(r)
			if err != nil {
				return err
			}
			if hl != nil {
				frame.Ops = append(frame.Ops, render.DrawOp{
					Texture: hl,
					Src:     geom.Rect{W: hl.Size().W, H: hl.Size().H},
					Dst:     geom.RectF{X: 0, Y: float64(pos), W: float64(size.W), H: menuRowHeight},
					Alpha:   1,
				})
			}
		}

		c.windowOps(frame, in.Surfaces, w, geom.RectF{X: 0, Y: float64(pos), W: menuThumbWidth, H: menuRowHeight})

		title := w.Title
		if title == "" {
			title = "Untitled Window"
		}
		label, err := c.labels.label(r, title)
		if err != nil {
			return err
		}
		if label != nil {
			ls := label.Size()
			h := ls.H * labelScale
			frame.Ops = append(frame.Ops, render.DrawOp{
				Texture: label,
				Src:     geom.Rect{W: ls.W, H: ls.H},
				Dst: geom.RectF{
					X: menuLabelX,
					Y: float64(pos + (menuRowHeight-h)/2),
					W: float64(ls.W * labelScale),
					H: float64(h),
				},
				Alpha: 1,
			})
		}
		pos += menuRowHeight
	}
	return nil
}

// Submit renders the frame and only then fires the frame callbacks of every drawn surface
func Submit(r render.Renderer, store *surface.Store, frame Frame, msec uint32) error {
	if err := render.Execute(r, ClearColor, frame.Ops); err != nil {
		if errors.Is(err, render.ErrContextLost) {
			return err
		}
		return fmt.Errorf("rendering %s: %w", frame.Output, err)
	}
	store.SendFrameDone(frame.Surfaces, msec)
	return nil
}
