// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package window holds the window stack: every mapped toplevel (wayland or X11)
// in z-order, plus the layer-shell surfaces sorted into their tiers.
package window

import (
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/surface"
)

type ID uint64

type Kind int

const (
	KindWayland = Kind(iota)
	KindX11
)

func (k Kind) String() string {
	if k == KindX11 {
		return "x11"
	}
	return "wayland"
}

type DecorationMode int

const (
	DecorationClientSide = DecorationMode(iota)
	DecorationServerSide
)

// What a window allows the user to do with it
type Capabilities struct {
	Fullscreen bool
	Maximize   bool
	Minimize   bool
}

type States struct {
	Maximized  bool
	Minimized  bool
	Fullscreen bool
	Activated  bool
}

// Popup is a transient surface drawn relative to its root window
type Popup struct {
	Surface surface.ID
	// Weak reference, the parent may already be gone
	Parent surface.ID
	// Location relative to the parent's window geometry
	Location geom.Point
}

type Window struct {
	ID      ID
	Kind    Kind
	Surface surface.ID
	// X11 window id, zero for wayland windows
	X11 uint32
	// Override redirect X11 windows and menu typed X11 windows
	IsPopup bool

	// Logical position of the root surface origin
	Location geom.Point
	// Bounding box of the surface tree relative to Location
	Extents geom.Rect
	// xdg window geometry relative to Location. Empty means Extents
	Geometry geom.Rect

	Title        string
	AppID        string
	States       States
	Capabilities Capabilities
	Decoration   DecorationMode
	Mapped       bool

	// Geometry before maximize or fullscreen, restored when both are cleared
	SavedGeometry *geom.Rect

	Popups []Popup
}

// BBox is the window's bounding box in global logical coordinates
func (w *Window) BBox() geom.Rect {
	return w.Extents.Translate(w.Location)
}

// GeometryOffset is where the window geometry starts inside the surface tree
func (w *Window) GeometryOffset() geom.Point {
	if w.Geometry.Empty() {
		return geom.Point{}
	}
	return w.Geometry.Loc()
}

// WindowGeometry returns the visible window geometry in global coordinates
func (w *Window) WindowGeometry() geom.Rect {
	if w.Geometry.Empty() {
		return w.BBox()
	}
	return w.Geometry.Translate(w.Location)
}

func (w *Window) AddPopup(p Popup) {
	w.Popups = append(w.Popups, p)
}

// RemovePopup drops the popup and every popup whose parent it was
func (w *Window) RemovePopup(id surface.ID) bool {
	found := false
	gone := map[surface.ID]bool{id: true}
	for changed := true; changed; {
		changed = false
		kept := w.Popups[:0]
		for _, p := range w.Popups {
			if gone[p.Surface] || gone[p.Parent] {
				if !gone[p.Surface] {
					gone[p.Surface] = true
					changed = true
				}
				found = found || p.Surface == id
				continue
			}
			kept = append(kept, p)
		}
		w.Popups = kept
	}
	return found
}

// PopupLocation resolves the location of a popup relative to the root surface,
// following parent popups up to the window
func (w *Window) PopupLocation(p Popup) geom.Point {
	loc := p.Location
	parent := p.Parent
	for depth := 0; parent != w.Surface && depth < len(w.Popups); depth++ {
		next, ok := w.popup(parent)
		if !ok {
			break
		}
		loc = loc.Add(next.Location)
		parent = next.Parent
	}
	return loc.Add(w.GeometryOffset())
}

func (w *Window) popup(id surface.ID) (Popup, bool) {
	for _, p := range w.Popups {
		if p.Surface == id {
			return p, true
		}
	}
	return Popup{}, false
}
