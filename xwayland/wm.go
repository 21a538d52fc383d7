// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package xwayland is the window manager for the Xwayland server. It pairs
// X11 windows with the wayland surfaces Xwayland creates for them and keeps
// them in the window stack.
package xwayland

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/surface"
	"github.com/mstarongithub/consolation/window"
)

// Conn is the X11 side of the window manager
type Conn interface {
	// BecomeWM redirects the root's substructure, takes WM_S0 and redirects
	// subwindows through Composite
	BecomeWM() error
	ConfigureWindow(win uint32, c Configure) error
	MapWindow(win uint32) error
	// Property fetches a property by atom names. A missing property is empty, not an error
	Property(win uint32, prop, typ string) ([]byte, error)
	// PropertyAtoms fetches an ATOM list property as atom names
	PropertyAtoms(win uint32, prop string) ([]string, error)
	Geometry(win uint32) (geom.Rect, error)
}

// Host is what the window manager needs from the compositor
type Host interface {
	// LookupSurface resolves a wl_surface object id of the Xwayland client
	LookupSurface(objectID uint32) (surface.ID, bool)
	WindowMapped(w *window.Window)
	// WindowLeaving runs while w is still stacked, WindowRemoved after it left
	WindowLeaving(w *window.Window)
	WindowRemoved(w *window.Window)
}

type Env struct {
	Stack    *window.Stack
	Surfaces *surface.Store
	Outputs  *output.Registry
	Host     Host
}

var ErrNoOutput = errors.New("no output to size X11 windows to")

type WM struct {
	conn Conn
	// Windows announced through WL_SURFACE_ID before their surface existed, by object id
	unpaired map[uint32]unpaired
}

func New(conn Conn) *WM {
	return &WM{conn: conn, unpaired: map[uint32]unpaired{}}
}

// Start makes the connection the window manager of the X server
func (wm *WM) Start() error {
	if err := wm.conn.BecomeWM(); err != nil {
		return fmt.Errorf("becoming X11 window manager: %w", err)
	}
	logrus.Infoln("Xwayland window manager started")
	return nil
}

// Handle processes one X11 event. Errors only concern that event
func (wm *WM) Handle(env *Env, ev Event) error {
	switch ev := ev.(type) {
	case ConfigureRequest:
		return wm.configureRequest(env, ev)
	case MapRequest:
		if err := wm.conn.MapWindow(ev.Window); err != nil {
			return fmt.Errorf("mapping %#x: %w", ev.Window, err)
		}
		wm.updateTitle(env, ev.Window)
	case ClientMessage:
		if ev.Type == "WL_SURFACE_ID" {
			wm.surfaceID(env, ev)
			return nil
		}
		wm.updateTitle(env, ev.Window)
	case PropertyNotify:
		if ev.Atom == "_NET_WM_NAME" || ev.Atom == "WM_NAME" {
			wm.updateTitle(env, ev.Window)
		}
	case NetWMState:
		return wm.netWMState(env, ev)
	case UnmapNotify:
		if w, ok := env.Stack.FindX11(ev.Window); ok && !w.IsPopup {
			wm.remove(env, w)
		}
	case DestroyNotify:
		for id, u := range wm.unpaired {
			if u.window == ev.Window {
				delete(wm.unpaired, id)
			}
		}
		if w, ok := env.Stack.FindX11(ev.Window); ok {
			wm.remove(env, w)
		}
	}
	return nil
}

func (wm *WM) remove(env *Env, w *window.Window) {
	if env.Host != nil {
		env.Host.WindowLeaving(w)
	}
	env.Stack.Remove(w.ID)
	logrus.WithField("x11", fmt.Sprintf("%#x", w.X11)).Debugln("X11 window left the stack")
	if env.Host != nil {
		env.Host.WindowRemoved(w)
	}
}

func outputSize(env *Env) (geom.Size, bool) {
	if env.Outputs == nil {
		return geom.Size{}, false
	}
	all := env.Outputs.All()
	if len(all) == 0 {
		return geom.Size{}, false
	}
	g := all[0].Geometry()
	return geom.Size{W: g.W, H: g.H}, true
}

// configureRequest grants the request, except that windows always sit at the
// origin with the size of the first output
func (wm *WM) configureRequest(env *Env, r ConfigureRequest) error {
	size, ok := outputSize(env)
	if !ok {
		return ErrNoOutput
	}
	c := Configure{
		ValueMask: r.ValueMask&(ConfigX|ConfigY|ConfigBorderWidth|ConfigSibling|ConfigStackMode) |
			ConfigWidth | ConfigHeight,
		Width:       uint32(size.W),
		Height:      uint32(size.H),
		BorderWidth: uint32(r.BorderWidth),
		Sibling:     r.Sibling,
		StackMode:   uint32(r.StackMode),
	}
	if err := wm.conn.ConfigureWindow(r.Window, c); err != nil {
		return fmt.Errorf("configuring %#x: %w", r.Window, err)
	}
	return nil
}

func (wm *WM) surfaceID(env *Env, msg ClientMessage) {
	objectID := msg.Data[0]
	var loc geom.Point
	if g, err := wm.conn.Geometry(msg.Window); err != nil {
		logrus.WithError(err).WithField("x11", fmt.Sprintf("%#x", msg.Window)).
			Warningln("Failed to get geometry, the window may already be gone")
	} else {
		loc = g.Loc()
	}
	sid, ok := env.Host.LookupSurface(objectID)
	if !ok {
		wm.unpaired[objectID] = unpaired{window: msg.Window, location: loc}
		return
	}
	wm.pair(env, msg.Window, sid, loc)
}

// SurfaceCommitted pairs a surface that was announced before it existed
func (wm *WM) SurfaceCommitted(env *Env, objectID uint32, sid surface.ID) {
	u, ok := wm.unpaired[objectID]
	if !ok {
		return
	}
	delete(wm.unpaired, objectID)
	wm.pair(env, u.window, sid, u.location)
}

// Unpaired is the number of windows still waiting for their surface
func (wm *WM) Unpaired() int {
	return len(wm.unpaired)
}

func (wm *WM) pair(env *Env, xid uint32, sid surface.ID, loc geom.Point) {
	if err := env.Surfaces.SetRole(sid, &surface.X11Role{Window: xid}); err != nil {
		// A protocol error would only kill Xwayland
		logrus.WithError(err).WithField("surface", sid).Errorln("X11 surface already has a role")
		return
	}
	w := &window.Window{
		Kind:     window.KindX11,
		Surface:  sid,
		X11:      xid,
		IsPopup:  wm.isPopup(xid),
		Location: loc,
		Extents:  env.Surfaces.Extents(sid),
		Title:    wm.title(xid),
		Mapped:   true,
		Capabilities: window.Capabilities{
			Fullscreen: true,
			Maximize:   true,
		},
	}
	env.Stack.Insert(w)
	logrus.WithFields(logrus.Fields{
		"x11":     fmt.Sprintf("%#x", xid),
		"surface": sid,
		"popup":   w.IsPopup,
	}).Infoln("Paired X11 window")
	if env.Host != nil {
		env.Host.WindowMapped(w)
	}
}

func (wm *WM) isPopup(xid uint32) bool {
	types, err := wm.conn.PropertyAtoms(xid, "_NET_WM_WINDOW_TYPE")
	if err != nil || len(types) == 0 {
		return false
	}
	return types[0] == "_NET_WM_WINDOW_TYPE_MENU"
}

var titleSources = [][2]string{
	{"_NET_WM_NAME", "UTF8_STRING"},
	{"_NET_WM_NAME", "STRING"},
	{"WM_NAME", "UTF8_STRING"},
	{"WM_NAME", "STRING"},
}

func (wm *WM) title(xid uint32) string {
	for _, src := range titleSources {
		raw, err := wm.conn.Property(xid, src[0], src[1])
		if err != nil {
			logrus.WithError(err).WithField("property", src[0]).Debugln("Reading X11 title failed")
			continue
		}
		if len(raw) > 0 && utf8.Valid(raw) {
			return string(raw)
		}
	}
	return ""
}

func (wm *WM) updateTitle(env *Env, xid uint32) {
	w, ok := env.Stack.FindX11(xid)
	if !ok {
		return
	}
	if t := wm.title(xid); t != "" {
		w.Title = t
	}
}

func (wm *WM) netWMState(env *Env, ev NetWMState) error {
	w, ok := env.Stack.FindX11(ev.Window)
	if !ok {
		return nil
	}
	for _, s := range ev.States {
		var cur bool
		switch s {
		case "_NET_WM_STATE_FULLSCREEN":
			cur = w.States.Fullscreen
		case "_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ":
			cur = w.States.Maximized
		default:
			continue
		}
		want := cur
		switch ev.Action {
		case stateRemove:
			want = false
		case stateAdd:
			want = true
		case stateToggle:
			want = !cur
		}
		if want == cur {
			continue
		}
		var err error
		if s == "_NET_WM_STATE_FULLSCREEN" {
			err = wm.SetFullscreen(env, w, want)
		} else {
			err = wm.SetMaximized(env, w, want)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SetMaximized maximizes an X11 window to the first output, saving its geometry
func (wm *WM) SetMaximized(env *Env, w *window.Window, on bool) error {
	if w.States.Maximized == on {
		return nil
	}
	w.States.Maximized = on
	return wm.reconfigure(env, w)
}

// SetFullscreen works like SetMaximized
func (wm *WM) SetFullscreen(env *Env, w *window.Window, on bool) error {
	if w.States.Fullscreen == on {
		return nil
	}
	w.States.Fullscreen = on
	return wm.reconfigure(env, w)
}

func (wm *WM) reconfigure(env *Env, w *window.Window) error {
	var target geom.Rect
	if w.States.Maximized || w.States.Fullscreen {
		size, ok := outputSize(env)
		if !ok {
			return ErrNoOutput
		}
		if w.SavedGeometry == nil {
			saved := geom.Rect{X: w.Location.X, Y: w.Location.Y, W: w.Extents.W, H: w.Extents.H}
			w.SavedGeometry = &saved
		}
		target = geom.Rect{W: size.W, H: size.H}
	} else {
		if w.SavedGeometry == nil {
			return nil
		}
		target = *w.SavedGeometry
		w.SavedGeometry = nil
	}
	w.Location = target.Loc()
	err := wm.conn.ConfigureWindow(w.X11, Configure{
		ValueMask: ConfigX | ConfigY | ConfigWidth | ConfigHeight,
		X:         int32(target.X),
		Y:         int32(target.Y),
		Width:     uint32(max(target.W, 1)),
		Height:    uint32(max(target.H, 1)),
	})
	if err != nil {
		return fmt.Errorf("configuring %#x: %w", w.X11, err)
	}
	return nil
}
