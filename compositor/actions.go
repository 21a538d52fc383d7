package compositor

import (
	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/common/ipc"
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/input"
	"github.com/mstarongithub/consolation/render"
	"github.com/mstarongithub/consolation/surface"
	"github.com/mstarongithub/consolation/window"
)

const (
	scaleStep = 0.25
	minScale  = 1.0
)

// Perform executes a shortcut action
func (s *State) Perform(a input.Action) {
	switch a.Kind {
	case input.ActionQuit:
		logrus.Infoln("Quit requested")
		s.Stop()
	case input.ActionVTSwitch:
		if s.switchVT == nil {
			logrus.WithField("vt", a.VT).Debugln("No session, can't switch VT")
			return
		}
		if err := s.switchVT(a.VT); err != nil {
			logrus.WithError(err).WithField("vt", a.VT).Errorln("Failed to switch VT")
		}
	case input.ActionRun:
		if s.spawner == nil {
			logrus.Warningln("No spawner configured, can't run commands")
			return
		}
		if err := s.spawner.Spawn(a.Command, nil); err != nil {
			logrus.WithError(err).WithField("command", a.Command).Errorln("Failed to spawn")
		}
	case input.ActionToggleMenu:
		s.composer.ToggleMenu()
	case input.ActionMenuUp:
		s.composer.MenuUp()
	case input.ActionMenuDown:
		s.composer.MenuDown(s.stack.Len())
	case input.ActionMenuLeft, input.ActionMenuRight:
		// The menu is a single column
	case input.ActionMenuSelect:
		if _, ok := s.composer.Confirm(s.stack); ok {
			if top := s.stack.Top(); top != nil && top.States.Minimized {
				s.setMinimized(top, false)
			}
			s.focusChanged()
		}
	case input.ActionMenuBack:
		s.composer.Back()
	case input.ActionScaleUp:
		s.adjustScale(scaleStep)
	case input.ActionScaleDown:
		s.adjustScale(-scaleStep)
	case input.ActionRotateOutput:
		s.rotate()
	case input.ActionToggleTint:
		if t, ok := s.renderer.(render.Tinter); ok {
			t.SetTint(!t.Tint())
			logrus.WithField("tint", t.Tint()).Debugln("Toggled debug tint")
		}
	}
}

// SetActivated updates the activated state and tells the client about it
func (s *State) SetActivated(w *window.Window, active bool) {
	if w.States.Activated == active {
		return
	}
	w.States.Activated = active
	s.configure(w)
}

// RequestSize is an interactive resize asking for a new window size
func (s *State) RequestSize(w *window.Window, size geom.Size) {
	if w.Kind == window.KindX11 {
		logrus.WithField("window", w.ID).Debugln("Ignoring interactive resize of X11 window")
		return
	}
	if s.protocol != nil {
		s.protocol.Configure(w, size)
	}
}

// configure resends the current size and states of a wayland window
func (s *State) configure(w *window.Window) {
	if w.Kind != window.KindWayland || s.protocol == nil {
		return
	}
	size := w.WindowGeometry().Size()
	if size.Empty() || w.States.Fullscreen || w.States.Maximized {
		size = s.outputSize()
	}
	s.protocol.Configure(w, size)
}

// Activate raises a window and gives it focus
func (s *State) Activate(id window.ID) {
	w, ok := s.stack.Find(id)
	if !ok {
		return
	}
	if w.States.Minimized {
		s.setMinimized(w, false)
	}
	s.stack.Raise(id)
	s.focusChanged()
}

func (s *State) Close(id window.ID) {
	w, ok := s.stack.Find(id)
	if !ok || s.protocol == nil {
		return
	}
	s.protocol.Close(w)
}

func (s *State) SetFullscreen(id window.ID, _ string) {
	s.setState(id, func(w *window.Window) {
		if w.Kind == window.KindX11 {
			s.x11State(w, func() error { return s.wm.SetFullscreen(s.x11Env(), w, true) })
			return
		}
		w.States.Fullscreen = true
	})
}

func (s *State) UnsetFullscreen(id window.ID) {
	s.setState(id, func(w *window.Window) {
		if w.Kind == window.KindX11 {
			s.x11State(w, func() error { return s.wm.SetFullscreen(s.x11Env(), w, false) })
			return
		}
		w.States.Fullscreen = false
	})
}

func (s *State) SetMaximized(id window.ID) {
	s.setState(id, func(w *window.Window) {
		if w.Kind == window.KindX11 {
			s.x11State(w, func() error { return s.wm.SetMaximized(s.x11Env(), w, true) })
			return
		}
		w.States.Maximized = true
	})
}

func (s *State) UnsetMaximized(id window.ID) {
	s.setState(id, func(w *window.Window) {
		if w.Kind == window.KindX11 {
			s.x11State(w, func() error { return s.wm.SetMaximized(s.x11Env(), w, false) })
			return
		}
		w.States.Maximized = false
	})
}

func (s *State) SetMinimized(id window.ID) {
	if w, ok := s.stack.Find(id); ok {
		s.setMinimized(w, true)
	}
}

func (s *State) UnsetMinimized(id window.ID) {
	if w, ok := s.stack.Find(id); ok {
		s.setMinimized(w, false)
	}
}

func (s *State) setMinimized(w *window.Window, on bool) {
	w.States.Minimized = on
	if on {
		// Whatever is below takes over the screen
		if n := s.stack.Len(); n > 1 && s.stack.Index(w.ID) == 0 {
			s.stack.InsertAt(w, n)
			s.focusChanged()
		}
	}
}

func (s *State) setState(id window.ID, change func(w *window.Window)) {
	w, ok := s.stack.Find(id)
	if !ok {
		return
	}
	change(w)
	s.configure(w)
}

func (s *State) x11State(w *window.Window, set func() error) {
	if s.wm == nil {
		return
	}
	if err := set(); err != nil {
		logrus.WithError(err).WithField("window", w.ID).Warningln("Failed to reconfigure X11 window")
	}
}

// LookupSurface resolves a wl_surface of the Xwayland client
func (s *State) LookupSurface(objectID uint32) (surface.ID, bool) {
	id, ok := s.xwaylandSurfaces[objectID]
	return id, ok
}

// WindowMapped is called by the X11 window manager once a window was paired
func (s *State) WindowMapped(w *window.Window) {
	w.Extents = s.surfaces.Extents(w.Surface)
	s.notify(ipc.Event{Kind: "mapped", Window: uint64(w.ID), Title: w.Title})
	s.focusChanged()
}

// WindowLeaving is called by the X11 window manager before a window leaves the stack
func (s *State) WindowLeaving(w *window.Window) {
	s.router.ReleaseWindow(w.ID)
}

// WindowRemoved is called by the X11 window manager after a window left the stack
func (s *State) WindowRemoved(w *window.Window) {
	s.router.WindowRemoved(s.inputEnv(), w.ID)
	s.notify(ipc.Event{Kind: "unmapped", Window: uint64(w.ID)})
	s.composer.Clamp(s.stack.Len())
}
