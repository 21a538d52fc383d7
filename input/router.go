// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package input routes backend input events to the focused clients.
// It owns keyboard and pointer focus, the shortcut table, grabs and
// pointer constraints. Compositor state is handed in on every call.
package input

import (
	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/serial"
	"github.com/mstarongithub/consolation/surface"
	"github.com/mstarongithub/consolation/window"
)

// MenuState is the little the router needs to know about the window menu
type MenuState interface {
	MenuOpen() bool
}

// Handler receives everything the router wants the compositor to do
type Handler interface {
	Perform(a Action)
	SetActivated(w *window.Window, active bool)
	// Interactive resize wants the window at a new size
	RequestSize(w *window.Window, size geom.Size)
}

// Env is the compositor state an event is routed against
type Env struct {
	Stack    *window.Stack
	Layers   *window.Layers
	Outputs  *output.Registry
	Surfaces *surface.Store
	Menu     MenuState
	Handler  Handler
}

func (e *Env) menuOpen() bool {
	return e.Menu != nil && e.Menu.MenuOpen()
}

// Constraint is a pointer constraint requested by a client
type Constraint int

const (
	ConstraintLocked = Constraint(iota)
	ConstraintConfined
)

type Router struct {
	seat     Seat
	serials  *serial.Counter
	bindings []Binding

	// Normalized keysyms whose press was consumed by a shortcut
	suppressed map[Keysym]struct{}
	// Keycodes forwarded as pressed
	pressed map[uint32]struct{}

	keyboardFocus *Target
	pointerFocus  *Target
	// Pointer location local to the current window bounding box
	pointer geom.PointF
	buttons map[uint32]struct{}

	pointerGrab  *grab
	keyboardGrab bool
	imeActive    bool
	touchGrab    *grab

	constraints map[surface.ID]Constraint

	devices map[string]DeviceCaps
	touches map[int32]*touchPoint
	tools   map[ToolID]*toolState
	gesture *Target
}

func New(seat Seat, bindings []Binding) *Router {
	return &Router{
		seat:        seat,
		serials:     serial.Global,
		bindings:    bindings,
		suppressed:  map[Keysym]struct{}{},
		pressed:     map[uint32]struct{}{},
		buttons:     map[uint32]struct{}{},
		constraints: map[surface.ID]Constraint{},
		devices:     map[string]DeviceCaps{},
		touches:     map[int32]*touchPoint{},
		tools:       map[ToolID]*toolState{},
	}
}

// SetSerials replaces the serial source, mostly for tests
func (r *Router) SetSerials(c *serial.Counter) {
	r.serials = c
}

// Dispatch routes a single event
func (r *Router) Dispatch(env *Env, ev Event) {
	switch ev := ev.(type) {
	case DeviceAdded:
		r.devices[ev.Name] = ev.Caps
	case DeviceRemoved:
		delete(r.devices, ev.Name)
		if !r.hasCap(func(c DeviceCaps) bool { return c.Tablet }) {
			r.dropTools()
		}
	case KeyboardKey:
		r.keyboardKey(env, ev)
	case KeyboardModifiers:
		r.keyboardModifiers(ev)
	case PointerMotion:
		r.pointerMotion(env, ev)
	case PointerMotionAbsolute:
		r.pointerMotionAbsolute(env, ev)
	case PointerButton:
		r.pointerButton(env, ev)
	case PointerAxis:
		r.pointerAxis(env, ev)
	case TouchDown:
		r.touchDown(env, ev)
	case TouchUp:
		r.touchUp(ev)
	case TouchMotion:
		r.touchMotion(env, ev)
	case TouchFrame:
		if r.touchCapable() {
			r.seat.Touch.Frame()
		}
	case TouchCancel:
		r.touchCancel()
	case TabletProximity:
		r.tabletProximity(env, ev)
	case TabletAxis:
		r.tabletAxis(env, ev)
	case TabletTip:
		r.tabletTip(env, ev)
	case TabletButton:
		r.tabletButton(ev)
	case GestureSwipeBegin, GestureSwipeUpdate, GestureSwipeEnd,
		GesturePinchBegin, GesturePinchUpdate, GesturePinchEnd,
		GestureHoldBegin, GestureHoldEnd:
		r.gestureEvent(env, ev)
	default:
		logrus.WithField("event", ev).Debug("Ignoring unknown input event")
	}
}

func (r *Router) hasCap(f func(DeviceCaps) bool) bool {
	for _, c := range r.devices {
		if f(c) {
			return true
		}
	}
	return false
}

func (r *Router) keyboardKey(env *Env, ev KeyboardKey) {
	sym := ev.Keysym.Lower()
	if ev.State == KeyPressed {
		if action, ok := Match(r.bindings, ev.Modifiers, ev.Keysym, env.menuOpen()); ok {
			r.suppressed[sym] = struct{}{}
			logrus.WithFields(logrus.Fields{
				"keysym": ev.Keysym.String(),
				"action": action.Kind.String(),
			}).Debug("Intercepted shortcut")
			if env.Handler != nil {
				env.Handler.Perform(action)
			}
			return
		}
	} else if _, ok := r.suppressed[sym]; ok {
		delete(r.suppressed, sym)
		return
	}

	if ev.State == KeyPressed {
		r.pressed[ev.KeyCode] = struct{}{}
	} else {
		delete(r.pressed, ev.KeyCode)
	}
	if r.seat.Keyboard == nil || r.resolveKeyboardFocus(env) == nil {
		return
	}
	r.seat.Keyboard.Key(r.serials.Next(), ev.Time, ev.KeyCode, ev.State)
}

func (r *Router) keyboardModifiers(ev KeyboardModifiers) {
	if r.seat.Keyboard == nil || r.keyboardFocus == nil {
		return
	}
	r.seat.Keyboard.Modifiers(r.serials.Next(), ev.State)
}

// ReleaseKeys sends a release for every forwarded key still held, used when
// the session loses the input devices
func (r *Router) ReleaseKeys(env *Env, time uint32) {
	focus := r.resolveKeyboardFocus(env)
	for code := range r.pressed {
		if focus != nil && r.seat.Keyboard != nil {
			r.seat.Keyboard.Key(r.serials.Next(), time, code, KeyReleased)
		}
		delete(r.pressed, code)
	}
	for sym := range r.suppressed {
		delete(r.suppressed, sym)
	}
}

// resolveKeyboardFocus drops a focus whose window or surface is gone
func (r *Router) resolveKeyboardFocus(env *Env) *Target {
	if r.keyboardFocus == nil {
		return nil
	}
	if !r.targetAlive(env, *r.keyboardFocus) {
		r.keyboardFocus = nil
		if r.seat.Keyboard != nil {
			r.seat.Keyboard.Leave(r.serials.Next())
		}
	}
	return r.keyboardFocus
}

func (r *Router) targetAlive(env *Env, t Target) bool {
	if env.Surfaces != nil {
		if _, ok := env.Surfaces.Get(t.Surface); !ok {
			return false
		}
	}
	if t.Window != 0 && env.Stack != nil {
		if _, ok := env.Stack.Find(t.Window); !ok {
			return false
		}
	}
	return true
}

// KeyboardFocus returns the current keyboard focus
func (r *Router) KeyboardFocus() (Target, bool) {
	if r.keyboardFocus == nil {
		return Target{}, false
	}
	return *r.keyboardFocus, true
}

// PointerFocus returns the surface the pointer is over
func (r *Router) PointerFocus() (Target, bool) {
	if r.pointerFocus == nil {
		return Target{}, false
	}
	return *r.pointerFocus, true
}

// PointerLocation is the pointer position local to the current window
func (r *Router) PointerLocation() geom.PointF {
	return r.pointer
}

// SetKeyboardGrab marks an explicit keyboard grab, like a popup grab
func (r *Router) SetKeyboardGrab(active bool) {
	r.keyboardGrab = active
}

// SetInputMethod tells the router whether an input method is active.
// A keyboard grab held by an input method does not stop focus changes
func (r *Router) SetInputMethod(active bool) {
	r.imeActive = active
}

func (r *Router) focusLocked() bool {
	switch {
	case r.pointerGrab != nil:
		return true
	case r.keyboardGrab && !r.imeActive:
		return true
	case r.touchGrab != nil:
		return true
	}
	return false
}

// UpdateKeyboardFocus moves keyboard focus to the interactive layer surface
// or the topmost window, unless a grab pins it
func (r *Router) UpdateKeyboardFocus(env *Env) {
	r.updateKeyboardFocus(env, 0)
}

func (r *Router) updateKeyboardFocus(env *Env, serial uint32) {
	if r.focusLocked() {
		return
	}
	var next *Target
	if env.Layers != nil {
		if ls, ok := env.Layers.Interactive(); ok {
			next = &Target{Surface: ls.Surface}
		}
	}
	if next == nil && env.Stack != nil {
		if w := env.Stack.Top(); w != nil {
			next = &Target{Window: w.ID, Surface: w.Surface}
		}
	}
	r.setKeyboardFocus(env, next, serial)
}

func (r *Router) setKeyboardFocus(env *Env, next *Target, serial uint32) {
	prev := r.keyboardFocus
	if prev != nil && next != nil && prev.Surface == next.Surface {
		return
	}
	if prev == nil && next == nil {
		return
	}
	if serial == 0 {
		serial = r.serials.Next()
	}
	if prev != nil {
		r.activate(env, prev.Window, false)
		if r.seat.Keyboard != nil {
			r.seat.Keyboard.Leave(serial)
		}
	}
	r.keyboardFocus = next
	if next != nil {
		r.activate(env, next.Window, true)
		if r.seat.Keyboard != nil {
			r.seat.Keyboard.Enter(*next, serial)
		}
	}
}

func (r *Router) activate(env *Env, id window.ID, active bool) {
	if id == 0 || env.Stack == nil || env.Handler == nil {
		return
	}
	if w, ok := env.Stack.Find(id); ok {
		env.Handler.SetActivated(w, active)
	}
}

// SetConstraint installs a pointer constraint for a surface
func (r *Router) SetConstraint(id surface.ID, c Constraint) {
	r.constraints[id] = c
}

func (r *Router) ClearConstraint(id surface.ID) {
	delete(r.constraints, id)
}

// locked reports whether the surface under the pointer holds a lock
func (r *Router) locked() bool {
	if r.pointerFocus == nil {
		return false
	}
	c, ok := r.constraints[r.pointerFocus.Surface]
	return ok && c == ConstraintLocked
}

// SurfaceDestroyed forgets every reference to a surface: focus, grabs,
// touch points and constraints
func (r *Router) SurfaceDestroyed(env *Env, id surface.ID) {
	delete(r.constraints, id)
	if r.pointerGrab != nil && r.pointerGrab.target.Surface == id {
		r.pointerGrab = nil
	}
	if r.touchGrab != nil && r.touchGrab.target.Surface == id {
		r.touchGrab = nil
	}
	for slot, tp := range r.touches {
		if tp.target.Surface == id {
			delete(r.touches, slot)
		}
	}
	if r.gesture != nil && r.gesture.Surface == id {
		r.gesture = nil
	}
	if r.pointerFocus != nil && r.pointerFocus.Surface == id {
		r.pointerFocus = nil
	}
	if r.keyboardFocus != nil && r.keyboardFocus.Surface == id {
		r.activate(env, r.keyboardFocus.Window, false)
		r.keyboardFocus = nil
		if r.seat.Keyboard != nil {
			r.seat.Keyboard.Leave(r.serials.Next())
		}
		// A window still owning the surface is about to leave the stack, WindowRemoved refocuses then
		if env.Stack != nil {
			if w, ok := env.Stack.FindBySurface(id); ok && w.Surface == id {
				return
			}
		}
		r.updateKeyboardFocus(env, 0)
	}
}

// ReleaseWindow drops grabs and focus held on a window before it leaves the stack
func (r *Router) ReleaseWindow(id window.ID) {
	if r.pointerGrab != nil && r.pointerGrab.target.Window == id {
		r.pointerGrab = nil
	}
	if r.touchGrab != nil && r.touchGrab.target.Window == id {
		r.touchGrab = nil
	}
	if r.pointerFocus != nil && r.pointerFocus.Window == id {
		r.pointerFocus = nil
	}
	if r.keyboardFocus != nil && r.keyboardFocus.Window == id {
		r.keyboardFocus = nil
		if r.seat.Keyboard != nil {
			r.seat.Keyboard.Leave(r.serials.Next())
		}
	}
}

// WindowRemoved hands focus on once a window left the stack
func (r *Router) WindowRemoved(env *Env, id window.ID) {
	r.ReleaseWindow(id)
	r.updateKeyboardFocus(env, 0)
}
