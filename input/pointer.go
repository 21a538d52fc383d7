package input

import (
	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/window"
)

type grabKind int

const (
	grabClick = grabKind(iota)
	grabMove
	grabResize
)

// Edges of an interactive resize, same values as xdg_toplevel.resize_edge
type Edges uint32

const (
	EdgeTop    = Edges(1)
	EdgeBottom = Edges(2)
	EdgeLeft   = Edges(4)
	EdgeRight  = Edges(8)
)

type grab struct {
	kind   grabKind
	serial uint32
	target Target
	// Pointer location when the grab started
	start geom.PointF
	// Window geometry when a move or resize started
	startLoc  geom.Point
	startSize geom.Size
	edges     Edges
}

// bounds is the area the pointer is clamped to: the current window's
// bounding box in window local space, or the primary output
func (r *Router) bounds(env *Env) geom.Rect {
	if env.Stack != nil {
		if w := env.Stack.Top(); w != nil {
			return geom.Rect{W: w.BBox().W, H: w.BBox().H}
		}
	}
	if env.Outputs != nil {
		if o, ok := env.Outputs.Primary(); ok {
			g := o.Geometry()
			return geom.Rect{W: g.W, H: g.H}
		}
	}
	return geom.Rect{}
}

// targetAt hit tests the current window, popups first. loc is local to its bounding box
func (r *Router) targetAt(env *Env, loc geom.PointF) *Target {
	if env.Stack == nil {
		return nil
	}
	w := env.Stack.Top()
	if w == nil {
		return nil
	}
	global := w.BBox().Loc().ToF().Add(loc)
	if env.Surfaces != nil {
		for i := len(w.Popups) - 1; i >= 0; i-- {
			p := w.Popups[i]
			origin := w.Location.Add(w.PopupLocation(p))
			if id, local, ok := env.Surfaces.SurfaceAt(p.Surface, origin, global); ok {
				return &Target{Window: w.ID, Surface: id, Local: local}
			}
		}
		if id, local, ok := env.Surfaces.SurfaceAt(w.Surface, w.Location, global); ok {
			return &Target{Window: w.ID, Surface: id, Local: local}
		}
	}
	return &Target{Window: w.ID, Surface: w.Surface, Local: global.Sub(w.Location.ToF())}
}

func (r *Router) setPointerFocus(next *Target) {
	prev := r.pointerFocus
	if prev != nil && next != nil && prev.Surface == next.Surface {
		r.pointerFocus = next
		return
	}
	if prev == nil && next == nil {
		return
	}
	serial := r.serials.Next()
	if prev != nil && r.seat.Pointer != nil {
		r.seat.Pointer.Leave(serial)
	}
	r.pointerFocus = next
	if next != nil && r.seat.Pointer != nil {
		r.seat.Pointer.Enter(*next, serial)
	}
}

func (r *Router) pointerMotion(env *Env, ev PointerMotion) {
	if env.menuOpen() {
		return
	}
	if r.seat.Pointer != nil && r.pointerFocus != nil {
		r.seat.Pointer.Relative(ev.UTime, ev.Delta, ev.Unaccel)
	}
	if r.locked() {
		if r.seat.Pointer != nil {
			r.seat.Pointer.Frame()
		}
		return
	}
	r.pointer = r.pointer.Add(ev.Delta).Clamp(r.bounds(env))
	r.motion(env, ev.Time)
}

func (r *Router) pointerMotionAbsolute(env *Env, ev PointerMotionAbsolute) {
	if env.menuOpen() {
		return
	}
	if r.locked() {
		if r.seat.Pointer != nil && r.pointerFocus != nil {
			r.seat.Pointer.Frame()
		}
		return
	}
	b := r.bounds(env)
	r.pointer = geom.PointF{X: ev.X * float64(b.W), Y: ev.Y * float64(b.H)}.Clamp(b)
	r.motion(env, ev.Time)
}

// motion applies a grab or refreshes pointer focus, then forwards the position
func (r *Router) motion(env *Env, time uint32) {
	if g := r.pointerGrab; g != nil {
		switch g.kind {
		case grabMove, grabResize:
			r.applyGrab(env, g, r.pointer.Sub(g.start))
			return
		case grabClick:
			t := g.target
			t.Local = t.Local.Add(r.pointer.Sub(g.start))
			r.pointerFocus = &t
			if r.seat.Pointer != nil {
				r.seat.Pointer.Motion(time, t.Local)
				r.seat.Pointer.Frame()
			}
			return
		}
	}
	target := r.targetAt(env, r.pointer)
	r.setPointerFocus(target)
	if target != nil && r.seat.Pointer != nil {
		r.seat.Pointer.Motion(time, target.Local)
		r.seat.Pointer.Frame()
	}
}

func (r *Router) applyGrab(env *Env, g *grab, delta geom.PointF) {
	if env.Stack == nil {
		return
	}
	w, ok := env.Stack.Find(g.target.Window)
	if !ok {
		r.pointerGrab = nil
		return
	}
	d := delta.Round()
	if g.kind == grabMove {
		w.Location = g.startLoc.Add(d)
		return
	}
	size := g.startSize
	if g.edges&EdgeLeft != 0 {
		size.W -= d.X
	} else if g.edges&EdgeRight != 0 {
		size.W += d.X
	}
	if g.edges&EdgeTop != 0 {
		size.H -= d.Y
	} else if g.edges&EdgeBottom != 0 {
		size.H += d.Y
	}
	size.W = max(size.W, 1)
	size.H = max(size.H, 1)
	if env.Handler != nil {
		env.Handler.RequestSize(w, size)
	}
}

func (r *Router) pointerButton(env *Env, ev PointerButton) {
	if env.menuOpen() {
		return
	}
	if ev.State == ButtonPressed && r.pointerFocus == nil {
		r.setPointerFocus(r.targetAt(env, r.pointer))
	}
	serial := r.serials.Next()
	forward := true
	if ev.State == ButtonPressed {
		if r.pointerGrab == nil {
			r.updateKeyboardFocus(env, serial)
		} else if r.pointerGrab.kind != grabClick {
			forward = false
		}
		if len(r.buttons) == 0 && r.pointerGrab == nil && r.pointerFocus != nil {
			r.pointerGrab = &grab{kind: grabClick, serial: serial, target: *r.pointerFocus, start: r.pointer}
		}
		r.buttons[ev.Button] = struct{}{}
	} else {
		delete(r.buttons, ev.Button)
		if len(r.buttons) == 0 && r.pointerGrab != nil {
			r.pointerGrab = nil
		}
	}
	if !forward || r.seat.Pointer == nil || r.pointerFocus == nil {
		return
	}
	r.seat.Pointer.Button(serial, ev.Time, ev.Button, ev.State)
	r.seat.Pointer.Frame()
}

func (r *Router) pointerAxis(env *Env, ev PointerAxis) {
	if env.menuOpen() || r.seat.Pointer == nil || r.pointerFocus == nil {
		return
	}
	f := AxisFrame{Time: ev.Time, Source: ev.Source}
	for axis, v := range ev.Axes {
		amount := v.Amount
		if !v.HasAmount {
			amount = 0
			if v.HasV120 {
				amount = v.V120 * 15 / 120
			}
		}
		if amount != 0 {
			f.Value[axis] = amount
			f.HasValue[axis] = true
			if v.HasV120 {
				f.V120[axis] = int32(v.V120)
				f.HasV120[axis] = true
			}
		} else if ev.Source == AxisSourceFinger && v.HasAmount {
			// only an explicit zero ends a finger scroll
			f.Stop[axis] = true
		}
	}
	r.seat.Pointer.Axis(f)
	r.seat.Pointer.Frame()
}

// validGrabSerial checks that serial belongs to the click grab on the given window
func (r *Router) validGrabSerial(id window.ID, serial uint32) (Target, bool) {
	g := r.pointerGrab
	if g != nil && g.kind == grabClick && g.serial == serial && g.target.Window == id &&
		r.pointerFocus != nil && r.pointerFocus.Window == id {
		return g.target, true
	}
	for _, tp := range r.touches {
		if tp.serial == serial && tp.target.Window == id {
			return tp.target, true
		}
	}
	return Target{}, false
}

// BeginMove starts an interactive move if serial matches a press on the window
func (r *Router) BeginMove(env *Env, id window.ID, serial uint32) bool {
	return r.beginGrab(env, id, serial, grabMove, 0)
}

// BeginResize starts an interactive resize if serial matches a press on the window
func (r *Router) BeginResize(env *Env, id window.ID, serial uint32, edges Edges) bool {
	return r.beginGrab(env, id, serial, grabResize, edges)
}

func (r *Router) beginGrab(env *Env, id window.ID, serial uint32, kind grabKind, edges Edges) bool {
	target, ok := r.validGrabSerial(id, serial)
	if !ok || env.Stack == nil {
		logrus.WithFields(logrus.Fields{"window": id, "serial": serial}).
			Debug("Ignoring interactive grab request with stale serial")
		return false
	}
	w, ok := env.Stack.Find(id)
	if !ok {
		return false
	}
	g := &grab{
		kind:      kind,
		serial:    serial,
		target:    target,
		start:     r.pointer,
		startLoc:  w.Location,
		startSize: w.WindowGeometry().Size(),
		edges:     edges,
	}
	if r.pointerGrab != nil && r.pointerGrab.serial == serial {
		r.pointerGrab = g
	} else {
		r.touchGrab = g
	}
	return true
}
