package input

import (
	"strings"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/output"
)

type touchPoint struct {
	serial uint32
	target Target
	// Window local position at touch down
	start geom.PointF
}

func (r *Router) touchCapable() bool {
	return r.seat.Touch != nil && r.hasCap(func(c DeviceCaps) bool { return c.Touch })
}

// touchOutput is the built-in panel when there is one, otherwise the first output
func touchOutput(reg *output.Registry) (*output.Output, bool) {
	if reg == nil {
		return nil, false
	}
	enabled := reg.Enabled()
	for _, o := range enabled {
		if strings.HasPrefix(o.Name, "eDP") {
			return o, true
		}
	}
	if len(enabled) == 0 {
		return nil, false
	}
	return enabled[0], true
}

// touchLocation maps normalized touch coordinates on the touch output back
// into the current window, undoing the output transform and the fit scaling
func (r *Router) touchLocation(env *Env, x, y float64) geom.PointF {
	o, ok := touchOutput(env.Outputs)
	if !ok {
		return geom.PointF{}
	}
	size := o.PixelSize()
	p := geom.PointF{X: x * float64(size.W), Y: y * float64(size.H)}
	p = o.Transform.Invert().TransformPoint(p, size.ToF())

	b := r.bounds(env)
	if env.Stack == nil || env.Stack.Top() == nil {
		return p.Mul(1 / outputScale(o)).Clamp(b)
	}
	dest := geom.RectF{W: float64(size.W), H: float64(size.H)}
	scale, offset := geom.Fit(b.Size(), dest)
	if scale == 0 {
		return geom.PointF{}
	}
	return p.Sub(offset).Mul(1 / scale).Clamp(b)
}

func outputScale(o *output.Output) float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

func (r *Router) touchDown(env *Env, ev TouchDown) {
	if !r.touchCapable() {
		return
	}
	serial := r.serials.Next()
	r.updateKeyboardFocus(env, serial)
	loc := r.touchLocation(env, ev.X, ev.Y)
	target := r.targetAt(env, loc)
	if target == nil {
		return
	}
	r.touches[ev.Slot] = &touchPoint{serial: serial, target: *target, start: loc}
	r.seat.Touch.Down(*target, serial, ev.Time, ev.Slot)
}

func (r *Router) touchUp(ev TouchUp) {
	if !r.touchCapable() {
		return
	}
	if _, ok := r.touches[ev.Slot]; !ok {
		return
	}
	delete(r.touches, ev.Slot)
	if len(r.touches) == 0 {
		r.touchGrab = nil
	}
	r.seat.Touch.Up(r.serials.Next(), ev.Time, ev.Slot)
}

func (r *Router) touchMotion(env *Env, ev TouchMotion) {
	if !r.touchCapable() {
		return
	}
	tp, ok := r.touches[ev.Slot]
	if !ok {
		return
	}
	loc := r.touchLocation(env, ev.X, ev.Y)
	if g := r.touchGrab; g != nil && g.kind != grabClick {
		r.applyGrab(env, g, loc.Sub(tp.start))
		return
	}
	r.seat.Touch.Motion(ev.Time, ev.Slot, tp.target.Local.Add(loc.Sub(tp.start)))
}

func (r *Router) touchCancel() {
	if !r.touchCapable() {
		return
	}
	clear(r.touches)
	r.touchGrab = nil
	r.seat.Touch.Cancel()
}
