package input

import "github.com/mstarongithub/consolation/geom"

type toolState struct {
	caps      ToolCaps
	proximity bool
	last      TabletAxis
}

func (r *Router) tabletCapable() bool {
	return r.seat.Tablet != nil && r.hasCap(func(c DeviceCaps) bool { return c.Tablet })
}

func (r *Router) dropTools() {
	for id := range r.tools {
		if r.seat.Tablet != nil {
			r.seat.Tablet.RemoveTool(id)
		}
		delete(r.tools, id)
	}
}

func (r *Router) tool(id ToolID, caps ToolCaps) *toolState {
	ts, ok := r.tools[id]
	if !ok {
		ts = &toolState{caps: caps}
		r.tools[id] = ts
		r.seat.Tablet.AddTool(id, caps)
	}
	return ts
}

// tabletPoint moves the pointer along with the tool
func (r *Router) tabletPoint(env *Env, x, y float64, time uint32) (*Target, geom.PointF) {
	b := r.bounds(env)
	r.pointer = geom.PointF{X: x * float64(b.W), Y: y * float64(b.H)}.Clamp(b)
	r.motion(env, time)
	return r.targetAt(env, r.pointer), r.pointer
}

func (r *Router) tabletProximity(env *Env, ev TabletProximity) {
	if !r.tabletCapable() {
		return
	}
	ts := r.tool(ev.Tool, ev.Caps)
	if !ev.In {
		if ts.proximity {
			ts.proximity = false
			r.seat.Tablet.ProximityOut(ev.Tool)
			r.seat.Tablet.Frame(ev.Tool, ev.Time)
		}
		return
	}
	target, _ := r.tabletPoint(env, ev.X, ev.Y, ev.Time)
	if target == nil {
		return
	}
	ts.proximity = true
	ts.last = TabletAxis{Tool: ev.Tool, X: ev.X, Y: ev.Y}
	r.seat.Tablet.ProximityIn(ev.Tool, *target, r.serials.Next())
	r.seat.Tablet.Frame(ev.Tool, ev.Time)
}

func (r *Router) tabletAxis(env *Env, ev TabletAxis) {
	if !r.tabletCapable() {
		return
	}
	ts, ok := r.tools[ev.Tool]
	if !ok || !ts.proximity {
		return
	}
	sink := r.seat.Tablet
	last := ts.last
	if ev.X != last.X || ev.Y != last.Y {
		if target, _ := r.tabletPoint(env, ev.X, ev.Y, ev.Time); target != nil {
			sink.Motion(ev.Tool, target.Local)
		}
	}
	if ts.caps.Pressure && ev.Pressure != last.Pressure {
		sink.Pressure(ev.Tool, ev.Pressure)
	}
	if ts.caps.Distance && ev.Distance != last.Distance {
		sink.Distance(ev.Tool, ev.Distance)
	}
	if ts.caps.Tilt && ev.Tilt != last.Tilt {
		sink.Tilt(ev.Tool, ev.Tilt)
	}
	if ts.caps.Rotation && ev.Rotation != last.Rotation {
		sink.Rotation(ev.Tool, ev.Rotation)
	}
	if ts.caps.Slider && ev.Slider != last.Slider {
		sink.Slider(ev.Tool, ev.Slider)
	}
	if ts.caps.Wheel && (ev.WheelDelta != 0 || ev.WheelClicks != 0) {
		sink.Wheel(ev.Tool, ev.WheelDelta, ev.WheelClicks)
	}
	ts.last = ev
	sink.Frame(ev.Tool, ev.Time)
}

func (r *Router) tabletTip(env *Env, ev TabletTip) {
	if !r.tabletCapable() {
		return
	}
	if _, ok := r.tools[ev.Tool]; !ok {
		return
	}
	if ev.Down {
		serial := r.serials.Next()
		r.seat.Tablet.Down(ev.Tool, serial)
		r.updateKeyboardFocus(env, serial)
	} else {
		r.seat.Tablet.Up(ev.Tool)
	}
	r.seat.Tablet.Frame(ev.Tool, ev.Time)
}

func (r *Router) tabletButton(ev TabletButton) {
	if !r.tabletCapable() {
		return
	}
	if _, ok := r.tools[ev.Tool]; !ok {
		return
	}
	r.seat.Tablet.Button(ev.Tool, r.serials.Next(), ev.Button, ev.State)
	r.seat.Tablet.Frame(ev.Tool, ev.Time)
}
