package input

func (r *Router) gestureBegin(env *Env) (*Target, uint32) {
	if env.menuOpen() {
		return nil, 0
	}
	t := r.targetAt(env, r.pointer)
	r.gesture = t
	if t == nil {
		return nil, 0
	}
	return t, r.serials.Next()
}

func (r *Router) gestureEvent(env *Env, ev Event) {
	sink := r.seat.Gestures
	if sink == nil {
		return
	}
	switch ev := ev.(type) {
	case GestureSwipeBegin:
		if t, serial := r.gestureBegin(env); t != nil {
			sink.SwipeBegin(*t, serial, ev.Time, ev.Fingers)
		}
	case GestureSwipeUpdate:
		if r.gesture != nil {
			sink.SwipeUpdate(ev.Time, ev.Delta)
		}
	case GestureSwipeEnd:
		if r.gesture != nil {
			r.gesture = nil
			sink.SwipeEnd(r.serials.Next(), ev.Time, ev.Cancelled)
		}
	case GesturePinchBegin:
		if t, serial := r.gestureBegin(env); t != nil {
			sink.PinchBegin(*t, serial, ev.Time, ev.Fingers)
		}
	case GesturePinchUpdate:
		if r.gesture != nil {
			sink.PinchUpdate(ev.Time, ev.Delta, ev.Scale, ev.Rotation)
		}
	case GesturePinchEnd:
		if r.gesture != nil {
			r.gesture = nil
			sink.PinchEnd(r.serials.Next(), ev.Time, ev.Cancelled)
		}
	case GestureHoldBegin:
		if t, serial := r.gestureBegin(env); t != nil {
			sink.HoldBegin(*t, serial, ev.Time, ev.Fingers)
		}
	case GestureHoldEnd:
		if r.gesture != nil {
			r.gesture = nil
			sink.HoldEnd(r.serials.Next(), ev.Time, ev.Cancelled)
		}
	}
}
