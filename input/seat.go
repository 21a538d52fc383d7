package input

import (
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/surface"
	"github.com/mstarongithub/consolation/window"
)

// Target is the surface an event is delivered to
type Target struct {
	// Zero for surfaces that are not part of a window, like layer surfaces
	Window  window.ID
	Surface surface.ID
	// Event location in surface local coordinates
	Local geom.PointF
}

// AxisFrame is one logical scroll event as sent to clients
type AxisFrame struct {
	Time     uint32
	Source   AxisSource
	Value    [2]float64
	HasValue [2]bool
	V120     [2]int32
	HasV120  [2]bool
	Stop     [2]bool
}

type KeyboardSink interface {
	Enter(t Target, serial uint32)
	Leave(serial uint32)
	Key(serial, time, keycode uint32, state KeyState)
	Modifiers(serial uint32, mods ModifierState)
}

type PointerSink interface {
	Enter(t Target, serial uint32)
	Leave(serial uint32)
	Motion(time uint32, local geom.PointF)
	// Relative motion, timestamps in microseconds
	Relative(utime uint64, delta, unaccel geom.PointF)
	Button(serial, time, button uint32, state ButtonState)
	Axis(f AxisFrame)
	Frame()
}

type TouchSink interface {
	Down(t Target, serial, time uint32, slot int32)
	Up(serial, time uint32, slot int32)
	Motion(time uint32, slot int32, local geom.PointF)
	Frame()
	Cancel()
}

type TabletSink interface {
	AddTool(tool ToolID, caps ToolCaps)
	RemoveTool(tool ToolID)
	ProximityIn(tool ToolID, t Target, serial uint32)
	ProximityOut(tool ToolID)
	Motion(tool ToolID, local geom.PointF)
	Pressure(tool ToolID, v float64)
	Distance(tool ToolID, v float64)
	Tilt(tool ToolID, tilt geom.PointF)
	Rotation(tool ToolID, degrees float64)
	Slider(tool ToolID, v float64)
	Wheel(tool ToolID, degrees float64, clicks int32)
	Down(tool ToolID, serial uint32)
	Up(tool ToolID)
	Button(tool ToolID, serial, button uint32, state ButtonState)
	Frame(tool ToolID, time uint32)
}

type GestureSink interface {
	SwipeBegin(t Target, serial, time, fingers uint32)
	SwipeUpdate(time uint32, delta geom.PointF)
	SwipeEnd(serial, time uint32, cancelled bool)
	PinchBegin(t Target, serial, time, fingers uint32)
	PinchUpdate(time uint32, delta geom.PointF, scale, rotation float64)
	PinchEnd(serial, time uint32, cancelled bool)
	HoldBegin(t Target, serial, time, fingers uint32)
	HoldEnd(serial, time uint32, cancelled bool)
}

// Seat is the protocol side of the seat. A nil sink means the capability is
// not offered and events of that kind are dropped
type Seat struct {
	Keyboard KeyboardSink
	Pointer  PointerSink
	Touch    TouchSink
	Tablet   TabletSink
	Gestures GestureSink
}
