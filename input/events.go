package input

import "github.com/mstarongithub/consolation/geom"

// Event is any input event a backend produces
type Event interface {
	event()
}

type KeyState int

const (
	KeyReleased = KeyState(iota)
	KeyPressed
)

type ButtonState int

const (
	ButtonReleased = ButtonState(iota)
	ButtonPressed
)

type AxisSource int

const (
	AxisSourceWheel = AxisSource(iota)
	AxisSourceFinger
	AxisSourceContinuous
	AxisSourceWheelTilt
)

const (
	AxisVertical   = 0
	AxisHorizontal = 1
)

// DeviceCaps describes what an input device can produce
type DeviceCaps struct {
	Keyboard bool
	Pointer  bool
	Touch    bool
	Tablet   bool
	Gesture  bool
}

type DeviceAdded struct {
	Name string
	Caps DeviceCaps
}

type DeviceRemoved struct {
	Name string
	Caps DeviceCaps
}

type KeyboardKey struct {
	Time    uint32
	KeyCode uint32
	State   KeyState
	// Keysym produced by the key under the current layout and modifiers
	Keysym    Keysym
	Modifiers Modifiers
}

// ModifierState is the serialized xkb state forwarded to clients
type ModifierState struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

type KeyboardModifiers struct {
	State ModifierState
}

// PointerMotion is relative motion
type PointerMotion struct {
	Time uint32
	// Microsecond timestamp for relative pointer events
	UTime   uint64
	Delta   geom.PointF
	Unaccel geom.PointF
}

// PointerMotionAbsolute carries coordinates normalized to [0,1]
type PointerMotionAbsolute struct {
	Time uint32
	X, Y float64
}

type PointerButton struct {
	Time   uint32
	Button uint32
	State  ButtonState
}

// AxisValue is the scroll amount on one axis. Either part may be missing
type AxisValue struct {
	Amount    float64
	HasAmount bool
	V120      float64
	HasV120   bool
}

type PointerAxis struct {
	Time   uint32
	Source AxisSource
	// Indexed by AxisVertical and AxisHorizontal
	Axes [2]AxisValue
}

type TouchDown struct {
	Time uint32
	Slot int32
	// Normalized to the touch output
	X, Y float64
}

type TouchUp struct {
	Time uint32
	Slot int32
}

type TouchMotion struct {
	Time uint32
	Slot int32
	X, Y float64
}

type TouchFrame struct{}

type TouchCancel struct{}

type ToolID uint64

type ToolType int

const (
	ToolPen = ToolType(iota)
	ToolEraser
	ToolBrush
	ToolPencil
	ToolAirbrush
	ToolMouse
	ToolLens
)

// ToolCaps lists the axes a tablet tool reports
type ToolCaps struct {
	Type     ToolType
	Pressure bool
	Distance bool
	Tilt     bool
	Rotation bool
	Slider   bool
	Wheel    bool
}

type TabletProximity struct {
	Time uint32
	Tool ToolID
	Caps ToolCaps
	In   bool
	X, Y float64
}

// TabletAxis holds the latest value of every axis. The router sends only what changed
type TabletAxis struct {
	Time     uint32
	Tool     ToolID
	X, Y     float64
	Pressure float64
	Distance float64
	Tilt     geom.PointF
	Rotation float64
	Slider   float64
	// Wheel deltas since the last event
	WheelDelta  float64
	WheelClicks int32
}

type TabletTip struct {
	Time uint32
	Tool ToolID
	Down bool
}

type TabletButton struct {
	Time   uint32
	Tool   ToolID
	Button uint32
	State  ButtonState
}

type GestureSwipeBegin struct {
	Time    uint32
	Fingers uint32
}

type GestureSwipeUpdate struct {
	Time  uint32
	Delta geom.PointF
}

type GestureSwipeEnd struct {
	Time      uint32
	Cancelled bool
}

type GesturePinchBegin struct {
	Time    uint32
	Fingers uint32
}

type GesturePinchUpdate struct {
	Time     uint32
	Delta    geom.PointF
	Scale    float64
	Rotation float64
}

type GesturePinchEnd struct {
	Time      uint32
	Cancelled bool
}

type GestureHoldBegin struct {
	Time    uint32
	Fingers uint32
}

type GestureHoldEnd struct {
	Time      uint32
	Cancelled bool
}

func (DeviceAdded) event()           {}
func (DeviceRemoved) event()         {}
func (KeyboardKey) event()           {}
func (KeyboardModifiers) event()     {}
func (PointerMotion) event()         {}
func (PointerMotionAbsolute) event() {}
func (PointerButton) event()         {}
func (PointerAxis) event()           {}
func (TouchDown) event()             {}
func (TouchUp) event()               {}
func (TouchMotion) event()           {}
func (TouchFrame) event()            {}
func (TouchCancel) event()           {}
func (TabletProximity) event()       {}
func (TabletAxis) event()            {}
func (TabletTip) event()             {}
func (TabletButton) event()          {}
func (GestureSwipeBegin) event()     {}
func (GestureSwipeUpdate) event()    {}
func (GestureSwipeEnd) event()       {}
func (GesturePinchBegin) event()     {}
func (GesturePinchUpdate) event()    {}
func (GesturePinchEnd) event()       {}
func (GestureHoldBegin) event()      {}
func (GestureHoldEnd) event()        {}
