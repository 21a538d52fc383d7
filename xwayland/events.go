package xwayland

import "github.com/mstarongithub/consolation/geom"

// Event is an X11 event already translated by the connection, atoms resolved to names
type Event interface {
	xevent()
}

// ConfigureWindow value mask bits, as in the core protocol
const (
	ConfigX = uint16(1 << iota)
	ConfigY
	ConfigWidth
	ConfigHeight
	ConfigBorderWidth
	ConfigSibling
	ConfigStackMode
)

type ConfigureRequest struct {
	Window      uint32
	ValueMask   uint16
	X, Y        int16
	Width       uint16
	Height      uint16
	BorderWidth uint16
	Sibling     uint32
	StackMode   byte
}

// Configure is the reply to a ConfigureRequest. Only fields in ValueMask are sent
type Configure struct {
	ValueMask   uint16
	X, Y        int32
	Width       uint32
	Height      uint32
	BorderWidth uint32
	Sibling     uint32
	StackMode   uint32
}

type MapRequest struct {
	Window uint32
}

type UnmapNotify struct {
	Window uint32
}

type DestroyNotify struct {
	Window uint32
}

type PropertyNotify struct {
	Window uint32
	Atom   string
}

type ClientMessage struct {
	Window uint32
	Type   string
	Data   [5]uint32
}

// NetWMState is a _NET_WM_STATE client message with its atoms resolved
type NetWMState struct {
	Window uint32
	// 0 remove, 1 add, 2 toggle
	Action uint32
	States []string
}

const (
	stateRemove = 0
	stateAdd    = 1
	stateToggle = 2
)

func (ConfigureRequest) xevent() {}
func (MapRequest) xevent()       {}
func (UnmapNotify) xevent()      {}
func (DestroyNotify) xevent()    {}
func (PropertyNotify) xevent()   {}
func (ClientMessage) xevent()    {}
func (NetWMState) xevent()       {}

type unpaired struct {
	window   uint32
	location geom.Point
}
