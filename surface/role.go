package surface

import (
	"fmt"

	"github.com/mstarongithub/consolation/geom"
)

type RoleKind int

const (
	RoleNone = RoleKind(iota)
	RoleCursor
	RoleDragIcon
	RoleSubsurface
	RoleToplevel
	RolePopup
	RoleLayer
	RoleX11
)

func (k RoleKind) String() string {
	switch k {
	case RoleNone:
		return "none"
	case RoleCursor:
		return "cursor"
	case RoleDragIcon:
		return "drag-icon"
	case RoleSubsurface:
		return "subsurface"
	case RoleToplevel:
		return "xdg_toplevel"
	case RolePopup:
		return "xdg_popup"
	case RoleLayer:
		return "layer_surface"
	case RoleX11:
		return "x11_surface"
	default:
		return fmt.Sprintf("role(%d)", int(k))
	}
}

// Role carries the role specific state of a surface. The concrete type is fixed
// once assigned
type Role interface {
	Kind() RoleKind
}

type (
	Subsurface struct {
		Parent ID
		// Position relative to the parent surface
		Offset geom.Point
		Synced bool
	}

	Toplevel struct {
		// xdg window geometry inside the surface. Empty means the whole surface
		Geometry geom.Rect
		MinSize  geom.Size
		MaxSize  geom.Size
	}

	Popup struct {
		Parent ID
		// Location relative to the parent's window geometry
		Location geom.Point
	}

	LayerRole struct {
		Namespace string
		Output    string
	}

	CursorRole struct {
		Hotspot geom.Point
	}

	DragIcon struct {
		Offset geom.Point
	}

	X11Role struct {
		Window uint32
	}
)

func (*Subsurface) Kind() RoleKind { return RoleSubsurface }
func (*Toplevel) Kind() RoleKind   { return RoleToplevel }
func (*Popup) Kind() RoleKind      { return RolePopup }
func (*LayerRole) Kind() RoleKind  { return RoleLayer }
func (*CursorRole) Kind() RoleKind { return RoleCursor }
func (*DragIcon) Kind() RoleKind   { return RoleDragIcon }
func (*X11Role) Kind() RoleKind    { return RoleX11 }
