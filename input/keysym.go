package input

import "fmt"

// Keysym is an xkbcommon keysym value. Backends hand them over already decoded
type Keysym uint32

const (
	KeyBackSpace = Keysym(0xff08)
	KeyTab       = Keysym(0xff09)
	KeyReturn    = Keysym(0xff0d)
	KeyEscape    = Keysym(0xff1b)
	KeyLeft      = Keysym(0xff51)
	KeyUp        = Keysym(0xff52)
	KeyRight     = Keysym(0xff53)
	KeyDown      = Keysym(0xff54)
	KeyMenu      = Keysym(0xff67)
	KeyKPEnter   = Keysym(0xff8d)
	KeyAltR      = Keysym(0xffea)

	KeyM = Keysym('m')
	KeyP = Keysym('p')
	KeyQ = Keysym('q')
	KeyR = Keysym('r')
	KeyT = Keysym('t')

	// XF86Switch_VT_1, the other eleven follow directly
	KeySwitchVT1  = Keysym(0x1008fe01)
	KeySwitchVT12 = Keysym(0x1008fe0c)
)

// Lower folds latin capitals so bindings match with and without shift
func (k Keysym) Lower() Keysym {
	if k >= 'A' && k <= 'Z' {
		return k + ('a' - 'A')
	}
	return k
}

// VT returns the terminal number of a XF86Switch_VT_n keysym
func (k Keysym) VT() (int, bool) {
	if k < KeySwitchVT1 || k > KeySwitchVT12 {
		return 0, false
	}
	return int(k-KeySwitchVT1) + 1, true
}

func (k Keysym) String() string {
	switch k {
	case KeyBackSpace:
		return "BackSpace"
	case KeyReturn:
		return "Return"
	case KeyEscape:
		return "Escape"
	case KeyMenu:
		return "Menu"
	case KeyAltR:
		return "Alt_R"
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	}
	if vt, ok := k.VT(); ok {
		return fmt.Sprintf("XF86Switch_VT_%d", vt)
	}
	if k >= 0x20 && k < 0x7f {
		return string(rune(k))
	}
	return fmt.Sprintf("0x%x", uint32(k))
}

// Modifiers uses the same bit layout as wlroots and xkbcommon
type Modifiers uint32

const (
	ModShift = Modifiers(1 << iota)
	ModCaps
	ModCtrl
	ModAlt
	ModMod2
	ModMod3
	ModLogo
	ModMod5
)

// Modifiers that take part in binding matches. Caps and num lock never do
const bindingMods = ModShift | ModCtrl | ModAlt | ModLogo
