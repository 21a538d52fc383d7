package input

import "fmt"

type ActionKind int

const (
	ActionNone = ActionKind(iota)
	ActionQuit
	ActionVTSwitch
	ActionRun
	ActionToggleMenu
	ActionScaleUp
	ActionScaleDown
	ActionRotateOutput
	ActionToggleTint
	ActionMenuUp
	ActionMenuDown
	ActionMenuLeft
	ActionMenuRight
	ActionMenuSelect
	ActionMenuBack
)

var actionNames = map[ActionKind]string{
	ActionNone:         "none",
	ActionQuit:         "quit",
	ActionVTSwitch:     "vt-switch",
	ActionRun:          "run",
	ActionToggleMenu:   "toggle-menu",
	ActionScaleUp:      "scale-up",
	ActionScaleDown:    "scale-down",
	ActionRotateOutput: "rotate-output",
	ActionToggleTint:   "toggle-tint",
	ActionMenuUp:       "menu-up",
	ActionMenuDown:     "menu-down",
	ActionMenuLeft:     "menu-left",
	ActionMenuRight:    "menu-right",
	ActionMenuSelect:   "menu-select",
	ActionMenuBack:     "menu-back",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action is what an intercepted key asks the compositor to do
type Action struct {
	Kind ActionKind
	// Terminal number for ActionVTSwitch
	VT int
	// Argv for ActionRun
	Command []string
}

type Binding struct {
	Mods Modifiers
	// Ignore the modifier state entirely
	AnyMods bool
	Sym     Keysym
	// Only active while the window menu is open
	MenuOnly bool
	Action   Action
}

// DefaultBindings is the fixed shortcut table. terminal is spawned on Logo+Return
func DefaultBindings(terminal []string) []Binding {
	return []Binding{
		{Mods: ModCtrl | ModAlt, Sym: KeyBackSpace, Action: Action{Kind: ActionQuit}},
		{Mods: ModLogo, Sym: KeyQ, Action: Action{Kind: ActionQuit}},
		{Mods: ModLogo, Sym: KeyReturn, Action: Action{Kind: ActionRun, Command: terminal}},
		{AnyMods: true, Sym: KeyAltR, Action: Action{Kind: ActionToggleMenu}},
		{AnyMods: true, Sym: KeyMenu, Action: Action{Kind: ActionToggleMenu}},
		{Mods: ModLogo | ModShift, Sym: KeyT, Action: Action{Kind: ActionToggleTint}},
		{Mods: ModLogo | ModShift, Sym: KeyP, Action: Action{Kind: ActionScaleUp}},
		{Mods: ModLogo | ModShift, Sym: KeyM, Action: Action{Kind: ActionScaleDown}},
		{Mods: ModLogo | ModShift, Sym: KeyR, Action: Action{Kind: ActionRotateOutput}},

		{MenuOnly: true, AnyMods: true, Sym: KeyUp, Action: Action{Kind: ActionMenuUp}},
		{MenuOnly: true, AnyMods: true, Sym: KeyDown, Action: Action{Kind: ActionMenuDown}},
		{MenuOnly: true, AnyMods: true, Sym: KeyLeft, Action: Action{Kind: ActionMenuLeft}},
		{MenuOnly: true, AnyMods: true, Sym: KeyRight, Action: Action{Kind: ActionMenuRight}},
		{MenuOnly: true, AnyMods: true, Sym: KeyReturn, Action: Action{Kind: ActionMenuSelect}},
		{MenuOnly: true, AnyMods: true, Sym: KeyKPEnter, Action: Action{Kind: ActionMenuSelect}},
		{MenuOnly: true, AnyMods: true, Sym: KeyEscape, Action: Action{Kind: ActionMenuBack}},
		{MenuOnly: true, AnyMods: true, Sym: KeyBackSpace, Action: Action{Kind: ActionMenuBack}},
	}
}

// Match finds the binding for a pressed key. VT switch keysyms always match
func Match(bindings []Binding, mods Modifiers, sym Keysym, menuOpen bool) (Action, bool) {
	if vt, ok := sym.VT(); ok {
		return Action{Kind: ActionVTSwitch, VT: vt}, true
	}
	sym = sym.Lower()
	for _, b := range bindings {
		if b.MenuOnly && !menuOpen {
			continue
		}
		if b.Sym.Lower() != sym {
			continue
		}
		if !b.AnyMods && mods&bindingMods != b.Mods {
			continue
		}
		return b.Action, true
	}
	return Action{}, false
}
