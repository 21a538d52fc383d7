package input

import (
	"fmt"
	"testing"

	"golang.org/x/exp/slices"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/serial"
	"github.com/mstarongithub/consolation/surface"
	"github.com/mstarongithub/consolation/window"
)

type eventLog struct {
	events  []string
	axes    []AxisFrame
	last    map[string]Target
	serials []uint32
}

func (l *eventLog) add(format string, args ...any) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) index(name string) int {
	return slices.Index(l.events, name)
}

func (l *eventLog) reset() {
	l.events = nil
	l.axes = nil
}

type recKeyboard struct{ *eventLog }

func (k recKeyboard) Enter(t Target, _ uint32) {
	k.last["keyboard"] = t
	k.add("keyboard.enter %d", t.Surface)
}
func (k recKeyboard) Leave(uint32)                          { k.add("keyboard.leave") }
func (k recKeyboard) Key(_, _, code uint32, state KeyState) { k.add("keyboard.key %d %d", code, state) }
func (k recKeyboard) Modifiers(uint32, ModifierState)       { k.add("keyboard.modifiers") }

type recPointer struct{ *eventLog }

func (p recPointer) Enter(t Target, _ uint32) {
	p.last["pointer"] = t
	p.add("pointer.enter %d", t.Surface)
}
func (p recPointer) Leave(uint32) { p.add("pointer.leave") }
func (p recPointer) Motion(_ uint32, local geom.PointF) {
	p.add("pointer.motion %.0f,%.0f", local.X, local.Y)
}
func (p recPointer) Relative(uint64, geom.PointF, geom.PointF) { p.add("pointer.relative") }
func (p recPointer) Button(_, _, button uint32, state ButtonState) {
	p.add("pointer.button %d %d", button, state)
}
func (p recPointer) Axis(f AxisFrame) {
	p.axes = append(p.axes, f)
	p.add("pointer.axis")
}
func (p recPointer) Frame() { p.add("pointer.frame") }

type recTouch struct{ *eventLog }

func (tc recTouch) Down(t Target, _, _ uint32, slot int32) {
	tc.last["touch"] = t
	tc.add("touch.down %d", slot)
}
func (tc recTouch) Up(_, _ uint32, slot int32)        { tc.add("touch.up %d", slot) }
func (tc recTouch) Motion(uint32, int32, geom.PointF) { tc.add("touch.motion") }
func (tc recTouch) Frame()                            { tc.add("touch.frame") }
func (tc recTouch) Cancel()                           { tc.add("touch.cancel") }

type recTablet struct{ *eventLog }

func (tb recTablet) AddTool(ToolID, ToolCaps)                   { tb.add("tablet.add") }
func (tb recTablet) RemoveTool(ToolID)                          { tb.add("tablet.remove") }
func (tb recTablet) ProximityIn(ToolID, Target, uint32)         { tb.add("tablet.in") }
func (tb recTablet) ProximityOut(ToolID)                        { tb.add("tablet.out") }
func (tb recTablet) Motion(ToolID, geom.PointF)                 { tb.add("tablet.motion") }
func (tb recTablet) Pressure(ToolID, float64)                   { tb.add("tablet.pressure") }
func (tb recTablet) Distance(ToolID, float64)                   { tb.add("tablet.distance") }
func (tb recTablet) Tilt(ToolID, geom.PointF)                   { tb.add("tablet.tilt") }
func (tb recTablet) Rotation(ToolID, float64)                   { tb.add("tablet.rotation") }
func (tb recTablet) Slider(ToolID, float64)                     { tb.add("tablet.slider") }
func (tb recTablet) Wheel(ToolID, float64, int32)               { tb.add("tablet.wheel") }
func (tb recTablet) Down(ToolID, uint32)                        { tb.add("tablet.down") }
func (tb recTablet) Up(ToolID)                                  { tb.add("tablet.up") }
func (tb recTablet) Button(ToolID, uint32, uint32, ButtonState) { tb.add("tablet.button") }
func (tb recTablet) Frame(ToolID, uint32)                       { tb.add("tablet.frame") }

type recGestures struct{ *eventLog }

func (g recGestures) begin(kind string, serial uint32) {
	g.serials = append(g.serials, serial)
	g.add("gesture.%s.begin", kind)
}

func (g recGestures) end(kind string, serial uint32) {
	g.serials = append(g.serials, serial)
	g.add("gesture.%s.end", kind)
}

func (g recGestures) SwipeBegin(_ Target, serial, _, _ uint32) { g.begin("swipe", serial) }
func (g recGestures) SwipeUpdate(uint32, geom.PointF)          { g.add("gesture.swipe.update") }
func (g recGestures) SwipeEnd(serial, _ uint32, _ bool)        { g.end("swipe", serial) }
func (g recGestures) PinchBegin(_ Target, serial, _, _ uint32) { g.begin("pinch", serial) }
func (g recGestures) PinchUpdate(uint32, geom.PointF, float64, float64) {
	g.add("gesture.pinch.update")
}
func (g recGestures) PinchEnd(serial, _ uint32, _ bool)       { g.end("pinch", serial) }
func (g recGestures) HoldBegin(_ Target, serial, _, _ uint32) { g.begin("hold", serial) }
func (g recGestures) HoldEnd(serial, _ uint32, _ bool)        { g.end("hold", serial) }

type recHandler struct {
	actions   []Action
	activated map[window.ID]bool
	sizes     []geom.Size
}

func (h *recHandler) Perform(a Action) { h.actions = append(h.actions, a) }
func (h *recHandler) SetActivated(w *window.Window, active bool) {
	h.activated[w.ID] = active
}
func (h *recHandler) RequestSize(_ *window.Window, size geom.Size) {
	h.sizes = append(h.sizes, size)
}

type menuFlag bool

func (m *menuFlag) MenuOpen() bool { return bool(*m) }

type fixture struct {
	router  *Router
	env     *Env
	log     *eventLog
	handler *recHandler
	menu    *menuFlag
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := &eventLog{last: map[string]Target{}}
	seat := Seat{
		Keyboard: recKeyboard{log},
		Pointer:  recPointer{log},
		Touch:    recTouch{log},
		Tablet:   recTablet{log},
		Gestures: recGestures{log},
	}
	r := New(seat, DefaultBindings([]string{"xfce4-terminal"}))
	r.SetSerials(&serial.Counter{})
	menu := new(menuFlag)
	h := &recHandler{activated: map[window.ID]bool{}}
	env := &Env{
		Stack:   window.NewStack(),
		Layers:  &window.Layers{},
		Outputs: output.NewRegistry(),
		Menu:    menu,
		Handler: h,
	}
	if err := env.Outputs.Add(&output.Output{
		Name:    "eDP-1",
		Modes:   []output.Mode{{Width: 1000, Height: 500, Refresh: 60000, Preferred: true}},
		Enabled: true,
	}); err != nil {
		t.Fatalf("adding output: %v", err)
	}
	return &fixture{router: r, env: env, log: log, handler: h, menu: menu}
}

func (f *fixture) addWindow(surf surface.ID, w, h int) *window.Window {
	win := &window.Window{Surface: surf, Extents: geom.R(0, 0, w, h), Mapped: true}
	f.env.Stack.Insert(win)
	return win
}

func (f *fixture) dispatch(evs ...Event) {
	for _, ev := range evs {
		f.router.Dispatch(f.env, ev)
	}
}

func TestButtonPressFocusesBeforeForwarding(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.addWindow(2, 100, 50)

	f.dispatch(PointerButton{Button: 272, State: ButtonPressed})

	focus := f.log.index("keyboard.enter 2")
	button := f.log.index("pointer.button 272 1")
	if focus < 0 || button < 0 {
		t.Fatalf("expected keyboard enter and button, got %v", f.log.events)
	}
	if focus > button {
		t.Errorf("keyboard focus changed after the button was forwarded: %v", f.log.events)
	}
	if !f.handler.activated[f.env.Stack.Top().ID] {
		t.Errorf("top window was not activated")
	}
}

func TestShortcutIsSwallowedWithItsRelease(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.router.UpdateKeyboardFocus(f.env)
	f.log.reset()

	f.dispatch(
		KeyboardKey{KeyCode: 16, State: KeyPressed, Keysym: KeyQ, Modifiers: ModLogo},
		KeyboardKey{KeyCode: 16, State: KeyReleased, Keysym: KeyQ},
	)
	if len(f.handler.actions) != 1 || f.handler.actions[0].Kind != ActionQuit {
		t.Fatalf("expected a single quit action, got %v", f.handler.actions)
	}
	if len(f.log.events) != 0 {
		t.Errorf("shortcut keys reached the client: %v", f.log.events)
	}

	f.dispatch(KeyboardKey{KeyCode: 30, State: KeyPressed, Keysym: Keysym('a')})
	if f.log.index("keyboard.key 30 1") < 0 {
		t.Errorf("ordinary key was not forwarded: %v", f.log.events)
	}
}

func TestShortcutReleaseMatchesAcrossShift(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.router.UpdateKeyboardFocus(f.env)
	f.log.reset()

	f.dispatch(
		KeyboardKey{KeyCode: 20, State: KeyPressed, Keysym: Keysym('T'), Modifiers: ModLogo | ModShift},
		KeyboardKey{KeyCode: 20, State: KeyReleased, Keysym: Keysym('t'), Modifiers: ModLogo},
	)
	if len(f.handler.actions) != 1 || f.handler.actions[0].Kind != ActionToggleTint {
		t.Fatalf("expected toggle tint, got %v", f.handler.actions)
	}
	if len(f.log.events) != 0 {
		t.Errorf("release of a shortcut key was forwarded: %v", f.log.events)
	}
}

func TestVTSwitchIgnoresModifiers(t *testing.T) {
	f := newFixture(t)
	f.dispatch(KeyboardKey{State: KeyPressed, Keysym: KeySwitchVT1 + 2, Modifiers: ModCtrl | ModAlt})
	if len(f.handler.actions) != 1 {
		t.Fatalf("expected one action, got %v", f.handler.actions)
	}
	if a := f.handler.actions[0]; a.Kind != ActionVTSwitch || a.VT != 3 {
		t.Errorf("expected switch to VT 3, got %v %d", a.Kind, a.VT)
	}
}

func TestRunCarriesTerminal(t *testing.T) {
	f := newFixture(t)
	f.dispatch(KeyboardKey{State: KeyPressed, Keysym: KeyReturn, Modifiers: ModLogo})
	if len(f.handler.actions) != 1 || f.handler.actions[0].Kind != ActionRun {
		t.Fatalf("expected run action, got %v", f.handler.actions)
	}
	if cmd := f.handler.actions[0].Command; len(cmd) != 1 || cmd[0] != "xfce4-terminal" {
		t.Errorf("unexpected command %v", cmd)
	}
}

func TestMenuKeysOnlyWhileMenuOpen(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.router.UpdateKeyboardFocus(f.env)

	f.dispatch(KeyboardKey{KeyCode: 108, State: KeyPressed, Keysym: KeyDown})
	if len(f.handler.actions) != 0 {
		t.Fatalf("down arrow triggered %v with the menu closed", f.handler.actions)
	}

	*f.menu = true
	f.dispatch(KeyboardKey{KeyCode: 108, State: KeyPressed, Keysym: KeyDown})
	if len(f.handler.actions) != 1 || f.handler.actions[0].Kind != ActionMenuDown {
		t.Errorf("expected menu down, got %v", f.handler.actions)
	}
}

func TestMenuSwallowsPointer(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	*f.menu = true

	f.dispatch(
		PointerMotion{Delta: geom.PointF{X: 5, Y: 5}},
		PointerButton{Button: 272, State: ButtonPressed},
		PointerAxis{Axes: [2]AxisValue{{Amount: 10, HasAmount: true}}},
	)
	if len(f.log.events) != 0 {
		t.Errorf("pointer input reached clients while the menu was open: %v", f.log.events)
	}
}

func TestAxisFromHighResolutionSteps(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.dispatch(PointerMotion{Delta: geom.PointF{X: 1, Y: 1}})
	f.log.reset()

	f.dispatch(PointerAxis{
		Source: AxisSourceWheel,
		Axes:   [2]AxisValue{AxisVertical: {V120: 120, HasV120: true}},
	})
	if len(f.log.axes) != 1 {
		t.Fatalf("expected one axis frame, got %v", f.log.events)
	}
	a := f.log.axes[0]
	if !a.HasValue[AxisVertical] || a.Value[AxisVertical] != 15 {
		t.Errorf("expected vertical value 15, got %v", a.Value[AxisVertical])
	}
	if a.V120[AxisVertical] != 120 {
		t.Errorf("expected v120 120, got %d", a.V120[AxisVertical])
	}
	if a.HasValue[AxisHorizontal] || a.Stop[AxisHorizontal] {
		t.Errorf("horizontal axis should be untouched for wheels")
	}
	if f.log.events[len(f.log.events)-1] != "pointer.frame" {
		t.Errorf("axis was not followed by a frame: %v", f.log.events)
	}
}

func TestFingerScrollStops(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.dispatch(PointerMotion{Delta: geom.PointF{X: 1, Y: 1}})
	f.log.reset()

	f.dispatch(PointerAxis{
		Source: AxisSourceFinger,
		Axes:   [2]AxisValue{AxisVertical: {Amount: 0, HasAmount: true}},
	})
	if len(f.log.axes) != 1 || !f.log.axes[0].Stop[AxisVertical] {
		t.Errorf("expected a vertical stop, got %+v", f.log.axes)
	}
}

func TestFingerScrollOnOneAxis(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.dispatch(PointerMotion{Delta: geom.PointF{X: 1, Y: 1}})
	f.log.reset()

	f.dispatch(PointerAxis{
		Source: AxisSourceFinger,
		Axes:   [2]AxisValue{AxisVertical: {Amount: 7, HasAmount: true}},
	})
	if len(f.log.axes) != 1 {
		t.Fatalf("expected one axis frame, got %v", f.log.events)
	}
	a := f.log.axes[0]
	if a.Value[AxisVertical] != 7 || a.Stop[AxisVertical] {
		t.Errorf("expected vertical 7 without a stop, got %+v", a)
	}
	if a.HasValue[AxisHorizontal] || a.Stop[AxisHorizontal] {
		t.Errorf("horizontal axis was not part of the event but got %+v", a)
	}
}

func TestRelativeMotionIsClampedToWindow(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)

	f.dispatch(PointerMotion{Delta: geom.PointF{X: 500, Y: 500}})
	if p := f.router.PointerLocation(); p.X != 100 || p.Y != 50 {
		t.Errorf("expected pointer clamped to 100,50, got %v", p)
	}
	f.dispatch(PointerMotion{Delta: geom.PointF{X: -1000, Y: 0}})
	if p := f.router.PointerLocation(); p.X != 0 || p.Y != 50 {
		t.Errorf("expected pointer clamped to 0,50, got %v", p)
	}
}

func TestLockedPointerOnlyGetsRelativeMotion(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.dispatch(PointerMotion{Delta: geom.PointF{X: 10, Y: 10}})
	f.router.SetConstraint(1, ConstraintLocked)
	f.log.reset()

	f.dispatch(PointerMotion{Delta: geom.PointF{X: 5, Y: 5}})
	want := []string{"pointer.relative", "pointer.frame"}
	if !slices.Equal(f.log.events, want) {
		t.Errorf("expected %v, got %v", want, f.log.events)
	}
	if p := f.router.PointerLocation(); p.X != 10 || p.Y != 10 {
		t.Errorf("locked pointer moved to %v", p)
	}

	f.log.reset()
	f.dispatch(PointerMotionAbsolute{X: 0.9, Y: 0.9})
	if want := []string{"pointer.frame"}; !slices.Equal(f.log.events, want) {
		t.Errorf("expected %v for absolute motion, got %v", want, f.log.events)
	}
	if p := f.router.PointerLocation(); p.X != 10 || p.Y != 10 {
		t.Errorf("locked pointer jumped to %v", p)
	}

	f.router.ClearConstraint(1)
	f.dispatch(PointerMotionAbsolute{X: 0.5, Y: 0.5})
	if p := f.router.PointerLocation(); p.X != 50 || p.Y != 25 {
		t.Errorf("expected the unlocked pointer at 50,25, got %v", p)
	}
}

func TestMoveNeedsClickSerial(t *testing.T) {
	f := newFixture(t)
	w := f.addWindow(1, 100, 50)
	f.dispatch(PointerMotion{Delta: geom.PointF{X: 10, Y: 10}})
	f.dispatch(PointerButton{Button: 272, State: ButtonPressed})
	press := f.router.serials.Last()

	if f.router.BeginMove(f.env, w.ID, press+7) {
		t.Fatalf("move started with a foreign serial")
	}
	if !f.router.BeginMove(f.env, w.ID, press) {
		t.Fatalf("move rejected with the click serial")
	}
	f.dispatch(PointerMotion{Delta: geom.PointF{X: 20, Y: 5}})
	if w.Location != geom.Pt(20, 5) {
		t.Errorf("expected window at 20,5, got %v", w.Location)
	}
	f.dispatch(PointerButton{Button: 272, State: ButtonReleased})
	f.dispatch(PointerMotion{Delta: geom.PointF{X: 5, Y: 0}})
	if w.Location != geom.Pt(20, 5) {
		t.Errorf("window kept moving after release: %v", w.Location)
	}
}

func TestResizeRequestsSize(t *testing.T) {
	f := newFixture(t)
	w := f.addWindow(1, 100, 50)
	f.dispatch(PointerButton{Button: 272, State: ButtonPressed})
	if !f.router.BeginResize(f.env, w.ID, f.router.serials.Last(), EdgeRight|EdgeBottom) {
		t.Fatalf("resize rejected")
	}
	f.dispatch(PointerMotion{Delta: geom.PointF{X: 30, Y: 20}})
	if len(f.handler.sizes) == 0 {
		t.Fatalf("no size requested")
	}
	if got := f.handler.sizes[len(f.handler.sizes)-1]; got != (geom.Size{W: 130, H: 70}) {
		t.Errorf("expected 130x70, got %v", got)
	}
}

func TestFocusPinnedDuringClickGrab(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.dispatch(PointerButton{Button: 272, State: ButtonPressed})

	f.addWindow(2, 100, 50)
	f.router.UpdateKeyboardFocus(f.env)
	if focus, _ := f.router.KeyboardFocus(); focus.Surface != 1 {
		t.Fatalf("focus moved to %d during a grab", focus.Surface)
	}

	f.dispatch(PointerButton{Button: 272, State: ButtonReleased})
	f.router.UpdateKeyboardFocus(f.env)
	if focus, _ := f.router.KeyboardFocus(); focus.Surface != 2 {
		t.Errorf("expected focus on 2 after release, got %d", focus.Surface)
	}
}

func TestWindowRemovedHandsFocusOn(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	top := f.addWindow(2, 100, 50)
	f.dispatch(PointerButton{Button: 272, State: ButtonPressed})

	f.env.Stack.Remove(top.ID)
	f.router.WindowRemoved(f.env, top.ID)
	f.router.SurfaceDestroyed(f.env, top.Surface)

	if focus, _ := f.router.KeyboardFocus(); focus.Surface != 1 {
		t.Errorf("expected focus on the remaining window, got %d", focus.Surface)
	}
	if f.router.BeginMove(f.env, top.ID, f.router.serials.Last()) {
		t.Errorf("grab survived the window")
	}
}

func TestReleaseWindowWhileStacked(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	top := f.addWindow(2, 100, 50)
	f.dispatch(PointerButton{Button: 272, State: ButtonPressed})
	press := f.router.serials.Last()

	f.router.ReleaseWindow(top.ID)
	if _, ok := f.env.Stack.Find(top.ID); !ok {
		t.Fatalf("ReleaseWindow touched the stack")
	}
	if f.router.BeginMove(f.env, top.ID, press) {
		t.Errorf("click grab survived ReleaseWindow")
	}
	if _, ok := f.router.KeyboardFocus(); ok {
		t.Errorf("keyboard focus survived ReleaseWindow")
	}

	f.env.Stack.Remove(top.ID)
	f.router.WindowRemoved(f.env, top.ID)
	if focus, _ := f.router.KeyboardFocus(); focus.Surface != 1 {
		t.Errorf("expected focus on the remaining window, got %d", focus.Surface)
	}
}

func TestTouchNeedsCapability(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.dispatch(TouchDown{X: 0.5, Y: 0.5}, TouchFrame{})
	if len(f.log.events) != 0 {
		t.Errorf("touch events without a touch device: %v", f.log.events)
	}
}

func TestTouchMapsThroughFit(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.dispatch(DeviceAdded{Name: "panel", Caps: DeviceCaps{Touch: true}})

	f.dispatch(TouchDown{Slot: 0, X: 0.5, Y: 0.5}, TouchFrame{})
	if f.log.index("touch.down 0") < 0 {
		t.Fatalf("touch down not forwarded: %v", f.log.events)
	}
	// a 100x50 window fills the 1000x500 panel at scale 10
	if got := f.log.last["touch"].Local; got != (geom.PointF{X: 50, Y: 25}) {
		t.Errorf("expected touch at 50,25, got %v", got)
	}
	if focus, ok := f.router.KeyboardFocus(); !ok || focus.Surface != 1 {
		t.Errorf("touch down did not focus the window")
	}
}

func TestTabletSendsOnlyChangedAxes(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.dispatch(DeviceAdded{Name: "tablet", Caps: DeviceCaps{Tablet: true}})
	caps := ToolCaps{Pressure: true, Tilt: true}
	f.dispatch(TabletProximity{Tool: 1, Caps: caps, In: true, X: 0.5, Y: 0.5})
	f.log.reset()

	f.dispatch(TabletAxis{Tool: 1, X: 0.5, Y: 0.5, Pressure: 0.4})
	want := []string{"tablet.pressure", "tablet.frame"}
	if !slices.Equal(f.log.events, want) {
		t.Errorf("expected %v, got %v", want, f.log.events)
	}
}

func TestMatchRespectsModifiers(t *testing.T) {
	b := DefaultBindings(nil)
	if _, ok := Match(b, ModLogo|ModCtrl, KeyQ, false); ok {
		t.Errorf("Logo+Ctrl+q should not quit")
	}
	if a, ok := Match(b, ModCtrl|ModAlt|ModCaps, KeyBackSpace, false); !ok || a.Kind != ActionQuit {
		t.Errorf("Ctrl+Alt+BackSpace with caps lock should quit")
	}
	if a, ok := Match(b, 0, KeyBackSpace, true); !ok || a.Kind != ActionMenuBack {
		t.Errorf("BackSpace in the menu should go back")
	}
}

func TestTabletTipFocuses(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.router.UpdateKeyboardFocus(f.env)
	f.dispatch(DeviceAdded{Name: "tablet", Caps: DeviceCaps{Tablet: true}})
	f.dispatch(TabletProximity{Tool: 1, In: true, X: 0.5, Y: 0.5})

	f.addWindow(2, 100, 50)
	f.log.reset()
	f.dispatch(TabletTip{Tool: 1, Down: true})
	if f.log.index("tablet.down") < 0 {
		t.Fatalf("tip down not forwarded: %v", f.log.events)
	}
	if focus, _ := f.router.KeyboardFocus(); focus.Surface != 2 {
		t.Errorf("expected tip down to focus 2, got %d", focus.Surface)
	}
}

func TestTabletTipKeepsFocusDuringPointerGrab(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	f.dispatch(DeviceAdded{Name: "tablet", Caps: DeviceCaps{Tablet: true}})
	f.dispatch(PointerButton{Button: 272, State: ButtonPressed})
	f.dispatch(TabletProximity{Tool: 1, In: true, X: 0.5, Y: 0.5})

	f.addWindow(2, 100, 50)
	f.dispatch(TabletTip{Tool: 1, Down: true})
	if focus, _ := f.router.KeyboardFocus(); focus.Surface != 1 {
		t.Errorf("tip down moved focus to %d during a pointer grab", focus.Surface)
	}
}

func TestGestureSerials(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)

	f.dispatch(GestureSwipeUpdate{Delta: geom.PointF{X: 3}}, GestureSwipeEnd{})
	if len(f.log.events) != 0 {
		t.Fatalf("gesture events without a begin: %v", f.log.events)
	}

	f.dispatch(
		GestureSwipeBegin{Fingers: 3},
		GestureSwipeUpdate{Delta: geom.PointF{X: 3}},
		GestureSwipeEnd{},
	)
	want := []string{"gesture.swipe.begin", "gesture.swipe.update", "gesture.swipe.end"}
	if !slices.Equal(f.log.events, want) {
		t.Fatalf("expected %v, got %v", want, f.log.events)
	}
	if len(f.log.serials) != 2 || f.log.serials[0] == 0 || f.log.serials[1] <= f.log.serials[0] {
		t.Errorf("expected increasing serials on begin and end, got %v", f.log.serials)
	}

	f.log.reset()
	f.dispatch(GesturePinchBegin{Fingers: 2}, GesturePinchUpdate{Scale: 1.5}, GesturePinchEnd{Cancelled: true})
	want = []string{"gesture.pinch.begin", "gesture.pinch.update", "gesture.pinch.end"}
	if !slices.Equal(f.log.events, want) {
		t.Errorf("expected %v, got %v", want, f.log.events)
	}
}

func TestGesturesBlockedByMenu(t *testing.T) {
	f := newFixture(t)
	f.addWindow(1, 100, 50)
	*f.menu = true

	f.dispatch(
		GestureHoldBegin{Fingers: 2},
		GestureHoldEnd{},
		GestureSwipeBegin{Fingers: 3},
		GestureSwipeUpdate{Delta: geom.PointF{Y: 4}},
		GestureSwipeEnd{},
	)
	if len(f.log.events) != 0 {
		t.Errorf("gestures reached clients while the menu was open: %v", f.log.events)
	}
}
