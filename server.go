package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
	"github.com/swaywm/go-wlroots/xkb"

	"github.com/mstarongithub/consolation/compositor"
	"github.com/mstarongithub/consolation/config"
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/input"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/spawn"
	"github.com/mstarongithub/consolation/surface"
	"github.com/mstarongithub/consolation/window"
)

// Server hosts the compositor core on wlroots. wlroots speaks the protocols
// and draws the scene graph, every decision (stacking, focus, shortcuts,
// output configuration) is made by the core and mirrored back into wlroots.
// All callbacks run on the wayland event loop, which is also the only
// goroutine touching the core
type Server struct {
	display     wlroots.Display
	backend     wlroots.Backend
	renderer    wlroots.Renderer
	allocator   wlroots.Allocator
	scene       wlroots.Scene
	sceneLayout wlroots.SceneOutputLayout

	xdgShell wlroots.XDGShell

	cursor    wlroots.Cursor
	cursorMgr wlroots.XCursorManager

	seat      wlroots.Seat
	keyboards []wlroots.Keyboard
	pointers  int

	outputLayout wlroots.OutputLayout
	outputs      map[string]wlroots.Output

	conf    *config.Config
	state   *compositor.State
	spawner *spawn.Exec

	// Core side ids of the xdg surfaces wlroots told us about
	surfaces map[wlroots.XDGSurface]surface.ID
	xdg      map[surface.ID]wlroots.XDGSurface
	// wlroots tracks clients itself, every xdg surface gets its own id
	nextClient surface.ClientID

	socket string
}

var _ compositor.Protocol = (*Server)(nil)

func (server *Server) surfaceID(xdgSurface wlroots.XDGSurface) (surface.ID, bool) {
	id, ok := server.surfaces[xdgSurface]
	return id, ok
}

func (server *Server) wlSurface(id surface.ID) (wlroots.Surface, bool) {
	xdgSurface, ok := server.xdg[id]
	if !ok {
		return wlroots.Surface{}, false
	}
	return xdgSurface.Surface(), true
}

// Configure implements compositor.Protocol
func (server *Server) Configure(w *window.Window, size geom.Size) {
	xdgSurface, ok := server.xdg[w.Surface]
	if !ok {
		return
	}
	topLevel := xdgSurface.TopLevel()
	topLevel.SetActivated(w.States.Activated)
	if !size.Empty() {
		xdgSurface.TopLevelSetSize(uint32(size.W), uint32(size.H))
	}
}

// Close implements compositor.Protocol
func (server *Server) Close(w *window.Window) {
	// The binding doesn't expose xdg_toplevel.close, the best we can do is take focus away
	logrus.WithField("window", w.ID).Warningln("Can't ask wlroots clients to close, minimizing instead")
	server.state.SetMinimized(w.ID)
}

// PostError implements compositor.Protocol. wlroots already enforces the
// protocol rules, so this only shows up when the core disagrees with it
func (server *Server) PostError(client surface.ClientID, err error) {
	logrus.WithError(err).WithField("client", client).Errorln("Protocol error")
}

func (server *Server) handleNewPointer(dev wlroots.InputDevice) {
	server.cursor.AttachInputDevice(dev)
	server.pointers++
	server.state.Dispatch(input.DeviceAdded{
		Name: fmt.Sprintf("pointer-%d", server.pointers),
		Caps: input.DeviceCaps{Pointer: true},
	})
}

func (server *Server) handleKey(keyboard wlroots.Keyboard, time uint32, keyCode uint32, _ bool, state wlroots.KeyState) {
	// translate libinput keycode to xkbcommon and obtain keysyms
	syms := keyboard.XKBState().Syms(xkb.KeyCode(keyCode + 8))
	var sym input.Keysym
	if len(syms) > 0 {
		sym = input.Keysym(syms[0])
	}
	keyState := input.KeyReleased
	if state == wlroots.KeyStatePressed {
		keyState = input.KeyPressed
	}
	server.seat.SetKeyboard(keyboard.Base())
	server.state.Dispatch(input.KeyboardKey{
		Time:      time,
		KeyCode:   keyCode,
		State:     keyState,
		Keysym:    sym,
		Modifiers: input.Modifiers(keyboard.Modifiers()),
	})
}

func (server *Server) handleNewKeyboard(dev wlroots.InputDevice) {
	keyboard := dev.Keyboard()

	/* We need to prepare an XKB keymap and assign it to the keyboard. This
	 * assumes the defaults (e.g. layout = "us"). */
	context := xkb.NewContext(xkb.KeySymFlagNoFlags)
	keymap := context.KeyMap()
	keyboard.SetKeymap(keymap)
	keymap.Destroy()
	context.Destroy()
	keyboard.SetRepeatInfo(server.conf.RepeatRate, server.conf.RepeatDelay)

	keyboard.OnModifiers(func(keyboard wlroots.Keyboard) {
		server.seat.SetKeyboard(dev)
		server.state.Dispatch(input.KeyboardModifiers{})
	})
	keyboard.OnKey(server.handleKey)

	server.seat.SetKeyboard(dev)
	server.keyboards = append(server.keyboards, keyboard)
	server.state.Dispatch(input.DeviceAdded{
		Name: fmt.Sprintf("keyboard-%d", len(server.keyboards)),
		Caps: input.DeviceCaps{Keyboard: true},
	})
}

func (server *Server) handleNewInput(dev wlroots.InputDevice) {
	switch dev.Type() {
	case wlroots.InputDeviceTypePointer:
		server.handleNewPointer(dev)
	case wlroots.InputDeviceTypeKeyboard:
		server.handleNewKeyboard(dev)
	}

	// There is always a cursor, even without a pointer device
	caps := wlroots.SeatCapabilityPointer
	if len(server.keyboards) > 0 {
		caps |= wlroots.SeatCapabilityKeyboard
	}
	server.seat.SetCapabilities(caps)
}

func (server *Server) handleNewFrame(wlOutput wlroots.Output) {
	server.state.Pump()
	if server.state.Stopped() {
		server.display.Terminate()
		return
	}
	server.syncScene()

	o, ok := server.state.Outputs().Find(wlOutput.Name())
	if !ok || !o.Enabled {
		return
	}
	// Frame callbacks and presentation go through present, see NewServer
	if err := server.state.RenderOutput(o); err != nil {
		logrus.WithError(err).WithField("output", o.Name).Errorln("Failed to render output")
	}
}

// present commits the wlroots scene for o
func (server *Server) present(o *output.Output) error {
	wlOutput, ok := server.outputs[o.Name]
	if !ok {
		return fmt.Errorf("output %s: %w", o.Name, output.ErrUnknownOutput)
	}
	sOut, err := server.scene.SceneOutput(wlOutput)
	if err != nil {
		return err
	}
	sOut.Commit()
	sOut.SendFrameDone(time.Now())
	return nil
}

// syncScene mirrors stacking, positions and geometry between core and wlroots
func (server *Server) syncScene() {
	for _, w := range server.state.Stack().BottomToTop() {
		xdgSurface, ok := server.xdg[w.Surface]
		if !ok {
			continue
		}
		node := xdgSurface.SceneTree().Node()
		node.SetPosition(float64(w.Location.X), float64(w.Location.Y))
		node.RaiseToTop()

		box := xdgSurface.Geometry()
		g := geom.R(box.X, box.Y, box.Width, box.Height)
		if g != w.Geometry && !g.Empty() {
			server.commit(w.Surface, xdgSurface)
		}
	}
}

// commit hands the current xdg geometry to the core as a buffer of that size
func (server *Server) commit(id surface.ID, xdgSurface wlroots.XDGSurface) {
	box := xdgSurface.Geometry()
	g := geom.R(box.X, box.Y, box.Width, box.Height)
	if err := server.state.SetWindowGeometry(id, g); err != nil {
		logrus.WithError(err).WithField("surface", id).Debugln("No window for geometry")
	}
	size := geom.Size{W: box.X + box.Width, H: box.Y + box.Height}
	if err := server.state.Attach(id, &proxyBuffer{size: size}); err != nil {
		logrus.WithError(err).WithField("surface", id).Errorln("Failed to attach")
		return
	}
	if err := server.state.Commit(id); err != nil {
		logrus.WithError(err).WithField("surface", id).Errorln("Failed to commit")
	}
}

func (server *Server) handleOutputRequestState(wlOutput wlroots.Output, state wlroots.OutputState) {
	logrus.WithField("output", wlOutput.Name()).Debugln("New state request for output")
	wlOutput.CommitState(state)
}

func (server *Server) handleOutputDestroy(wlOutput wlroots.Output) {
	logrus.WithField("name", wlOutput.Name()).Debugln("Output getting destroyed")
	delete(server.outputs, wlOutput.Name())
	server.state.RemoveOutput(wlOutput.Name())
}

func (server *Server) handleNewOutput(wlOutput wlroots.Output) {
	logrus.WithField("name", wlOutput.Name()).Debugln("New output added")

	wlModes := wlOutput.Modes()
	o := &output.Output{Name: wlOutput.Name(), Enabled: true, Scale: 1, CurrentMode: -1}
	for _, mode := range wlModes {
		o.Modes = append(o.Modes, output.Mode{
			Width:     int(mode.Width()),
			Height:    int(mode.Height()),
			Refresh:   int(mode.Refresh()),
			Preferred: mode.Preferred(),
		})
	}
	o.CurrentMode = o.PreferredMode()
	if err := server.state.AddOutput(o); err != nil {
		logrus.WithError(err).WithField("name", o.Name).Errorln("Failed to register output")
		return
	}
	server.outputs[o.Name] = wlOutput

	wlOutput.InitRender(server.allocator, server.renderer)

	oState := wlroots.NewOutputState()
	oState.StateInit()
	oState.StateSetEnabled(true)
	// The config file may have picked another mode than the preferred one
	if configured, ok := server.state.Outputs().Find(o.Name); ok && configured.CurrentMode >= 0 && configured.CurrentMode < len(wlModes) {
		oState.SetMode(wlModes[configured.CurrentMode])
	} else if mode, err := wlOutput.PrefferedMode(); err == nil {
		oState.SetMode(mode)
	}
	wlOutput.CommitState(oState)
	oState.Finish()

	wlOutput.OnFrame(server.handleNewFrame)
	wlOutput.OnRequestState(server.handleOutputRequestState)
	wlOutput.OnDestroy(server.handleOutputDestroy)

	lOutput := server.outputLayout.AddOutputAuto(wlOutput)
	sceneOutput := server.scene.NewOutput(wlOutput)
	server.sceneLayout.AddOutput(lOutput, sceneOutput)

	if err := wlOutput.SetTitle(fmt.Sprintf("consolation - %s", wlOutput.Name())); err != nil {
		return
	}
}

func (server *Server) handleCursorMotion(dev wlroots.InputDevice, time uint32, dx float64, dy float64) {
	server.cursor.Move(dev, dx, dy)
	delta := geom.PointF{X: dx, Y: dy}
	server.state.Dispatch(input.PointerMotion{
		Time:    time,
		UTime:   uint64(time) * 1000,
		Delta:   delta,
		Unaccel: delta,
	})
}

func (server *Server) handleCursorMotionAbsolute(dev wlroots.InputDevice, time uint32, x float64, y float64) {
	server.cursor.WarpAbsolute(dev, x, y)
	server.state.Dispatch(input.PointerMotionAbsolute{Time: time, X: x, Y: y})
}

func (server *Server) handleSetCursorRequest(client wlroots.SeatClient, surface wlroots.Surface, _ uint32, hotspotX int32, hotspotY int32) {
	focusedClient := server.seat.PointerState().FocusedClient()
	// Any client can send this, only the focused one gets its way
	if focusedClient == client {
		server.cursor.SetSurface(surface, hotspotX, hotspotY)
	}
}

func (server *Server) handleCursorButton(_ wlroots.InputDevice, time uint32, button uint32, state wlroots.ButtonState) {
	buttonState := input.ButtonPressed
	if state == wlroots.ButtonStateReleased {
		buttonState = input.ButtonReleased
	}
	server.state.Dispatch(input.PointerButton{Time: time, Button: button, State: buttonState})
}

func (server *Server) handleCursorAxis(_ wlroots.InputDevice, time uint32, source wlroots.AxisSource, orientation wlroots.AxisOrientation, delta float64, deltaDiscrete int32) {
	ev := input.PointerAxis{Time: time, Source: input.AxisSource(source)}
	axis := input.AxisVertical
	if int(orientation) == input.AxisHorizontal {
		axis = input.AxisHorizontal
	}
	ev.Axes[axis] = input.AxisValue{
		Amount:    delta,
		HasAmount: true,
		V120:      float64(deltaDiscrete),
		HasV120:   deltaDiscrete != 0,
	}
	server.state.Dispatch(ev)
}

func (server *Server) track(xdgSurface wlroots.XDGSurface) surface.ID {
	server.nextClient++
	id := server.state.CreateSurface(server.nextClient)
	server.surfaces[xdgSurface] = id
	server.xdg[id] = xdgSurface
	return id
}

func (server *Server) handleMap(xdgSurface wlroots.XDGSurface) {
	id, ok := server.surfaceID(xdgSurface)
	if !ok {
		return
	}
	server.commit(id, xdgSurface)
}

func (server *Server) handleUnmap(xdgSurface wlroots.XDGSurface) {
	id, ok := server.surfaceID(xdgSurface)
	if !ok {
		return
	}
	if err := server.state.Attach(id, nil); err == nil {
		_ = server.state.Commit(id)
	}
}

func (server *Server) handleDestroy(xdgSurface wlroots.XDGSurface) {
	id, ok := server.surfaceID(xdgSurface)
	if !ok {
		return
	}
	server.state.DestroySurface(id)
	delete(server.surfaces, xdgSurface)
	delete(server.xdg, id)
}

func (server *Server) handleNewXDGSurface(xdgSurface wlroots.XDGSurface) {
	logrus.WithField("surface", xdgSurface).Debugln("New surface inbound")

	switch xdgSurface.Role() {
	case wlroots.XDGSurfaceRolePopup:
		parent := xdgSurface.Popup().Parent()
		if parent.Nil() {
			logrus.WithField("surface", xdgSurface).Errorln("Popup without parent")
			return
		}
		parentID, ok := server.surfaceID(parent.XDGSurface())
		if !ok {
			logrus.WithField("surface", xdgSurface).Errorln("Popup of an unknown parent")
			return
		}
		xdgSurface.SetData(parent.XDGSurface().SceneTree().NewXDGSurface(xdgSurface))
		id := server.track(xdgSurface)
		box := xdgSurface.Geometry()
		if err := server.state.NewPopup(id, parentID, geom.Point{X: box.X, Y: box.Y}); err != nil {
			logrus.WithError(err).WithField("surface", id).Errorln("Failed to create popup")
		}
	case wlroots.XDGSurfaceRoleTopLevel:
		xdgSurface.SetData(server.scene.Tree().NewXDGSurface(xdgSurface.TopLevel().Base()))
		id := server.track(xdgSurface)
		if _, err := server.state.NewToplevel(id); err != nil {
			logrus.WithError(err).WithField("surface", id).Errorln("Failed to create toplevel")
			return
		}
		toplevel := xdgSurface.TopLevel()
		toplevel.OnRequestMove(func(_ wlroots.SeatClient, serial uint32) {
			server.state.RequestMove(id, serial)
		})
		toplevel.OnRequestResize(func(_ wlroots.SeatClient, serial uint32, edges wlroots.Edges) {
			server.state.RequestResize(id, serial, input.Edges(edges))
		})
	default:
		logrus.WithFields(logrus.Fields{
			"surface": xdgSurface,
			"role":    xdgSurface.Role(),
		}).Warningln("Ignoring xdg surface without role")
		return
	}

	xdgSurface.OnMap(server.handleMap)
	xdgSurface.OnUnmap(server.handleUnmap)
	xdgSurface.OnDestroy(server.handleDestroy)
}

func NewServer(conf *config.Config) (server *Server, err error) {
	server = &Server{
		conf:     conf,
		outputs:  map[string]wlroots.Output{},
		surfaces: map[wlroots.XDGSurface]surface.ID{},
		xdg:      map[surface.ID]wlroots.XDGSurface{},
		// No XWayland under wlroots yet, DISPLAY is left alone
		spawner: spawn.NewExec("", -1),
	}

	server.display = wlroots.NewDisplay()

	server.backend, err = server.display.BackendAutocreate()
	if err != nil {
		return nil, err
	}

	/* Autocreates a renderer, either Pixman, GLES2 or Vulkan for us. The user
	 * can also specify a renderer using the WLR_RENDERER env var. */
	server.renderer, err = server.backend.RendererAutoCreate()
	if err != nil {
		return nil, err
	}
	server.renderer.InitDisplay(server.display)

	server.allocator, err = server.backend.AllocatorAutocreate(server.renderer)
	if err != nil {
		return nil, err
	}

	server.display.CompositorCreate(5, server.renderer)
	server.display.SubCompositorCreate()
	server.display.DataDeviceManagerCreate()

	server.outputLayout = wlroots.NewOutputLayout()

	server.scene = wlroots.NewScene()
	server.sceneLayout = server.scene.AttachOutputLayout(server.outputLayout)

	server.xdgShell = server.display.XDGShellCreate(3)

	server.cursor = wlroots.NewCursor()
	server.cursor.AttachOutputLayout(server.outputLayout)
	server.cursorMgr = wlroots.NewXCursorManager("", 24)

	server.seat = server.display.SeatCreate("seat0")
	server.seat.OnSetCursorRequest(server.handleSetCursorRequest)

	server.state = compositor.New(compositor.Options{
		Config:   conf,
		Renderer: sceneMirror{},
		Seat: input.Seat{
			Keyboard: (*seatKeyboard)(server),
			Pointer:  (*seatPointer)(server),
		},
		Protocol: server,
		Spawner:  server.spawner,
		Present:  server.present,
	})

	// Everything below can call into the core
	server.backend.OnNewOutput(server.handleNewOutput)
	server.xdgShell.OnNewSurface(server.handleNewXDGSurface)
	server.cursor.OnMotion(server.handleCursorMotion)
	server.cursor.OnMotionAbsolute(server.handleCursorMotionAbsolute)
	server.cursor.OnButton(server.handleCursorButton)
	server.cursor.OnAxis(server.handleCursorAxis)
	server.cursorMgr.Load(1)
	server.backend.OnNewInput(server.handleNewInput)

	return
}

// State is the compositor core. Only touch it from posted tasks
func (server *Server) State() *compositor.State {
	return server.state
}

func (server *Server) Start() error {
	socket, err := server.display.AddSocketAuto()
	if err != nil {
		server.backend.Destroy()
		return err
	}
	logrus.WithField("socket", socket).Debugln("got wl socket")
	server.socket = socket
	server.spawner.WaylandDisplay = socket

	// Enumerates outputs and inputs, becomes DRM master and so on
	if err = server.backend.Start(); err != nil {
		server.backend.Destroy()
		server.display.Destroy()
		return err
	}

	if res := os.Getenv("WAYLAND_DISPLAY"); res != "" {
		logrus.WithField("WAYLAND_DISPLAY", res).Debugln("Wayland display already set, overwriting")
	}
	if err = os.Setenv("WAYLAND_DISPLAY", socket); err != nil {
		return err
	}

	logrus.WithField("WAYLAND_DISPLAY", socket).Infoln("Running Wayland compositor")
	return err
}

func (server *Server) Run() error {
	// Does not return until the display is terminated
	server.display.Run()

	server.display.DestroyClients()
	server.scene.Tree().Node().Destroy()
	server.cursorMgr.Destroy()
	server.outputLayout.Destroy()
	server.display.Destroy()
	server.state.Shutdown()
	return nil
}

func (server *Server) Stop() {
	server.display.Terminate()
}
