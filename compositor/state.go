// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package compositor owns the whole compositor state and the loop driving it.
// Protocol handlers call into State from the loop goroutine only, everything
// else posts closures through Post.
package compositor

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/bridge/outputmgmt"
	"github.com/mstarongithub/consolation/bridge/toplevel"
	"github.com/mstarongithub/consolation/common/ipc"
	"github.com/mstarongithub/consolation/config"
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/input"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/render"
	"github.com/mstarongithub/consolation/scene"
	"github.com/mstarongithub/consolation/spawn"
	"github.com/mstarongithub/consolation/surface"
	"github.com/mstarongithub/consolation/util/multiplexer"
	"github.com/mstarongithub/consolation/window"
	"github.com/mstarongithub/consolation/xwayland"
)

// Protocol is the outbound side of the shell protocols
type Protocol interface {
	// Configure asks a toplevel to take on a size and its current states
	Configure(w *window.Window, size geom.Size)
	// Close asks the client to close the window
	Close(w *window.Window)
	// PostError disconnects a client after a protocol violation
	PostError(client surface.ClientID, err error)
}

var (
	_ input.Handler    = (*State)(nil)
	_ toplevel.Handler = (*State)(nil)
	_ xwayland.Host    = (*State)(nil)
)

// Task is work posted to the loop from another goroutine
type Task func(s *State)

type Options struct {
	Config   *config.Config
	Renderer render.Renderer
	Seat     input.Seat
	Protocol Protocol
	Spawner  spawn.Spawner
	// Called with the terminal number on XF86Switch_VT_n, nil disables switching
	SwitchVT func(vt int) error
	// Called after an output's frame was rendered, like a page flip
	Present func(o *output.Output) error
}

type State struct {
	conf     *config.Config
	renderer render.Renderer
	protocol Protocol
	spawner  spawn.Spawner
	switchVT func(int) error
	present  func(*output.Output) error

	surfaces  *surface.Store
	stack     *window.Stack
	layers    *window.Layers
	outputs   *output.Registry
	composer  *scene.Composer
	router    *input.Router
	toplevels *toplevel.Manager
	outputMgr *outputmgmt.Manager

	wm *xwayland.WM
	// wl_surface object ids of the Xwayland client
	xwaylandSurfaces map[uint32]surface.ID

	// Toplevels with a role that did not commit a buffer yet, or got unmapped
	pending map[surface.ID]*window.Window

	tasks  *multiplexer.ManyToOne[Task]
	events *multiplexer.OneToMany[ipc.Event]

	start time.Time
	quit  bool
	// Set once the renderer reported a lost context
	lost error
}

func New(opts Options) *State {
	conf := opts.Config
	if conf == nil {
		conf = config.Default()
	}
	s := &State{
		conf:             conf,
		renderer:         opts.Renderer,
		protocol:         opts.Protocol,
		spawner:          opts.Spawner,
		switchVT:         opts.SwitchVT,
		present:          opts.Present,
		surfaces:         surface.NewStore(opts.Renderer),
		stack:            window.NewStack(),
		layers:           &window.Layers{},
		outputs:          output.NewRegistry(),
		composer:         scene.New(),
		router:           input.New(opts.Seat, input.DefaultBindings(conf.Terminal)),
		toplevels:        toplevel.NewManager(),
		outputMgr:        outputmgmt.NewManager(),
		xwaylandSurfaces: map[uint32]surface.ID{},
		pending:          map[surface.ID]*window.Window{},
		tasks:            multiplexer.NewManyToOne(make(chan Task, 64)),
		events:           multiplexer.NewOneToMany[ipc.Event](),
		start:            time.Now(),
	}
	go s.events.StartPlexer()
	return s
}

func (s *State) Config() *config.Config          { return s.conf }
func (s *State) Surfaces() *surface.Store        { return s.surfaces }
func (s *State) Stack() *window.Stack            { return s.stack }
func (s *State) Layers() *window.Layers          { return s.layers }
func (s *State) Outputs() *output.Registry       { return s.outputs }
func (s *State) Composer() *scene.Composer       { return s.composer }
func (s *State) Router() *input.Router           { return s.router }
func (s *State) Toplevels() *toplevel.Manager    { return s.toplevels }
func (s *State) OutputMgmt() *outputmgmt.Manager { return s.outputMgr }

// Events fans window and focus changes out to watchers
func (s *State) Events() *multiplexer.OneToMany[ipc.Event] {
	return s.events
}

func (s *State) notify(ev ipc.Event) {
	if !s.events.TrySend(ev) {
		logrus.WithField("event", ev.Kind).Debugln("Event queue full, dropping")
	}
}

// Now is the timestamp used for frame callbacks and synthesized events, in milliseconds
func (s *State) Now() uint32 {
	return uint32(time.Since(s.start).Milliseconds())
}

// Post queues a task for the loop. Safe to call from any goroutine
func (s *State) Post(t Task) error {
	return s.tasks.Send(t)
}

// Stop makes Run return after the current iteration
func (s *State) Stop() {
	s.quit = true
}

func (s *State) Stopped() bool {
	return s.quit
}

// SetRenderer swaps the renderer, dropping every texture of the old one
func (s *State) SetRenderer(r render.Renderer) {
	s.renderer = r
	s.surfaces.SetRenderer(r)
	s.lost = nil
}

func (s *State) inputEnv() *input.Env {
	return &input.Env{
		Stack:    s.stack,
		Layers:   s.layers,
		Outputs:  s.outputs,
		Surfaces: s.surfaces,
		Menu:     s.composer,
		Handler:  s,
	}
}

func (s *State) x11Env() *xwayland.Env {
	return &xwayland.Env{
		Stack:    s.stack,
		Surfaces: s.surfaces,
		Outputs:  s.outputs,
		Host:     s,
	}
}

// Dispatch routes one input event
func (s *State) Dispatch(ev input.Event) {
	s.router.Dispatch(s.inputEnv(), ev)
}

// focusChanged recomputes keyboard focus after the stack changed
func (s *State) focusChanged() {
	s.router.UpdateKeyboardFocus(s.inputEnv())
	if t, ok := s.router.KeyboardFocus(); ok {
		s.notify(ipc.Event{Kind: "focus", Window: uint64(t.Window)})
	}
}

// outputSize is the logical size new windows are configured to
func (s *State) outputSize() geom.Size {
	o, ok := s.outputs.Primary()
	if !ok {
		return geom.Size{}
	}
	g := o.Geometry()
	return geom.Size{W: g.W, H: g.H}
}
