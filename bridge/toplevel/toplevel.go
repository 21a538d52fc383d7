// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package toplevel publishes the window stack to foreign toplevel clients
// (taskbars, docks) and passes their requests back to the compositor.
// Only changes since the last published snapshot are sent, each batch
// closed with done.
package toplevel

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/window"
)

// State values as defined by wlr-foreign-toplevel-management
type State uint32

const (
	StateMaximized = State(iota)
	StateMinimized
	StateActivated
	StateFullscreen
)

func (s State) String() string {
	switch s {
	case StateMaximized:
		return "maximized"
	case StateMinimized:
		return "minimized"
	case StateActivated:
		return "activated"
	case StateFullscreen:
		return "fullscreen"
	}
	return "unknown"
}

// Handle is one client's view of one toplevel
type Handle interface {
	Title(title string)
	AppID(appID string)
	State(states []State)
	OutputEnter(output string)
	OutputLeave(output string)
	Done()
	Closed()
}

// Client is a bound manager object
type Client interface {
	// Toplevel announces a new toplevel and returns the handle to describe it on
	Toplevel(id window.ID) Handle
	Finished()
}

// Handler executes requests coming from clients
type Handler interface {
	Activate(id window.ID)
	Close(id window.ID)
	SetFullscreen(id window.ID, output string)
	UnsetFullscreen(id window.ID)
	SetMaximized(id window.ID)
	UnsetMaximized(id window.ID)
	SetMinimized(id window.ID)
	UnsetMinimized(id window.ID)
}

// Snapshot is what has been published about a toplevel
type Snapshot struct {
	Title  string
	AppID  string
	States []State
	// Output the toplevel is shown on, empty for none
	Output string
}

type entry struct {
	snap    Snapshot
	handles map[Client]Handle
}

type Manager struct {
	clients   []Client
	toplevels map[window.ID]*entry
	// Publication order, used when a new client binds
	order []window.ID
}

func NewManager() *Manager {
	return &Manager{toplevels: map[window.ID]*entry{}}
}

func states(w *window.Window, focused bool) []State {
	var out []State
	if w.States.Maximized {
		out = append(out, StateMaximized)
	}
	if w.States.Minimized {
		out = append(out, StateMinimized)
	}
	if focused {
		out = append(out, StateActivated)
	}
	if w.States.Fullscreen {
		out = append(out, StateFullscreen)
	}
	return out
}

func (e *entry) announce(c Client, id window.ID) {
	h := c.Toplevel(id)
	if h == nil {
		return
	}
	if e.snap.Title != "" {
		h.Title(e.snap.Title)
	}
	if e.snap.AppID != "" {
		h.AppID(e.snap.AppID)
	}
	h.State(e.snap.States)
	if e.snap.Output != "" {
		h.OutputEnter(e.snap.Output)
	}
	h.Done()
	e.handles[c] = h
}

// Bind registers a client and describes every known toplevel to it
func (m *Manager) Bind(c Client) {
	m.clients = append(m.clients, c)
	for _, id := range m.order {
		m.toplevels[id].announce(c, id)
	}
}

// Stop is the client's stop request
func (m *Manager) Stop(c Client) {
	c.Finished()
	m.Unbind(c)
}

// Unbind forgets a client whose manager object is gone
func (m *Manager) Unbind(c Client) {
	m.clients = slices.DeleteFunc(m.clients, func(o Client) bool { return o == c })
	for _, e := range m.toplevels {
		delete(e.handles, c)
	}
}

// Refresh diffs the stack against what was published and sends the deltas.
// Only the topmost listed window is reported as activated
func (m *Manager) Refresh(stack *window.Stack, outputs *output.Registry) {
	var outName string
	if outputs != nil {
		if o, ok := outputs.Primary(); ok {
			outName = o.Name
		}
	}

	listed := map[window.ID]bool{}
	var current []*window.Window
	for _, w := range stack.TopToBottom() {
		if !w.Mapped || w.IsPopup {
			continue
		}
		listed[w.ID] = true
		current = append(current, w)
	}

	m.order = slices.DeleteFunc(m.order, func(id window.ID) bool {
		if listed[id] {
			return false
		}
		logrus.WithField("window", id).Debugln("Foreign toplevel closed")
		for _, h := range m.toplevels[id].handles {
			h.Closed()
		}
		delete(m.toplevels, id)
		return true
	})

	for i, w := range current {
		snap := Snapshot{Title: w.Title, AppID: w.AppID, States: states(w, i == 0), Output: outName}
		e, ok := m.toplevels[w.ID]
		if !ok {
			e = &entry{snap: snap, handles: map[Client]Handle{}}
			m.toplevels[w.ID] = e
			m.order = append(m.order, w.ID)
			for _, c := range m.clients {
				e.announce(c, w.ID)
			}
			continue
		}
		e.update(snap)
	}
}

func (e *entry) update(snap Snapshot) {
	titleChanged := e.snap.Title != snap.Title
	appIDChanged := e.snap.AppID != snap.AppID
	statesChanged := !slices.Equal(e.snap.States, snap.States)
	outputChanged := e.snap.Output != snap.Output
	if !titleChanged && !appIDChanged && !statesChanged && !outputChanged {
		return
	}
	old := e.snap
	e.snap = snap
	for _, h := range e.handles {
		if titleChanged {
			h.Title(snap.Title)
		}
		if appIDChanged {
			h.AppID(snap.AppID)
		}
		if statesChanged {
			h.State(snap.States)
		}
		if outputChanged {
			if old.Output != "" {
				h.OutputLeave(old.Output)
			}
			if snap.Output != "" {
				h.OutputEnter(snap.Output)
			}
		}
		h.Done()
	}
}

// Published returns the last published snapshot of every toplevel
func (m *Manager) Published() map[window.ID]Snapshot {
	out := make(map[window.ID]Snapshot, len(m.toplevels))
	for id, e := range m.toplevels {
		out[id] = e.snap
	}
	return out
}

// Order lists the published toplevels in publication order
func (m *Manager) Order() []window.ID {
	return slices.Clone(m.order)
}

type RequestKind int

const (
	RequestActivate = RequestKind(iota)
	RequestClose
	RequestSetFullscreen
	RequestUnsetFullscreen
	RequestSetMaximized
	RequestUnsetMaximized
	RequestSetMinimized
	RequestUnsetMinimized
)

type Request struct {
	Kind RequestKind
	// Requested output for RequestSetFullscreen, may be empty
	Output string
}

// Handle dispatches a request made on a handle. Requests for toplevels that
// were never published or are already closed are dropped
func (m *Manager) Handle(h Handler, id window.ID, req Request) bool {
	if _, ok := m.toplevels[id]; !ok {
		logrus.WithField("window", id).Debugln("Dropping request for unknown foreign toplevel")
		return false
	}
	switch req.Kind {
	case RequestActivate:
		h.Activate(id)
	case RequestClose:
		h.Close(id)
	case RequestSetFullscreen:
		h.SetFullscreen(id, req.Output)
	case RequestUnsetFullscreen:
		h.UnsetFullscreen(id)
	case RequestSetMaximized:
		h.SetMaximized(id)
	case RequestUnsetMaximized:
		h.UnsetMaximized(id)
	case RequestSetMinimized:
		h.SetMinimized(id)
	case RequestUnsetMinimized:
		h.UnsetMinimized(id)
	default:
		return false
	}
	return true
}
