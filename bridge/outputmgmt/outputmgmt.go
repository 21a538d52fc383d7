// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package outputmgmt publishes the output registry as output management
// heads and turns client configurations into registry transactions.
package outputmgmt

import (
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/mstarongithub/consolation/output"
)

var (
	// The head was already enabled or disabled in this configuration. Fatal to the client
	ErrAlreadyConfiguredHead = errors.New("head has been already configured")
	// The configuration was already applied, tested or cancelled. Fatal to the client
	ErrAlreadyUsed  = errors.New("configuration had already been used")
	ErrInvalidMode  = errors.New("failed to find requested mode")
	ErrInvalidScale = errors.New("scale is negative or zero")
	ErrUnknownHead  = errors.New("unknown head")
)

// Changes says which head properties differ from the last published state
type Changes uint32

const (
	ChangedEnabled = Changes(1 << iota)
	ChangedModes
	ChangedMode
	ChangedPosition
	ChangedScale
	ChangedTransform
	ChangedVRR
)

// Client is a bound output manager object
type Client interface {
	// NewHead describes a head for the first time: description, modes, current mode,
	// position, transform, scale, enabled, make, model and adaptive sync
	NewHead(o *output.Output)
	HeadChanged(o *output.Output, what Changes)
	HeadRemoved(name string)
	Done(serial uint32)
	Finished()
}

// Listener receives the outcome of a configuration
type Listener interface {
	Succeeded()
	Failed()
	Cancelled()
}

type clientData struct {
	client Client
	confs  []*Configuration
}

type Manager struct {
	serial  uint32
	current []*output.Output
	clients []*clientData
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Serial() uint32 {
	return m.serial
}

func (m *Manager) data(c Client) *clientData {
	for _, d := range m.clients {
		if d.client == c {
			return d
		}
	}
	return nil
}

// Bind registers a client and sends it every head followed by done
func (m *Manager) Bind(c Client) {
	m.clients = append(m.clients, &clientData{client: c})
	for _, o := range m.current {
		c.NewHead(o)
	}
	c.Done(m.serial)
}

func (m *Manager) Stop(c Client) {
	c.Finished()
	m.Unbind(c)
}

func (m *Manager) Unbind(c Client) {
	m.clients = slices.DeleteFunc(m.clients, func(d *clientData) bool { return d.client == c })
}

func diff(old, cur *output.Output) Changes {
	var what Changes
	if old.Enabled != cur.Enabled {
		what |= ChangedEnabled
	}
	if !slices.Equal(old.Modes, cur.Modes) {
		what |= ChangedModes
	}
	if old.CurrentMode != cur.CurrentMode {
		what |= ChangedMode
	}
	if old.Position != cur.Position {
		what |= ChangedPosition
	}
	if old.Scale != cur.Scale {
		what |= ChangedScale
	}
	if old.Transform != cur.Transform {
		what |= ChangedTransform
	}
	if old.VRR != cur.VRR {
		what |= ChangedVRR
	}
	return what
}

func find(outs []*output.Output, name string) *output.Output {
	i := slices.IndexFunc(outs, func(o *output.Output) bool { return o.Name == name })
	if i < 0 {
		return nil
	}
	return outs[i]
}

// Refresh publishes the registry state. When anything changed the serial is
// bumped, every client gets done and every pending configuration is cancelled
func (m *Manager) Refresh(reg *output.Registry) {
	next := reg.Snapshot()
	changed := false
	for _, o := range next {
		old := find(m.current, o.Name)
		if old == nil {
			changed = true
			for _, d := range m.clients {
				d.client.NewHead(o)
			}
			continue
		}
		if what := diff(old, o); what != 0 {
			changed = true
			for _, d := range m.clients {
				d.client.HeadChanged(o, what)
			}
		}
	}
	for _, old := range m.current {
		if find(next, old.Name) == nil {
			changed = true
			for _, d := range m.clients {
				d.client.HeadRemoved(old.Name)
			}
		}
	}
	if !changed {
		return
	}
	m.current = next
	m.serial++
	logrus.WithField("serial", m.serial).Debugln("Output configuration changed")
	for _, d := range m.clients {
		d.client.Done(m.serial)
		for _, conf := range d.confs {
			conf.cancel()
		}
		d.confs = nil
	}
}

type nopListener struct{}

func (nopListener) Succeeded() {}
func (nopListener) Failed()    {}
func (nopListener) Cancelled() {}

// Configure starts a configuration for the compositor itself against the
// current serial. It belongs to no client and has to be used right away
func (m *Manager) Configure(l Listener) *Configuration {
	if l == nil {
		l = nopListener{}
	}
	return &Configuration{
		manager:  m,
		serial:   m.serial,
		listener: l,
		heads:    map[string]*Head{},
	}
}

// CreateConfiguration starts a configuration against serial. A stale serial
// yields a configuration that is cancelled right away
func (m *Manager) CreateConfiguration(c Client, serial uint32, l Listener) *Configuration {
	if l == nil {
		l = nopListener{}
	}
	conf := &Configuration{
		manager:  m,
		serial:   serial,
		listener: l,
		heads:    map[string]*Head{},
	}
	d := m.data(c)
	if d == nil || serial != m.serial {
		logrus.WithFields(logrus.Fields{"serial": serial, "current": m.serial}).
			Debugln("Cancelling outdated output configuration")
		conf.cancel()
		return conf
	}
	conf.client = d
	d.confs = append(d.confs, conf)
	return conf
}
