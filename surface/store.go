// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package surface keeps the compositor side record of every client surface:
// attached buffers, imported textures, roles and the subsurface tree.
package surface

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/render"
)

type (
	ID       uint64
	ClientID uint64
)

var (
	ErrRoleAssigned = errors.New("surface already has a role")
	ErrNoSurface    = errors.New("no such surface")
	ErrBadParent    = errors.New("invalid subsurface parent")
)

// FrameCallback is fired with the presentation time in milliseconds
type FrameCallback func(msec uint32)

type state struct {
	buffer    render.Buffer
	attached  bool
	damage    []geom.Rect
	scale     int
	transform geom.Transform
}

type Surface struct {
	id     ID
	client ClientID
	role   Role

	pending state
	current state

	texture render.Texture
	// Buffer the texture was imported from
	textureFrom render.Buffer
	// Non shm buffer still sampled by the renderer
	held        render.Buffer
	displayable bool

	parent   ID
	children []ID

	pendingFrames []FrameCallback
	frames        []FrameCallback
	destroyed     bool
}

func (s *Surface) ID() ID {
	return s.id
}

func (s *Surface) Client() ClientID {
	return s.client
}

// Role returns the assigned role or nil
func (s *Surface) Role() Role {
	return s.role
}

func (s *Surface) RoleKind() RoleKind {
	if s.role == nil {
		return RoleNone
	}
	return s.role.Kind()
}

func (s *Surface) Texture() render.Texture {
	return s.texture
}

// Displayable reports whether the last commit produced a usable texture
func (s *Surface) Displayable() bool {
	return s.displayable && s.texture != nil
}

func (s *Surface) BufferScale() int {
	if s.current.scale < 1 {
		return 1
	}
	return s.current.scale
}

func (s *Surface) BufferTransform() geom.Transform {
	return s.current.transform
}

// BufferSize is the size of the imported texture in buffer pixels
func (s *Surface) BufferSize() geom.Size {
	if s.texture == nil {
		return geom.Size{}
	}
	return s.texture.Size()
}

// Size is the logical size of the surface
func (s *Surface) Size() geom.Size {
	return s.current.transform.TransformSize(s.BufferSize().Div(s.BufferScale()))
}

func (s *Surface) Parent() ID {
	return s.parent
}

// Children returns the subsurfaces in stacking order, bottom first
func (s *Surface) Children() []ID {
	return s.children
}

// Store is the surface attachment tracker. It owns every texture and decides
// when client buffers are handed back
type Store struct {
	renderer render.Renderer
	surfaces map[ID]*Surface
	next     ID
}

func NewStore(r render.Renderer) *Store {
	return &Store{
		renderer: r,
		surfaces: make(map[ID]*Surface),
	}
}

// SetRenderer swaps the renderer. Existing textures are dropped since they belong to the old one
func (st *Store) SetRenderer(r render.Renderer) {
	st.renderer = r
	for _, s := range st.surfaces {
		st.dropTexture(s)
	}
}

func (st *Store) Create(client ClientID) *Surface {
	st.next++
	s := &Surface{id: st.next, client: client, current: state{scale: 1}}
	st.surfaces[s.id] = s
	return s
}

func (st *Store) Get(id ID) (*Surface, bool) {
	s, ok := st.surfaces[id]
	return s, ok
}

func (st *Store) Len() int {
	return len(st.surfaces)
}

func (st *Store) lookup(id ID) (*Surface, error) {
	s, ok := st.surfaces[id]
	if !ok {
		return nil, fmt.Errorf("surface %d: %w", id, ErrNoSurface)
	}
	return s, nil
}

// SetRole assigns the role. A surface only ever gets one role
func (st *Store) SetRole(id ID, role Role) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	if s.role != nil {
		return fmt.Errorf("surface %d has role %s, can't become %s: %w", id, s.role.Kind(), role.Kind(), ErrRoleAssigned)
	}
	if sub, ok := role.(*Subsurface); ok {
		parent, err := st.lookup(sub.Parent)
		if err != nil || st.isAncestor(id, sub.Parent) {
			return fmt.Errorf("surface %d with parent %d: %w", id, sub.Parent, ErrBadParent)
		}
		parent.children = append(parent.children, id)
		s.parent = sub.Parent
	}
	s.role = role
	return nil
}

// isAncestor reports whether candidate is id or one of the parents above it
func (st *Store) isAncestor(candidate, id ID) bool {
	for cur := id; cur != 0; {
		if cur == candidate {
			return true
		}
		s, ok := st.surfaces[cur]
		if !ok {
			return false
		}
		cur = s.parent
	}
	return false
}

// Attach stores buf as pending. A nil buffer unmaps the surface on commit
func (st *Store) Attach(id ID, buf render.Buffer) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	s.pending.buffer = buf
	s.pending.attached = true
	return nil
}

func (st *Store) Damage(id ID, r geom.Rect) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	s.pending.damage = append(s.pending.damage, r)
	return nil
}

func (st *Store) SetBufferScale(id ID, scale int) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	if scale < 1 {
		return fmt.Errorf("buffer scale %d is not positive", scale)
	}
	s.pending.scale = scale
	return nil
}

func (st *Store) SetBufferTransform(id ID, t geom.Transform) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	if !t.Valid() {
		return fmt.Errorf("invalid buffer transform %d", int(t))
	}
	s.pending.transform = t
	return nil
}

func (st *Store) SetSubsurfacePosition(id ID, p geom.Point) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	sub, ok := s.role.(*Subsurface)
	if !ok {
		return fmt.Errorf("surface %d is %s, not a subsurface", id, s.RoleKind())
	}
	sub.Offset = p
	return nil
}

// Frame registers a callback fired after the next frame showing this commit
func (st *Store) Frame(id ID, cb FrameCallback) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	s.pendingFrames = append(s.pendingFrames, cb)
	return nil
}

func sameBuffer(a, b render.Buffer) bool {
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

// Commit applies the pending state. Import failures are logged and leave the
// surface undisplayable. Only a lost renderer context is returned as error
func (st *Store) Commit(id ID) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	s.frames = append(s.frames, s.pendingFrames...)
	s.pendingFrames = nil
	if s.pending.scale > 0 {
		s.current.scale = s.pending.scale
		s.pending.scale = 0
	}
	s.current.transform = s.pending.transform
	damage := s.pending.damage
	s.pending.damage = nil

	if !s.pending.attached {
		return nil
	}
	buf := s.pending.buffer
	s.pending.attached = false
	s.pending.buffer = nil

	if buf == nil {
		st.dropTexture(s)
		s.current.buffer = nil
		return nil
	}

	if s.texture != nil && sameBuffer(buf, s.textureFrom) && len(damage) == 0 {
		// Nothing changed, the texture still holds the content
		s.current.buffer = buf
		if buf.Kind() != render.BufferDmabuf {
			buf.Release()
		}
		return nil
	}

	if st.renderer == nil {
		return fmt.Errorf("committing surface %d: %w", id, render.ErrContextLost)
	}
	tex, err := st.renderer.ImportBuffer(buf, damage)
	if err != nil {
		if errors.Is(err, render.ErrContextLost) {
			return err
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"surface": id,
			"client":  s.client,
			"kind":    buf.Kind(),
		}).Errorln("Failed to import buffer, surface is not displayable")
		buf.Release()
		st.dropTexture(s)
		s.current.buffer = nil
		return nil
	}

	prevHeld := s.held
	s.texture = tex
	s.textureFrom = buf
	s.displayable = true
	s.current.buffer = buf
	if buf.Kind() == render.BufferDmabuf {
		s.held = buf
	} else {
		s.held = nil
		buf.Release()
	}
	if prevHeld != nil && !sameBuffer(prevHeld, buf) {
		prevHeld.Release()
	}
	return nil
}

func (st *Store) dropTexture(s *Surface) {
	if s.held != nil {
		s.held.Release()
		s.held = nil
	}
	s.texture = nil
	s.textureFrom = nil
	s.displayable = false
}

// Destroy forgets the surface, releases held buffers and unlinks it from its parent.
// Children stay alive but are no longer reachable from the tree
func (st *Store) Destroy(id ID) {
	s, ok := st.surfaces[id]
	if !ok {
		return
	}
	st.dropTexture(s)
	s.destroyed = true
	if parent, ok := st.surfaces[s.parent]; ok {
		for i, c := range parent.children {
			if c == id {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
	}
	for _, c := range s.children {
		if child, ok := st.surfaces[c]; ok {
			child.parent = 0
		}
	}
	delete(st.surfaces, id)
}

// DestroyClient removes every surface of a client and returns their ids
func (st *Store) DestroyClient(client ClientID) []ID {
	var gone []ID
	for id, s := range st.surfaces {
		if s.client == client {
			gone = append(gone, id)
		}
	}
	for _, id := range gone {
		st.Destroy(id)
	}
	return gone
}

// SendFrameDone fires the frame callbacks of the given surfaces and their subsurfaces
func (st *Store) SendFrameDone(roots []ID, msec uint32) {
	work := append([]ID(nil), roots...)
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		s, ok := st.surfaces[id]
		if !ok {
			continue
		}
		frames := s.frames
		s.frames = nil
		for _, cb := range frames {
			cb(msec)
		}
		work = append(work, s.children...)
	}
}
