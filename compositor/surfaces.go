package compositor

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/common/ipc"
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/input"
	"github.com/mstarongithub/consolation/render"
	"github.com/mstarongithub/consolation/surface"
	"github.com/mstarongithub/consolation/window"
)

var ErrNoWindow = errors.New("surface has no window")

// CreateSurface is wl_compositor.create_surface
func (s *State) CreateSurface(client surface.ClientID) surface.ID {
	return s.surfaces.Create(client).ID()
}

// RegisterXWaylandSurface records a surface created by the Xwayland client
// under its wl_surface object id
func (s *State) RegisterXWaylandSurface(objectID uint32, id surface.ID) {
	s.xwaylandSurfaces[objectID] = id
}

func (s *State) Attach(id surface.ID, buf render.Buffer) error {
	return s.surfaces.Attach(id, buf)
}

func (s *State) Damage(id surface.ID, r geom.Rect) error {
	return s.surfaces.Damage(id, r)
}

func (s *State) Frame(id surface.ID, cb surface.FrameCallback) error {
	return s.surfaces.Frame(id, cb)
}

func (s *State) SetBufferScale(id surface.ID, scale int) error {
	return s.surfaces.SetBufferScale(id, scale)
}

func (s *State) SetBufferTransform(id surface.ID, t geom.Transform) error {
	return s.surfaces.SetBufferTransform(id, t)
}

func (s *State) SetSubsurfacePosition(id surface.ID, p geom.Point) error {
	return s.surfaces.SetSubsurfacePosition(id, p)
}

// setRole assigns a role and reports a second role as protocol error
func (s *State) setRole(id surface.ID, role surface.Role) error {
	err := s.surfaces.SetRole(id, role)
	if err == nil {
		return nil
	}
	if errors.Is(err, surface.ErrRoleAssigned) || errors.Is(err, surface.ErrBadParent) {
		if surf, ok := s.surfaces.Get(id); ok && s.protocol != nil {
			s.protocol.PostError(surf.Client(), err)
		}
	}
	return err
}

// NewSubsurface is wl_subcompositor.get_subsurface
func (s *State) NewSubsurface(id, parent surface.ID) error {
	return s.setRole(id, &surface.Subsurface{Parent: parent})
}

// NewToplevel gives the surface the xdg_toplevel role. The window enters the
// stack on the first commit with a buffer
func (s *State) NewToplevel(id surface.ID) (*window.Window, error) {
	if err := s.setRole(id, &surface.Toplevel{}); err != nil {
		return nil, err
	}
	w := &window.Window{
		ID:      s.stack.NewID(),
		Kind:    window.KindWayland,
		Surface: id,
		Capabilities: window.Capabilities{
			Fullscreen: true,
			Maximize:   true,
			Minimize:   true,
		},
	}
	s.pending[id] = w
	// Windows always fill the output
	if s.protocol != nil {
		s.protocol.Configure(w, s.outputSize())
	}
	return w, nil
}

// NewPopup is xdg_surface.get_popup
func (s *State) NewPopup(id, parent surface.ID, loc geom.Point) error {
	if err := s.setRole(id, &surface.Popup{Parent: parent, Location: loc}); err != nil {
		return err
	}
	w, ok := s.stack.FindBySurface(parent)
	if !ok {
		w, ok = s.pending[parent]
	}
	if !ok {
		return fmt.Errorf("popup %d with parent %d: %w", id, parent, ErrNoWindow)
	}
	w.AddPopup(window.Popup{Surface: id, Parent: parent, Location: loc})
	return nil
}

// NewLayerSurface is zwlr_layer_shell_v1.get_layer_surface
func (s *State) NewLayerSurface(id surface.ID, tier window.Tier, namespace, outputName string) error {
	if err := s.setRole(id, &surface.LayerRole{Namespace: namespace, Output: outputName}); err != nil {
		return err
	}
	s.layers.Add(&window.LayerSurface{
		Surface:   id,
		Tier:      tier,
		Namespace: namespace,
		Output:    outputName,
	})
	return nil
}

func (s *State) SetLayerPosition(id surface.ID, loc geom.Point) error {
	ls, ok := s.layers.Find(id)
	if !ok {
		return fmt.Errorf("layer surface %d: %w", id, surface.ErrNoSurface)
	}
	ls.Location = loc
	return nil
}

// SetLayerInteractive records the requested keyboard interactivity
func (s *State) SetLayerInteractive(id surface.ID, interactive bool) error {
	ls, ok := s.layers.Find(id)
	if !ok {
		return fmt.Errorf("layer surface %d: %w", id, surface.ErrNoSurface)
	}
	ls.Interactive = interactive
	s.focusChanged()
	return nil
}

func (s *State) SetLayerTier(id surface.ID, t window.Tier) error {
	if !s.layers.SetTier(id, t) {
		return fmt.Errorf("layer surface %d to tier %d: %w", id, t, surface.ErrNoSurface)
	}
	return nil
}

// window finds the window of a root surface, mapped or not
func (s *State) window(id surface.ID) (*window.Window, bool) {
	if w, ok := s.pending[id]; ok {
		return w, true
	}
	w, ok := s.stack.FindBySurface(id)
	if !ok || w.Surface != id {
		return nil, false
	}
	return w, true
}

func (s *State) SetTitle(id surface.ID, title string) error {
	w, ok := s.window(id)
	if !ok {
		return fmt.Errorf("surface %d: %w", id, ErrNoWindow)
	}
	w.Title = title
	return nil
}

func (s *State) SetAppID(id surface.ID, appID string) error {
	w, ok := s.window(id)
	if !ok {
		return fmt.Errorf("surface %d: %w", id, ErrNoWindow)
	}
	w.AppID = appID
	return nil
}

// SetWindowGeometry is xdg_surface.set_window_geometry
func (s *State) SetWindowGeometry(id surface.ID, r geom.Rect) error {
	w, ok := s.window(id)
	if !ok {
		return fmt.Errorf("surface %d: %w", id, ErrNoWindow)
	}
	w.Geometry = r
	if surf, ok := s.surfaces.Get(id); ok {
		if tl, ok := surf.Role().(*surface.Toplevel); ok {
			tl.Geometry = r
		}
	}
	return nil
}

func (s *State) SetDecoration(id surface.ID, mode window.DecorationMode) error {
	w, ok := s.window(id)
	if !ok {
		return fmt.Errorf("surface %d: %w", id, ErrNoWindow)
	}
	w.Decoration = mode
	return nil
}

// RequestMove is xdg_toplevel.move
func (s *State) RequestMove(id surface.ID, serial uint32) bool {
	w, ok := s.window(id)
	if !ok || !w.Mapped {
		return false
	}
	return s.router.BeginMove(s.inputEnv(), w.ID, serial)
}

// RequestResize is xdg_toplevel.resize
func (s *State) RequestResize(id surface.ID, serial uint32, edges input.Edges) bool {
	w, ok := s.window(id)
	if !ok || !w.Mapped {
		return false
	}
	return s.router.BeginResize(s.inputEnv(), w.ID, serial, edges)
}

// SetPointerConstraint is zwp_pointer_constraints_v1 lock/confine
func (s *State) SetPointerConstraint(id surface.ID, c input.Constraint) {
	s.router.SetConstraint(id, c)
}

func (s *State) ClearPointerConstraint(id surface.ID) {
	s.router.ClearConstraint(id)
}

// rootOf follows subsurface parents up to the surface owning the tree
func (s *State) rootOf(id surface.ID) surface.ID {
	for depth := 0; depth < s.surfaces.Len(); depth++ {
		surf, ok := s.surfaces.Get(id)
		if !ok || surf.Parent() == 0 {
			return id
		}
		id = surf.Parent()
	}
	return id
}

// Commit is wl_surface.commit. It applies the pending state, then maps,
// unmaps or resizes whatever window the surface belongs to
func (s *State) Commit(id surface.ID) error {
	if err := s.surfaces.Commit(id); err != nil {
		if errors.Is(err, render.ErrContextLost) {
			s.lost = err
		}
		return err
	}
	root := s.rootOf(id)
	surf, ok := s.surfaces.Get(root)
	if !ok {
		return nil
	}

	switch surf.RoleKind() {
	case surface.RoleToplevel:
		s.commitToplevel(surf)
	case surface.RolePopup:
		if w, ok := s.stack.FindBySurface(root); ok {
			w.Extents = s.surfaces.Extents(w.Surface)
		}
	case surface.RoleLayer:
		if surf.Displayable() {
			s.focusChanged()
		}
	case surface.RoleNone:
		if s.wm == nil {
			break
		}
		for objectID, sid := range s.xwaylandSurfaces {
			if sid == root {
				s.wm.SurfaceCommitted(s.x11Env(), objectID, sid)
				break
			}
		}
	case surface.RoleX11:
		if w, ok := s.stack.FindBySurface(root); ok {
			w.Extents = s.surfaces.Extents(root)
		}
	}
	return nil
}

func (s *State) commitToplevel(surf *surface.Surface) {
	id := surf.ID()
	if w, ok := s.pending[id]; ok {
		if !surf.Displayable() {
			return
		}
		delete(s.pending, id)
		w.Mapped = true
		w.Extents = s.surfaces.Extents(id)
		s.stack.Insert(w)
		logrus.WithFields(logrus.Fields{
			"window": w.ID,
			"title":  w.Title,
		}).Infoln("Window mapped")
		s.notify(ipc.Event{Kind: "mapped", Window: uint64(w.ID), Title: w.Title})
		s.focusChanged()
		return
	}
	w, ok := s.stack.FindBySurface(id)
	if !ok {
		return
	}
	if !surf.Displayable() {
		// A null buffer unmaps, the role stays and the next buffer maps again
		s.unmap(w)
		w.Mapped = false
		w.Popups = nil
		s.pending[id] = w
		return
	}
	w.Extents = s.surfaces.Extents(id)
}

// unmap takes the window off the stack and hands focus on
func (s *State) unmap(w *window.Window) {
	s.router.ReleaseWindow(w.ID)
	s.stack.Remove(w.ID)
	w.States.Activated = false
	s.router.WindowRemoved(s.inputEnv(), w.ID)
	logrus.WithField("window", w.ID).Infoln("Window unmapped")
	s.notify(ipc.Event{Kind: "unmapped", Window: uint64(w.ID)})
	s.composer.Clamp(s.stack.Len())
}

// DestroySurface is wl_surface.destroy, also used for role object destruction
func (s *State) DestroySurface(id surface.ID) {
	// Grabs and focus go first so nothing is routed to a dead surface
	s.router.SurfaceDestroyed(s.inputEnv(), id)
	if w, ok := s.pending[id]; ok && w.Surface == id {
		delete(s.pending, id)
	}
	if w, ok := s.stack.FindBySurface(id); ok {
		if w.Surface == id {
			s.unmap(w)
		} else if w.RemovePopup(id) {
			w.Extents = s.surfaces.Extents(w.Surface)
		}
	}
	for _, w := range s.pending {
		w.RemovePopup(id)
	}
	if s.layers.Remove(id) {
		s.focusChanged()
	}
	for objectID, sid := range s.xwaylandSurfaces {
		if sid == id {
			delete(s.xwaylandSurfaces, objectID)
		}
	}
	s.surfaces.Destroy(id)
}

// ClientGone drops every surface of a disconnected client
func (s *State) ClientGone(client surface.ClientID) {
	var gone []surface.ID
	for _, w := range s.stack.TopToBottom() {
		if surf, ok := s.surfaces.Get(w.Surface); ok && surf.Client() == client {
			gone = append(gone, w.Surface)
		}
	}
	for _, id := range gone {
		s.DestroySurface(id)
	}
	for _, id := range s.surfaces.DestroyClient(client) {
		s.router.SurfaceDestroyed(s.inputEnv(), id)
		delete(s.pending, id)
		if s.layers.Remove(id) {
			s.focusChanged()
		}
	}
	logrus.WithField("client", client).Debugln("Client gone")
}
