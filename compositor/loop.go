package compositor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/common/ipc"
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/input"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/render"
	"github.com/mstarongithub/consolation/scene"
	"github.com/mstarongithub/consolation/xwayland"
)

// Longest the loop sleeps between two frames
const frameInterval = 16 * time.Millisecond

// Renderers drawing into a target sized per output implement this
type resizer interface {
	Resize(size geom.Size)
}

// StartXWayland makes conn the X11 window manager. Events read from it have to
// be handed to HandleX11 on the loop goroutine
func (s *State) StartXWayland(conn xwayland.Conn) error {
	wm := xwayland.New(conn)
	if err := wm.Start(); err != nil {
		return err
	}
	s.wm = wm
	return nil
}

// HandleX11 processes one event of the X11 connection
func (s *State) HandleX11(ev xwayland.Event) {
	if s.wm == nil {
		return
	}
	if err := s.wm.Handle(s.x11Env(), ev); err != nil {
		logrus.WithError(err).Warningln("Failed to handle X11 event")
	}
}

// RenderOutput composes and draws one output, then fires the frame callbacks
func (s *State) RenderOutput(o *output.Output) error {
	if s.renderer == nil {
		return fmt.Errorf("rendering %s: %w", o.Name, render.ErrContextLost)
	}
	if rs, ok := s.renderer.(resizer); ok {
		rs.Resize(o.PixelSize())
	}
	frame, err := s.composer.Compose(s.renderer, scene.Input{
		Output:   o,
		Stack:    s.stack,
		Layers:   s.layers,
		Surfaces: s.surfaces,
	})
	if err != nil {
		return err
	}
	if err := scene.Submit(s.renderer, s.surfaces, frame, s.Now()); err != nil {
		return err
	}
	if s.present != nil {
		return s.present(o)
	}
	return nil
}

// RenderFrame draws every enabled output. Only a lost context is returned,
// other failures are logged per output
func (s *State) RenderFrame() error {
	if s.lost != nil {
		return s.lost
	}
	for _, o := range s.outputs.Enabled() {
		if err := s.RenderOutput(o); err != nil {
			if errors.Is(err, render.ErrContextLost) {
				s.lost = err
				return err
			}
			logrus.WithError(err).WithField("output", o.Name).Errorln("Failed to render output")
		}
	}
	return nil
}

// RefreshBridges publishes stack and output changes to the bound bridge clients
func (s *State) RefreshBridges() {
	s.toplevels.Refresh(s.stack, s.outputs)
	s.outputMgr.Refresh(s.outputs)
}

// Pump runs posted tasks and publishes the result to the bridges. Hosts with
// their own event loop call it once per frame instead of Run
func (s *State) Pump() {
	s.drain()
	s.RefreshBridges()
}

// Iterate runs one loop iteration without waiting
func (s *State) Iterate() error {
	s.Pump()
	return s.RenderFrame()
}

func (s *State) drain() {
	for {
		select {
		case t, ok := <-s.tasks.Receiver():
			if !ok {
				return
			}
			t(s)
		default:
			return
		}
	}
}

// Run is the compositor loop. Input events come in through events, everything
// else through Post. It returns nil once stopped and the error when the
// renderer lost its context
func (s *State) Run(ctx context.Context, events <-chan input.Event) error {
	logrus.Infoln("Compositor loop started")
	defer logrus.Infoln("Compositor loop stopped")
	timer := time.NewTimer(frameInterval)
	defer timer.Stop()
	tasks := s.tasks.Receiver()
	for {
		if err := s.Iterate(); err != nil {
			return err
		}
		if s.quit {
			return nil
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(frameInterval)
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-tasks:
			if !ok {
				tasks = nil
				continue
			}
			t(s)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.Dispatch(ev)
		case <-timer.C:
		}
		if s.quit {
			return nil
		}
	}
}

// Shutdown stops accepting tasks and shuts the event fan-out down
func (s *State) Shutdown() {
	s.tasks.Close()
	s.events.CloseSender()
}

// StackInfo lists the stack topmost first
func (s *State) StackInfo() ipc.StackResponse {
	var resp ipc.StackResponse
	for _, w := range s.stack.TopToBottom() {
		bbox := w.BBox()
		info := ipc.WindowInfo{
			ID:     uint64(w.ID),
			Kind:   w.Kind.String(),
			Title:  w.Title,
			AppID:  w.AppID,
			X:      bbox.X,
			Y:      bbox.Y,
			Width:  bbox.W,
			Height: bbox.H,
			Mapped: w.Mapped,
			Popup:  w.IsPopup,
		}
		if w.States.Activated {
			info.States = append(info.States, "activated")
		}
		if w.States.Maximized {
			info.States = append(info.States, "maximized")
		}
		if w.States.Minimized {
			info.States = append(info.States, "minimized")
		}
		if w.States.Fullscreen {
			info.States = append(info.States, "fullscreen")
		}
		resp.Windows = append(resp.Windows, info)
	}
	return resp
}

func (s *State) FocusInfo() ipc.FocusResponse {
	var resp ipc.FocusResponse
	if t, ok := s.router.KeyboardFocus(); ok {
		resp.KeyboardWindow = uint64(t.Window)
	}
	if t, ok := s.router.PointerFocus(); ok {
		resp.PointerWindow = uint64(t.Window)
	}
	p := s.router.PointerLocation()
	resp.PointerX, resp.PointerY = p.X, p.Y
	return resp
}

func (s *State) MenuInfo() ipc.MenuResponse {
	return ipc.MenuResponse{
		Open:     s.composer.MenuOpen(),
		Selected: s.composer.Selected(),
		Rows:     s.stack.Len(),
	}
}
