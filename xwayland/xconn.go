package xwayland

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/composite"
	"github.com/jezek/xgb/xproto"
	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/geom"
)

// XConn implements Conn on top of an xgb connection to Xwayland
type XConn struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo

	mu    sync.Mutex
	atoms map[string]xproto.Atom
	names map[xproto.Atom]string
}

// Dial connects to an X display like ":1"
func Dial(display string) (*XConn, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connecting to X11 display %s: %w", display, err)
	}
	return newXConn(conn)
}

// NewXConnNet uses the window manager socket handed to Xwayland with -wm
func NewXConnNet(sock net.Conn) (*XConn, error) {
	conn, err := xgb.NewConnNet(sock)
	if err != nil {
		return nil, fmt.Errorf("connecting to Xwayland: %w", err)
	}
	return newXConn(conn)
}

func newXConn(conn *xgb.Conn) (*XConn, error) {
	if err := composite.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("composite extension: %w", err)
	}
	setup := xproto.Setup(conn)
	if len(setup.Roots) == 0 {
		conn.Close()
		return nil, fmt.Errorf("X server reports no screens")
	}
	return &XConn{
		conn:   conn,
		screen: setup.DefaultScreen(conn),
		atoms:  map[string]xproto.Atom{},
		names:  map[xproto.Atom]string{},
	}, nil
}

func (x *XConn) Close() {
	x.conn.Close()
}

func (x *XConn) atom(name string) (xproto.Atom, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if a, ok := x.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(x.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("interning %s: %w", name, err)
	}
	x.atoms[name] = reply.Atom
	x.names[reply.Atom] = name
	return reply.Atom, nil
}

func (x *XConn) atomName(a xproto.Atom) string {
	x.mu.Lock()
	defer x.mu.Unlock()
	if name, ok := x.names[a]; ok {
		return name
	}
	reply, err := xproto.GetAtomName(x.conn, a).Reply()
	if err != nil {
		return ""
	}
	x.names[a] = reply.Name
	x.atoms[reply.Name] = a
	return reply.Name
}

func (x *XConn) BecomeWM() error {
	root := x.screen.Root
	err := xproto.ChangeWindowAttributesChecked(x.conn, root, xproto.CwEventMask, []uint32{
		xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify | xproto.EventMaskPropertyChange,
	}).Check()
	if err != nil {
		return fmt.Errorf("redirecting root substructure: %w", err)
	}

	wid, err := xproto.NewWindowId(x.conn)
	if err != nil {
		return fmt.Errorf("allocating selection window: %w", err)
	}
	err = xproto.CreateWindowChecked(x.conn, x.screen.RootDepth, wid, root,
		0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput, x.screen.RootVisual, 0, nil).Check()
	if err != nil {
		return fmt.Errorf("creating selection window: %w", err)
	}
	wmS0, err := x.atom("WM_S0")
	if err != nil {
		return err
	}
	if err := xproto.SetSelectionOwnerChecked(x.conn, wid, wmS0, xproto.TimeCurrentTime).Check(); err != nil {
		return fmt.Errorf("taking WM_S0: %w", err)
	}
	if err := composite.RedirectSubwindowsChecked(x.conn, root, composite.RedirectManual).Check(); err != nil {
		return fmt.Errorf("redirecting subwindows: %w", err)
	}
	return nil
}

func (x *XConn) ConfigureWindow(win uint32, c Configure) error {
	var values []uint32
	if c.ValueMask&ConfigX != 0 {
		values = append(values, uint32(c.X))
	}
	if c.ValueMask&ConfigY != 0 {
		values = append(values, uint32(c.Y))
	}
	if c.ValueMask&ConfigWidth != 0 {
		values = append(values, c.Width)
	}
	if c.ValueMask&ConfigHeight != 0 {
		values = append(values, c.Height)
	}
	if c.ValueMask&ConfigBorderWidth != 0 {
		values = append(values, c.BorderWidth)
	}
	if c.ValueMask&ConfigSibling != 0 {
		values = append(values, c.Sibling)
	}
	if c.ValueMask&ConfigStackMode != 0 {
		values = append(values, c.StackMode)
	}
	return xproto.ConfigureWindowChecked(x.conn, xproto.Window(win), c.ValueMask, values).Check()
}

func (x *XConn) MapWindow(win uint32) error {
	return xproto.MapWindowChecked(x.conn, xproto.Window(win)).Check()
}

func (x *XConn) Property(win uint32, prop, typ string) ([]byte, error) {
	p, err := x.atom(prop)
	if err != nil {
		return nil, err
	}
	t, err := x.atom(typ)
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(x.conn, false, xproto.Window(win), p, t, 0, 1024).Reply()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", prop, err)
	}
	if reply.Type != t {
		return nil, nil
	}
	return reply.Value, nil
}

func (x *XConn) PropertyAtoms(win uint32, prop string) ([]string, error) {
	p, err := x.atom(prop)
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(x.conn, false, xproto.Window(win), p, xproto.AtomAtom, 0, 1024).Reply()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", prop, err)
	}
	if reply.Format != 32 {
		return nil, nil
	}
	var names []string
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		names = append(names, x.atomName(xproto.Atom(xgb.Get32(reply.Value[i:]))))
	}
	return names, nil
}

func (x *XConn) Geometry(win uint32) (geom.Rect, error) {
	reply, err := xproto.GetGeometry(x.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return geom.Rect{}, err
	}
	return geom.R(int(reply.X), int(reply.Y), int(reply.Width), int(reply.Height)), nil
}

// Run reads X11 events until the connection closes or ctx ends. Events are
// handed to post, which must not block
func (x *XConn) Run(ctx context.Context, post func(Event)) error {
	go func() {
		<-ctx.Done()
		x.conn.Close()
	}()
	for {
		ev, xerr := x.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("X11 connection closed")
		}
		if xerr != nil {
			logrus.WithField("error", xerr.Error()).Debugln("X11 error")
			continue
		}
		if e := x.translate(ev); e != nil {
			post(e)
		}
	}
}

func (x *XConn) translate(ev xgb.Event) Event {
	switch e := ev.(type) {
	case xproto.ConfigureRequestEvent:
		return ConfigureRequest{
			Window:      uint32(e.Window),
			ValueMask:   e.ValueMask,
			X:           e.X,
			Y:           e.Y,
			Width:       e.Width,
			Height:      e.Height,
			BorderWidth: e.BorderWidth,
			Sibling:     uint32(e.Sibling),
			StackMode:   e.StackMode,
		}
	case xproto.MapRequestEvent:
		return MapRequest{Window: uint32(e.Window)}
	case xproto.UnmapNotifyEvent:
		return UnmapNotify{Window: uint32(e.Window)}
	case xproto.DestroyNotifyEvent:
		return DestroyNotify{Window: uint32(e.Window)}
	case xproto.PropertyNotifyEvent:
		return PropertyNotify{Window: uint32(e.Window), Atom: x.atomName(e.Atom)}
	case xproto.ClientMessageEvent:
		typ := x.atomName(e.Type)
		data := e.Data.Data32
		if typ == "_NET_WM_STATE" && len(data) >= 3 {
			msg := NetWMState{Window: uint32(e.Window), Action: data[0]}
			for _, a := range data[1:3] {
				if a != 0 {
					msg.States = append(msg.States, x.atomName(xproto.Atom(a)))
				}
			}
			return msg
		}
		msg := ClientMessage{Window: uint32(e.Window), Type: typ}
		copy(msg.Data[:], data)
		return msg
	}
	return nil
}
