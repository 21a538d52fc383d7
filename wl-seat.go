package main

import (
	"image/color"

	"github.com/swaywm/go-wlroots/wlroots"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/input"
	"github.com/mstarongithub/consolation/render"
)

// seatKeyboard forwards what the input router decided to the wlroots seat
type seatKeyboard Server

func (k *seatKeyboard) Enter(t input.Target, _ uint32) {
	server := (*Server)(k)
	if surf, ok := server.wlSurface(t.Surface); ok {
		server.seat.NotifyKeyboardEnter(surf, server.seat.Keyboard())
	}
}

// Leave is implied by the next enter, wlroots tracks the focused surface
func (k *seatKeyboard) Leave(uint32) {}

func (k *seatKeyboard) Key(_, time, keycode uint32, state input.KeyState) {
	(*Server)(k).seat.NotifyKeyboardKey(time, keycode, wlroots.KeyState(state))
}

func (k *seatKeyboard) Modifiers(uint32, input.ModifierState) {
	seat := (*Server)(k).seat
	seat.NotifyKeyboardModifiers(seat.Keyboard())
}

type seatPointer Server

func (p *seatPointer) Enter(t input.Target, _ uint32) {
	server := (*Server)(p)
	if surf, ok := server.wlSurface(t.Surface); ok {
		server.seat.NotifyPointerEnter(surf, t.Local.X, t.Local.Y)
	}
}

func (p *seatPointer) Leave(uint32) {
	server := (*Server)(p)
	server.seat.ClearPointerFocus()
	server.cursor.SetXCursor(server.cursorMgr, "default")
}

func (p *seatPointer) Motion(time uint32, local geom.PointF) {
	(*Server)(p).seat.NotifyPointerMotion(time, local.X, local.Y)
}

// wlroots has no relative pointer protocol set up here
func (p *seatPointer) Relative(uint64, geom.PointF, geom.PointF) {}

func (p *seatPointer) Button(_, time, button uint32, state input.ButtonState) {
	(*Server)(p).seat.NotifyPointerButton(time, button, wlroots.ButtonState(state))
}

func (p *seatPointer) Axis(f input.AxisFrame) {
	seat := (*Server)(p).seat
	for axis := range f.Value {
		if !f.HasValue[axis] {
			continue
		}
		seat.NotifyPointerAxis(f.Time, wlroots.AxisOrientation(axis), f.Value[axis], f.V120[axis], wlroots.AxisSource(f.Source))
	}
}

func (p *seatPointer) Frame() {
	(*Server)(p).seat.NotifyPointerFrame()
}

// sceneMirror is the renderer the core sees under wlroots. The wlroots scene
// graph draws the real pixels, the core only needs texture sizes
type sceneMirror struct{}

type mirrorTexture geom.Size

func (t mirrorTexture) Size() geom.Size { return geom.Size(t) }

func (sceneMirror) ImportBuffer(buf render.Buffer, _ []geom.Rect) (render.Texture, error) {
	return mirrorTexture(buf.Size()), nil
}

func (sceneMirror) RenderTexture(render.Texture, geom.Rect, geom.RectF, geom.Transform, float64) error {
	return nil
}

func (sceneMirror) Clear(color.Color) error { return nil }

// proxyBuffer stands in for the client buffer wlroots keeps to itself
type proxyBuffer struct {
	size geom.Size
}

func (b *proxyBuffer) Kind() render.BufferKind { return render.BufferMemory }
func (b *proxyBuffer) Size() geom.Size         { return b.size }
func (b *proxyBuffer) Release()                {}
