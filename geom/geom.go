// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package geom holds the integer and fractional geometry types shared by
// every part of the compositor.
package geom

import (
	"fmt"
	"math"
)

type (
	// A point in logical or physical integer coordinates
	Point struct {
		X, Y int
	}

	// A point with fractional coordinates, used for pointer locations and scaled placement
	PointF struct {
		X, Y float64
	}

	Size struct {
		W, H int
	}

	// An axis aligned rectangle. W and H are never negative for valid rectangles
	Rect struct {
		X, Y, W, H int
	}

	RectF struct {
		X, Y, W, H float64
	}
)

func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

func R(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Point) ToF() PointF {
	return PointF{X: float64(p.X), Y: float64(p.Y)}
}

// Scale converts a logical point to physical pixels, rounding to the nearest integer
func (p Point) Scale(scale float64) Point {
	return p.ToF().Mul(scale).Round()
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func (p PointF) Add(o PointF) PointF {
	return PointF{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p PointF) Sub(o PointF) PointF {
	return PointF{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p PointF) Mul(f float64) PointF {
	return PointF{X: p.X * f, Y: p.Y * f}
}

func (p PointF) Round() Point {
	return Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

func (p PointF) Floor() Point {
	return Point{X: int(math.Floor(p.X)), Y: int(math.Floor(p.Y))}
}

// Clamp keeps the point inside [r.X, r.X+r.W] x [r.Y, r.Y+r.H]
func (p PointF) Clamp(r Rect) PointF {
	return PointF{
		X: math.Max(float64(r.X), math.Min(p.X, float64(r.X+r.W))),
		Y: math.Max(float64(r.Y), math.Min(p.Y, float64(r.Y+r.H))),
	}
}

func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

func (s Size) ToF() PointF {
	return PointF{X: float64(s.W), Y: float64(s.H)}
}

// Scale multiplies both dimensions and rounds to the nearest pixel
func (s Size) Scale(scale float64) Size {
	return Size{W: int(math.Round(float64(s.W) * scale)), H: int(math.Round(float64(s.H) * scale))}
}

// Div divides both dimensions by an integer buffer scale
func (s Size) Div(scale int) Size {
	if scale <= 1 {
		return s
	}
	return Size{W: s.W / scale, H: s.H / scale}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

func (r Rect) Loc() Point {
	return Point{X: r.X, Y: r.Y}
}

func (r Rect) Size() Size {
	return Size{W: r.W, H: r.H}
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) Translate(p Point) Rect {
	return Rect{X: r.X + p.X, Y: r.Y + p.Y, W: r.W, H: r.H}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

func (r Rect) ContainsF(p PointF) bool {
	return p.X >= float64(r.X) && p.X < float64(r.X+r.W) &&
		p.Y >= float64(r.Y) && p.Y < float64(r.Y+r.H)
}

// Overlaps reports whether the two rectangles share at least one pixel
func (r Rect) Overlaps(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Union returns the smallest rectangle containing both. Empty rectangles are ignored
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) ToF() RectF {
	return RectF{X: float64(r.X), Y: float64(r.Y), W: float64(r.W), H: float64(r.H)}
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
}

func (r RectF) Loc() PointF {
	return PointF{X: r.X, Y: r.Y}
}

// Round snaps the rectangle edges to the nearest pixel
func (r RectF) Round() Rect {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.W))
	y1 := int(math.Round(r.Y + r.H))
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r RectF) String() string {
	return fmt.Sprintf("%gx%g+%g+%g", r.W, r.H, r.X, r.Y)
}

// Fit computes the uniform scale that makes src fit entirely inside dst and the
// offset that centres the scaled content on the axis with slack.
// A zero sized source yields a zero scale.
func Fit(src Size, dst RectF) (scale float64, offset PointF) {
	if src.Empty() || dst.W <= 0 || dst.H <= 0 {
		return 0, PointF{}
	}
	screenAspect := dst.W / dst.H
	windowAspect := float64(src.W) / float64(src.H)
	if screenAspect <= windowAspect {
		scale = dst.W / float64(src.W)
		offset.Y = (dst.H - float64(src.H)*scale) / 2
	} else {
		scale = dst.H / float64(src.H)
		offset.X = (dst.W - float64(src.W)*scale) / 2
	}
	return scale, offset
}
