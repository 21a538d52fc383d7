// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package render defines the contract between the compositor core and whatever
// draws pixels, plus the draw operation value the scene composer produces.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/mstarongithub/consolation/geom"
)

var (
	// The renderer can't import this kind of buffer at all
	ErrUnsupportedBuffer = errors.New("unsupported buffer type")
	// The buffer uses a pixel format the renderer doesn't know
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	// The rendering context is gone. Nothing can be drawn anymore and the compositor has to stop
	ErrContextLost = errors.New("renderer context lost")
)

type BufferKind int

const (
	// Shared memory buffers are copied on import and can be handed back right away
	BufferShm = BufferKind(iota)
	// Dmabuf and similar buffers are sampled directly and must be held until replaced
	BufferDmabuf
	// Compositor owned pixels (menu labels, highlight boxes)
	BufferMemory
)

func (k BufferKind) String() string {
	switch k {
	case BufferShm:
		return "shm"
	case BufferDmabuf:
		return "dmabuf"
	case BufferMemory:
		return "memory"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Buffer is a client (or compositor) provided pixel buffer
type Buffer interface {
	Kind() BufferKind
	Size() geom.Size
	// Release hands the buffer back to its owner. Calling it more than once is a no-op
	Release()
}

// ImageBuffer is a buffer whose pixels can be read on the CPU
type ImageBuffer interface {
	Buffer
	Image() (image.Image, error)
}

// Texture is an imported buffer owned by the renderer
type Texture interface {
	Size() geom.Size
}

type Renderer interface {
	ImportBuffer(buf Buffer, damage []geom.Rect) (Texture, error)
	RenderTexture(tex Texture, src geom.Rect, dst geom.RectF, transform geom.Transform, alpha float64) error
	Clear(c color.Color) error
}

// Tinter is implemented by renderers that can overlay a debug tint on every texture
type Tinter interface {
	SetTint(on bool)
	Tint() bool
}

// DrawOp is one textured quad of a composed frame
type DrawOp struct {
	Texture   Texture
	Src       geom.Rect
	Dst       geom.RectF
	Transform geom.Transform
	Alpha     float64
	// Id of the surface this op was produced for, zero for compositor owned textures
	Surface uint64
}

// Execute clears the target and submits every draw op in order
func Execute(r Renderer, clear color.Color, ops []DrawOp) error {
	if err := r.Clear(clear); err != nil {
		return fmt.Errorf("clearing frame: %w", err)
	}
	for i, op := range ops {
		if op.Texture == nil || op.Alpha <= 0 {
			continue
		}
		if err := r.RenderTexture(op.Texture, op.Src, op.Dst, op.Transform, op.Alpha); err != nil {
			return fmt.Errorf("draw op %d: %w", i, err)
		}
	}
	return nil
}
