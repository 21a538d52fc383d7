package render

import (
	"image"

	"github.com/mstarongithub/consolation/geom"
)

// MemoryBuffer wraps compositor generated pixels so they can go through ImportBuffer
type MemoryBuffer struct {
	Img image.Image
}

func NewMemoryBuffer(img image.Image) *MemoryBuffer {
	return &MemoryBuffer{Img: img}
}

func (b *MemoryBuffer) Kind() BufferKind {
	return BufferMemory
}

func (b *MemoryBuffer) Size() geom.Size {
	r := b.Img.Bounds()
	return geom.Size{W: r.Dx(), H: r.Dy()}
}

func (b *MemoryBuffer) Release() {}

func (b *MemoryBuffer) Image() (image.Image, error) {
	return b.Img, nil
}
