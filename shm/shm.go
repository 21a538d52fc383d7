// Package shm maps client shared memory pools and exposes the buffers carved
// out of them as CPU readable images.
package shm

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"deedles.dev/ximage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/render"
)

// Format uses the wl_shm format codes
type Format uint32

const (
	FormatARGB8888 = Format(0)
	FormatXRGB8888 = Format(1)
)

var (
	ErrOutOfBounds  = errors.New("buffer exceeds pool")
	ErrPoolShrink   = errors.New("pools can only grow")
	ErrPoolReleased = errors.New("pool already destroyed")
)

// Pool is a mapping of a client's shared memory file
type Pool struct {
	data      []byte
	mapped    bool
	buffers   int
	destroyed bool
	file      *os.File
}

func mapFile(file *os.File, size int) (data []byte, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}
	cerr := sc.Control(func(fd uintptr) {
		data, err = unix.Mmap(int(fd), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	})
	if cerr != nil {
		return nil, cerr
	}
	return data, err
}

// NewPool maps size bytes of file read only
func NewPool(file *os.File, size int) (*Pool, error) {
	data, err := mapFile(file, size)
	if err != nil {
		return nil, fmt.Errorf("mapping shm pool: %w", err)
	}
	return &Pool{data: data, mapped: true, file: file}, nil
}

// NewPoolFromBytes wraps memory the compositor already owns
func NewPoolFromBytes(data []byte) *Pool {
	return &Pool{data: data}
}

func (p *Pool) Len() int {
	return len(p.data)
}

// Resize grows the mapping. Buffers created earlier see the new mapping
func (p *Pool) Resize(size int) error {
	if p.destroyed {
		return ErrPoolReleased
	}
	if size < len(p.data) {
		return ErrPoolShrink
	}
	if !p.mapped {
		grown := make([]byte, size)
		copy(grown, p.data)
		p.data = grown
		return nil
	}
	if err := unix.Munmap(p.data); err != nil {
		return fmt.Errorf("unmapping shm pool: %w", err)
	}
	data, err := mapFile(p.file, size)
	if err != nil {
		p.data = nil
		return fmt.Errorf("remapping shm pool: %w", err)
	}
	p.data = data
	return nil
}

// Destroy drops the client's reference. The mapping stays alive until every buffer is gone
func (p *Pool) Destroy() {
	p.destroyed = true
	p.maybeUnmap()
}

func (p *Pool) maybeUnmap() {
	if !p.destroyed || p.buffers > 0 || !p.mapped {
		return
	}
	if err := unix.Munmap(p.data); err != nil {
		logrus.WithError(err).Warningln("Failed to unmap shm pool")
	}
	p.mapped = false
	p.data = nil
	if p.file != nil {
		p.file.Close()
	}
}

// CreateBuffer carves a buffer out of the pool. onRelease is called when the compositor
// hands the buffer back to the client
func (p *Pool) CreateBuffer(offset, width, height, stride int, format Format, onRelease func()) (*Buffer, error) {
	if p.destroyed {
		return nil, ErrPoolReleased
	}
	if width <= 0 || height <= 0 || stride < width*4 || offset < 0 {
		return nil, fmt.Errorf("invalid buffer %dx%d stride %d offset %d", width, height, stride, offset)
	}
	if offset+stride*(height-1)+width*4 > len(p.data) {
		return nil, ErrOutOfBounds
	}
	p.buffers++
	return &Buffer{
		pool:      p,
		offset:    offset,
		width:     width,
		height:    height,
		stride:    stride,
		format:    format,
		onRelease: onRelease,
	}, nil
}

// Buffer is one wl_buffer backed by a shm pool
type Buffer struct {
	pool          *Pool
	offset        int
	width, height int
	stride        int
	format        Format
	onRelease     func()
	destroyed     bool
}

func (b *Buffer) Kind() render.BufferKind {
	return render.BufferShm
}

func (b *Buffer) Size() geom.Size {
	return geom.Size{W: b.width, H: b.height}
}

func (b *Buffer) Format() Format {
	return b.format
}

// Release tells the client the compositor is done reading
func (b *Buffer) Release() {
	if b.onRelease != nil {
		b.onRelease()
	}
}

// Destroy is called when the client destroys the wl_buffer
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.pool.buffers--
	b.pool.maybeUnmap()
}

// Image copies the buffer contents out of the pool
func (b *Buffer) Image() (image.Image, error) {
	if b.destroyed {
		return nil, ErrPoolReleased
	}
	rowLen := b.width * 4
	pix := make([]byte, rowLen*b.height)
	for y := 0; y < b.height; y++ {
		start := b.offset + y*b.stride
		if start+rowLen > len(b.pool.data) {
			return nil, ErrOutOfBounds
		}
		copy(pix[y*rowLen:], b.pool.data[start:start+rowLen])
	}
	img := &ximage.FormatImage{
		Format: ximage.ARGB8888,
		Rect:   image.Rect(0, 0, b.width, b.height),
		Pix:    pix,
	}
	switch b.format {
	case FormatARGB8888:
		return img, nil
	case FormatXRGB8888:
		return opaque{img}, nil
	default:
		return nil, fmt.Errorf("shm format %#x: %w", uint32(b.format), render.ErrUnsupportedFormat)
	}
}

// opaque ignores the alpha channel of an xrgb buffer
type opaque struct {
	image.Image
}

func (o opaque) At(x, y int) color.Color {
	r, g, b, _ := o.Image.At(x, y).RGBA()
	return color.RGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: 0xffff}
}
