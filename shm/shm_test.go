package shm

import (
	"errors"
	"image/color"
	"testing"

	"github.com/mstarongithub/consolation/render"
)

// Little endian argb8888: b, g, r, a
func pixel(r, g, b, a byte) []byte {
	return []byte{b, g, r, a}
}

func TestBufferImageHonoursStride(t *testing.T) {
	data := make([]byte, 0, 32)
	// row 0: two pixels + 8 bytes padding
	data = append(data, pixel(255, 0, 0, 255)...)
	data = append(data, pixel(0, 255, 0, 255)...)
	data = append(data, make([]byte, 8)...)
	// row 1
	data = append(data, pixel(0, 0, 255, 255)...)
	data = append(data, pixel(255, 255, 255, 255)...)
	data = append(data, make([]byte, 8)...)

	pool := NewPoolFromBytes(data)
	buf, err := pool.CreateBuffer(0, 2, 2, 16, FormatARGB8888, nil)
	if err != nil {
		t.Fatalf("CreateBuffer failed: %s", err)
	}
	img, err := buf.Image()
	if err != nil {
		t.Fatalf("Image failed: %s", err)
	}
	r, g, b, _ := img.At(0, 1).RGBA()
	if r != 0 || g != 0 || b != 0xffff {
		t.Errorf("Expected blue at (0,1), got %d %d %d", r, g, b)
	}
	r, g, _, _ = img.At(1, 0).RGBA()
	if r != 0 || g != 0xffff {
		t.Errorf("Expected green at (1,0), got %d %d", r, g)
	}
}

func TestXRGBIsOpaque(t *testing.T) {
	pool := NewPoolFromBytes(pixel(10, 20, 30, 0))
	buf, err := pool.CreateBuffer(0, 1, 1, 4, FormatXRGB8888, nil)
	if err != nil {
		t.Fatalf("CreateBuffer failed: %s", err)
	}
	img, err := buf.Image()
	if err != nil {
		t.Fatalf("Image failed: %s", err)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0xffff {
		t.Errorf("Expected opaque alpha, got %d", a)
	}
	if c, ok := img.At(0, 0).(color.RGBA64); !ok || c.A != 0xffff {
		t.Errorf("Unexpected colour %+v", img.At(0, 0))
	}
}

func TestCreateBufferOutOfBounds(t *testing.T) {
	pool := NewPoolFromBytes(make([]byte, 16))
	if _, err := pool.CreateBuffer(0, 2, 3, 8, FormatARGB8888, nil); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected out of bounds error, got %v", err)
	}
}

func TestUnknownFormatFailsImport(t *testing.T) {
	pool := NewPoolFromBytes(make([]byte, 4))
	buf, _ := pool.CreateBuffer(0, 1, 1, 4, Format(0x34325258), nil)
	if _, err := buf.Image(); !errors.Is(err, render.ErrUnsupportedFormat) {
		t.Errorf("Expected unsupported format, got %v", err)
	}
}

func TestReleaseCallsBack(t *testing.T) {
	released := 0
	pool := NewPoolFromBytes(make([]byte, 4))
	buf, _ := pool.CreateBuffer(0, 1, 1, 4, FormatARGB8888, func() { released++ })
	buf.Release()
	if released != 1 {
		t.Errorf("Expected one release, got %d", released)
	}
}

func TestPoolResizeOnlyGrows(t *testing.T) {
	pool := NewPoolFromBytes(make([]byte, 8))
	if err := pool.Resize(4); !errors.Is(err, ErrPoolShrink) {
		t.Errorf("Expected shrink error, got %v", err)
	}
	if err := pool.Resize(16); err != nil || pool.Len() != 16 {
		t.Errorf("Resize to 16 failed: %v (len %d)", err, pool.Len())
	}
}
