package soft

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/render"
)

type opaqueBuffer struct {
	size geom.Size
}

func (b opaqueBuffer) Kind() render.BufferKind { return render.BufferDmabuf }
func (b opaqueBuffer) Size() geom.Size         { return b.size }
func (b opaqueBuffer) Release()                {}

func solid(w, h int, c color.Color) *render.MemoryBuffer {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return render.NewMemoryBuffer(img)
}

func TestRenderScalesIntoDestination(t *testing.T) {
	r := New(geom.Size{W: 20, H: 10})
	if err := r.Clear(color.Black); err != nil {
		t.Fatalf("Clear failed: %s", err)
	}
	tex, err := r.ImportBuffer(solid(2, 2, color.White), nil)
	if err != nil {
		t.Fatalf("Import failed: %s", err)
	}
	err = r.RenderTexture(tex, geom.R(0, 0, 2, 2), geom.RectF{X: 5, Y: 0, W: 10, H: 10}, geom.TransformNormal, 1)
	if err != nil {
		t.Fatalf("Render failed: %s", err)
	}
	if c := r.Frame().RGBAAt(10, 5); c.R != 255 || c.G != 255 {
		t.Errorf("Expected white inside destination, got %+v", c)
	}
	if c := r.Frame().RGBAAt(2, 5); c.R != 0 {
		t.Errorf("Expected black outside destination, got %+v", c)
	}
}

func TestImportRejectsGPUBuffers(t *testing.T) {
	r := New(geom.Size{W: 1, H: 1})
	_, err := r.ImportBuffer(opaqueBuffer{size: geom.Size{W: 1, H: 1}}, nil)
	if !errors.Is(err, render.ErrUnsupportedBuffer) {
		t.Errorf("Expected unsupported buffer error, got %v", err)
	}
}

func TestLostContext(t *testing.T) {
	r := New(geom.Size{W: 1, H: 1})
	r.Lose()
	if err := r.Clear(color.Black); !errors.Is(err, render.ErrContextLost) {
		t.Errorf("Expected context loss on clear, got %v", err)
	}
}

func TestTransformImageRotates(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{B: 255, A: 255})
	out := transformImage(img, geom.Transform90)
	if out.Bounds().Dx() != 1 || out.Bounds().Dy() != 2 {
		t.Fatalf("Expected 1x2 result, got %v", out.Bounds())
	}
	if out.RGBAAt(0, 0).R != 255 {
		t.Errorf("Expected red at the top after rotation, got %+v", out.RGBAAt(0, 0))
	}
	if out.RGBAAt(0, 1).B != 255 {
		t.Errorf("Expected blue at the bottom after rotation, got %+v", out.RGBAAt(0, 1))
	}
}
