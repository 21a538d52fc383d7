// Package soft is a CPU renderer. It backs the headless host, tool mode snapshots
// and tests, and implements the same contract a GPU backend would.
package soft

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/render"
)

var tintColor = color.NRGBA{R: 255, G: 0, B: 0, A: 48}

type texture struct {
	img *image.RGBA
	// Ids are only used for logging
	id uint64
}

func (t *texture) Size() geom.Size {
	b := t.img.Bounds()
	return geom.Size{W: b.Dx(), H: b.Dy()}
}

// Renderer draws into an in-memory RGBA frame
type Renderer struct {
	target *image.RGBA
	tint   bool
	lost   bool
	nextID uint64
	// Number of successful imports since creation
	Imports int
}

func New(size geom.Size) *Renderer {
	return &Renderer{target: image.NewRGBA(image.Rect(0, 0, size.W, size.H))}
}

// Resize replaces the frame. The content is not preserved
func (r *Renderer) Resize(size geom.Size) {
	if r.target.Bounds().Dx() == size.W && r.target.Bounds().Dy() == size.H {
		return
	}
	r.target = image.NewRGBA(image.Rect(0, 0, size.W, size.H))
}

// Lose marks the context as lost, every call fails from then on
func (r *Renderer) Lose() {
	r.lost = true
}

func (r *Renderer) Frame() *image.RGBA {
	return r.target
}

func (r *Renderer) SetTint(on bool) {
	r.tint = on
}

func (r *Renderer) Tint() bool {
	return r.tint
}

func (r *Renderer) ImportBuffer(buf render.Buffer, damage []geom.Rect) (render.Texture, error) {
	if r.lost {
		return nil, render.ErrContextLost
	}
	ib, ok := buf.(render.ImageBuffer)
	if !ok {
		return nil, fmt.Errorf("%s buffer: %w", buf.Kind(), render.ErrUnsupportedBuffer)
	}
	src, err := ib.Image()
	if err != nil {
		return nil, fmt.Errorf("reading buffer pixels: %w", err)
	}
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	r.nextID++
	r.Imports++
	logrus.WithFields(logrus.Fields{
		"texture": r.nextID,
		"size":    buf.Size(),
		"damage":  len(damage),
	}).Debugln("Imported buffer")
	return &texture{img: img, id: r.nextID}, nil
}

func (r *Renderer) RenderTexture(tex render.Texture, src geom.Rect, dst geom.RectF, transform geom.Transform, alpha float64) error {
	if r.lost {
		return render.ErrContextLost
	}
	t, ok := tex.(*texture)
	if !ok {
		return errors.New("texture was not created by the software renderer")
	}
	srcRect := image.Rect(src.X, src.Y, src.X+src.W, src.Y+src.H).Intersect(t.img.Bounds())
	if srcRect.Empty() {
		return nil
	}
	var content image.Image = t.img.SubImage(srcRect)
	if transform != geom.TransformNormal {
		content = transformImage(content, transform)
	}
	d := dst.Round()
	dstRect := image.Rect(d.X, d.Y, d.X+d.W, d.Y+d.H)
	if dstRect.Empty() {
		return nil
	}

	var opts *draw.Options
	if alpha < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha16{A: uint16(alpha * 0xffff)})}
	}
	draw.ApproxBiLinear.Scale(r.target, dstRect, content, content.Bounds(), draw.Over, opts)

	if r.tint {
		draw.Draw(r.target, dstRect, image.NewUniform(tintColor), image.Point{}, draw.Over)
	}
	return nil
}

func (r *Renderer) Clear(c color.Color) error {
	if r.lost {
		return render.ErrContextLost
	}
	draw.Draw(r.target, r.target.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}

// SavePNG writes the current frame to path
func (r *Renderer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, r.target)
}

// transformImage applies an output style transform to the pixels of img
func transformImage(img image.Image, t geom.Transform) *image.RGBA {
	b := img.Bounds()
	size := t.TransformSize(geom.Size{W: b.Dx(), H: b.Dy()})
	out := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	area := geom.PointF{X: float64(b.Dx()), Y: float64(b.Dy())}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			p := t.TransformPoint(geom.PointF{X: float64(x) + 0.5, Y: float64(y) + 0.5}, area).Floor()
			out.Set(p.X, p.Y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
