package scene

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mstarongithub/consolation/render"
)

const maxLabels = 64

var highlightColor = color.NRGBA{R: 90, G: 120, B: 200, A: 160}

// labelCache holds compositor owned textures. They belong to one renderer and are
// thrown away when another renderer shows up
type labelCache struct {
	owner  render.Renderer
	labels map[string]render.Texture
	hl     render.Texture
}

func newLabelCache() *labelCache {
	return &labelCache{labels: make(map[string]render.Texture)}
}

func (l *labelCache) reset(r render.Renderer) {
	if l.owner == r {
		return
	}
	l.owner = r
	l.labels = make(map[string]render.Texture)
	l.hl = nil
}

func (l *labelCache) importImage(r render.Renderer, img image.Image) (render.Texture, error) {
	tex, err := r.ImportBuffer(render.NewMemoryBuffer(img), nil)
	if err != nil {
		if errors.Is(err, render.ErrContextLost) {
			return nil, err
		}
		logrus.WithError(err).Warningln("Failed to import menu texture")
		return nil, nil
	}
	return tex, nil
}

func (l *labelCache) highlight(r render.Renderer) (render.Texture, error) {
	l.reset(r)
	if l.hl != nil {
		return l.hl, nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, highlightColor)
	tex, err := l.importImage(r, img)
	l.hl = tex
	return tex, err
}

func (l *labelCache) label(r render.Renderer, text string) (render.Texture, error) {
	l.reset(r)
	if tex, ok := l.labels[text]; ok {
		return tex, nil
	}
	if len(l.labels) >= maxLabels {
		l.labels = make(map[string]render.Texture)
	}
	tex, err := l.importImage(r, rasterize(text))
	if tex != nil {
		l.labels[text] = tex
	}
	return tex, err
}

// rasterize draws text in white onto a transparent image just large enough for it
func rasterize(text string) *image.RGBA {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face, Src: image.White}
	width := d.MeasureString(text).Ceil()
	if width == 0 {
		width = 1
	}
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	d.Dst = img
	d.Dot = fixed.Point26_6{X: 0, Y: metrics.Ascent}
	d.DrawString(text)
	return img
}
