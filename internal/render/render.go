// Package render paints the active snow flakes into an RGBA frame.
package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/1broseidon/flurry/internal/snow"
)

// Draw clears dst and composites sprite once per flake, in insertion order.
// Each copy is scaled by the flake's scale, rotated by its angle about the
// scaled sprite's center and centered on (x, y), then blended with draw.Over
// at the flake's alpha. flakes is only read.
func Draw(dst *image.RGBA, flakes []snow.Flake, sprite image.Image) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	if sprite == nil {
		return
	}

	sr := sprite.Bounds()
	if sr.Empty() {
		return
	}
	sw, sh := float64(sr.Dx()), float64(sr.Dy())
	reach := math.Hypot(sw, sh) / 2

	bounds := dst.Bounds()
	for _, f := range flakes {
		if f.Scale <= 0 || f.Alpha <= 0 {
			continue
		}
		// Skip flakes whose rotated footprint cannot touch the frame.
		r := reach * f.Scale
		if f.X+r < float64(bounds.Min.X) || f.X-r > float64(bounds.Max.X) ||
			f.Y+r < float64(bounds.Min.Y) || f.Y-r > float64(bounds.Max.Y) {
			continue
		}

		opts := &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: alpha8(f.Alpha)})}
		draw.BiLinear.Transform(dst, Transform(f, sr.Dx(), sr.Dy()), sprite, sr, draw.Over, opts)
	}
}

// Transform returns the source-to-destination matrix for one flake and a
// sprite of spriteW x spriteH pixels: scale, then rotate about the center of
// the scaled sprite, then translate so that center lands on (f.X, f.Y).
func Transform(f snow.Flake, spriteW, spriteH int) f64.Aff3 {
	s := f.Scale
	cx := float64(spriteW) * s / 2
	cy := float64(spriteH) * s / 2

	rad := f.Angle * math.Pi / 180
	sin, cos := math.Sincos(rad)

	return f64.Aff3{
		s * cos, -s * sin, f.X - (cos*cx - sin*cy),
		s * sin, s * cos, f.Y - (sin*cx + cos*cy),
	}
}

// Frame returns an RGBA image of w x h, reusing buf when it already has that
// size.
func Frame(buf *image.RGBA, w, h int) *image.RGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if buf != nil && buf.Rect.Dx() == w && buf.Rect.Dy() == h {
		return buf
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func alpha8(a float64) uint8 {
	if a >= 1 {
		return 0xff
	}
	return uint8(math.Round(a * 0xff))
}
