package asset

import (
	"image"
	"image/color"
	"math"
	"sync"
)

const defaultSpriteSize = 128

var defaultSprite = sync.OnceValue(drawDefault)

// Default returns the built-in six-armed flake sprite. The image is shared and
// must not be modified.
func Default() image.Image {
	return defaultSprite()
}

type segment struct{ x0, y0, x1, y1 float64 }

func drawDefault() image.Image {
	const (
		size  = defaultSpriteSize
		c     = size / 2.0
		arm   = size/2.0 - 4
		width = 4.0
	)

	var segs []segment
	for i := 0; i < 6; i++ {
		a := float64(i) * math.Pi / 3
		sin, cos := math.Sincos(a)
		tipX, tipY := c+cos*arm, c+sin*arm
		segs = append(segs, segment{c, c, tipX, tipY})

		// Two pairs of branches along each arm.
		for _, at := range []float64{0.45, 0.7} {
			bx, by := c+cos*arm*at, c+sin*arm*at
			blen := arm * 0.3
			for _, side := range []float64{-1, 1} {
				ba := a + side*math.Pi/4
				bs, bc := math.Sincos(ba)
				segs = append(segs, segment{bx, by, bx + bc*blen, by + bs*blen})
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			d := math.Inf(1)
			for _, s := range segs {
				d = math.Min(d, distToSegment(px, py, s))
			}
			cov := width/2 + 0.5 - d
			if cov <= 0 {
				continue
			}
			if cov > 1 {
				cov = 1
			}
			a := uint8(cov * 0xff)
			img.SetRGBA(x, y, color.RGBA{R: a, G: a, B: a, A: a})
		}
	}
	return img
}

func distToSegment(px, py float64, s segment) float64 {
	dx, dy := s.x1-s.x0, s.y1-s.y0
	l2 := dx*dx + dy*dy
	t := 0.0
	if l2 > 0 {
		t = ((px-s.x0)*dx + (py-s.y0)*dy) / l2
		t = math.Max(0, math.Min(1, t))
	}
	return math.Hypot(px-(s.x0+t*dx), py-(s.y0+t*dy))
}
