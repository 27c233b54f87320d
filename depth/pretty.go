package depth

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// ToPrettyPicture renders the frame as a false-color image for quick visual
// inspection. Depths are mapped onto a hue ramp between the frame's own
// min/max, clamped to [hardMin, hardMax] when those are positive. Pixels
// with no measurement stay transparent.
func (f *Frame) ToPrettyPicture(hardMin, hardMax float64) image.Image {
	min, max := f.MinMax()
	lo, hi := float64(min), float64(max)
	if hardMin > 0 && lo < hardMin {
		lo = hardMin
	}
	if hardMax > 0 && hi > hardMax {
		hi = hardMax
	}

	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			z := float64(f.At(x, y))
			if z <= 0 {
				continue
			}
			if z < lo {
				z = lo
			}
			if z > hi {
				z = hi
			}
			ratio := (z - lo) / span
			hue := 30 + 200.0*ratio
			img.Set(x, y, colorful.Hsv(hue, 1.0, 1.0))
		}
	}
	return img
}
