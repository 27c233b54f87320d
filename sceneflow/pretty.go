package sceneflow

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ToPrettyPicture renders the field with direction as hue and magnitude as
// brightness, the usual flow-inspection coloring. Displacements are scaled
// against maxMag, or against the field's own maximum when maxMag is not
// positive. Pixels without correspondence stay transparent.
func (ff *FlowField) ToPrettyPicture(maxMag float64) image.Image {
	if maxMag <= 0 {
		maxMag = ff.MaxMagnitude()
	}
	if maxMag <= 0 {
		maxMag = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, ff.width, ff.height))
	for y := 0; y < ff.height; y++ {
		for x := 0; x < ff.width; x++ {
			if !ff.Valid(x, y) {
				continue
			}
			d := ff.At(x, y)
			hue := math.Atan2(d.Y, d.X) * 180 / math.Pi
			if hue < 0 {
				hue += 360
			}
			value := d.Norm() / maxMag
			if value > 1 {
				value = 1
			}
			img.Set(x, y, colorful.Hsv(hue, 1.0, value))
		}
	}
	return img
}
