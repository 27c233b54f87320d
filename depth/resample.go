package depth

import "github.com/pkg/errors"

// ResampleMethod selects how Resample fills the output grid.
type ResampleMethod int

const (
	// ResampleNearest copies the nearest source pixel. Depth values pass
	// through unchanged, so geometry derived from the result stays honest.
	ResampleNearest ResampleMethod = iota
	// ResampleBilinear blends the four surrounding pixels. Blended range
	// values are fine for display but wrong for geometry, so this is only
	// for visualization paths.
	ResampleBilinear
)

func (m ResampleMethod) String() string {
	switch m {
	case ResampleNearest:
		return "nearest"
	case ResampleBilinear:
		return "bilinear"
	default:
		return "unknown"
	}
}

// Resample returns a copy of the frame scaled to the given grid size.
// Resampling changes which pixels exist, never the meaning of a depth value.
func (f *Frame) Resample(width, height int, method ResampleMethod) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("cannot resample to %dx%d", width, height)
	}
	if width == f.width && height == f.height {
		return f.Clone(), nil
	}
	switch method {
	case ResampleNearest:
		return f.resampleNearest(width, height), nil
	case ResampleBilinear:
		return f.resampleBilinear(width, height), nil
	default:
		return nil, errors.Errorf("unknown resample method %d", method)
	}
}

func (f *Frame) resampleNearest(width, height int) *Frame {
	out := NewEmptyFrame(width, height)
	sx := float64(f.width) / float64(width)
	sy := float64(f.height) / float64(height)
	for y := 0; y < height; y++ {
		srcY := clampInt(int((float64(y)+0.5)*sy), 0, f.height-1)
		for x := 0; x < width; x++ {
			srcX := clampInt(int((float64(x)+0.5)*sx), 0, f.width-1)
			out.Set(x, y, f.At(srcX, srcY))
		}
	}
	return out
}

func (f *Frame) resampleBilinear(width, height int) *Frame {
	out := NewEmptyFrame(width, height)
	sx := float64(f.width) / float64(width)
	sy := float64(f.height) / float64(height)
	for y := 0; y < height; y++ {
		fy := (float64(y)+0.5)*sy - 0.5
		y0 := clampInt(int(fy), 0, f.height-1)
		y1 := clampInt(y0+1, 0, f.height-1)
		wy := fy - float64(y0)
		if wy < 0 {
			wy = 0
		}
		for x := 0; x < width; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			x0 := clampInt(int(fx), 0, f.width-1)
			x1 := clampInt(x0+1, 0, f.width-1)
			wx := fx - float64(x0)
			if wx < 0 {
				wx = 0
			}

			d00 := f.At(x0, y0)
			d10 := f.At(x1, y0)
			d01 := f.At(x0, y1)
			d11 := f.At(x1, y1)
			// a hole in any contributing pixel poisons the blend
			if d00 <= 0 || d10 <= 0 || d01 <= 0 || d11 <= 0 {
				continue
			}

			top := float64(d00)*(1-wx) + float64(d10)*wx
			bottom := float64(d01)*(1-wx) + float64(d11)*wx
			out.Set(x, y, float32(top*(1-wy)+bottom*wy))
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
