// Package depth models the scanner's depth stream: float32 range images,
// their on-disk format, and resampling between grid sizes.
package depth

import (
	"math"

	"github.com/pkg/errors"
)

// Frame is a dense depth image. Values are meters; anything not strictly
// positive marks a pixel with no valid measurement. Data is stored row-major.
type Frame struct {
	width  int
	height int
	data   []float32
}

// NewEmptyFrame returns a zeroed (all invalid) frame of the given size.
func NewEmptyFrame(width, height int) *Frame {
	return &Frame{
		width:  width,
		height: height,
		data:   make([]float32, width*height),
	}
}

// NewFrame wraps existing row-major data in a frame. The slice is used
// directly, not copied.
func NewFrame(width, height int, data []float32) (*Frame, error) {
	if len(data) != width*height {
		return nil, errors.Errorf("depth data has %d elements, want %d (%dx%d)",
			len(data), width*height, width, height)
	}
	return &Frame{width: width, height: height, data: data}, nil
}

func (f *Frame) kxy(x, y int) int {
	return y*f.width + x
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.width
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.height
}

// At returns the depth in meters at (x, y).
func (f *Frame) At(x, y int) float32 {
	return f.data[f.kxy(x, y)]
}

// Set stores a depth value at (x, y).
func (f *Frame) Set(x, y int, v float32) {
	f.data[f.kxy(x, y)] = v
}

// Valid reports whether the pixel holds a usable measurement. NaN and
// nonpositive values are both invalid.
func (f *Frame) Valid(x, y int) bool {
	return f.At(x, y) > 0
}

// MinMax returns the smallest and largest valid depths in the frame. A frame
// with no valid pixels returns (0, 0).
func (f *Frame) MinMax() (float32, float32) {
	min := float32(math.Inf(1))
	max := float32(0)
	found := false
	for _, z := range f.data {
		if z <= 0 || math.IsNaN(float64(z)) {
			continue
		}
		found = true
		if z < min {
			min = z
		}
		if z > max {
			max = z
		}
	}
	if !found {
		return 0, 0
	}
	return min, max
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	data := make([]float32, len(f.data))
	copy(data, f.data)
	return &Frame{width: f.width, height: f.height, data: data}
}
