package camera

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/viam-labs/roboclip/depth"
	"github.com/viam-labs/roboclip/spatialmath"
)

// PointGrid is a dense grid of 3D points, one per pixel of the depth frame it
// was unprojected from. The grid keeps depth's row/column structure so flow
// computations can walk both in lockstep.
type PointGrid struct {
	width  int
	height int
	points []r3.Vector
}

// NewEmptyPointGrid returns a grid of zero points.
func NewEmptyPointGrid(width, height int) *PointGrid {
	return &PointGrid{
		width:  width,
		height: height,
		points: make([]r3.Vector, width*height),
	}
}

// Width returns the grid width in pixels.
func (g *PointGrid) Width() int {
	return g.width
}

// Height returns the grid height in pixels.
func (g *PointGrid) Height() int {
	return g.height
}

// At returns the point unprojected from pixel (x, y).
func (g *PointGrid) At(x, y int) r3.Vector {
	return g.points[y*g.width+x]
}

// Set stores a point at pixel (x, y).
func (g *PointGrid) Set(x, y int, p r3.Vector) {
	g.points[y*g.width+x] = p
}

// UnprojectDepth lifts every pixel of a depth frame into the camera's 3D
// frame. Every pixel is unprojected, including invalid ones; masking happens
// downstream where the depth validity is still known.
func (params *Intrinsics) UnprojectDepth(f *depth.Frame) (*PointGrid, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if f.Width() != params.Width || f.Height() != params.Height {
		return nil, errors.Errorf("depth dimension and intrinsics don't match Depth(%d,%d) != Intrinsics(%d,%d)",
			f.Width(), f.Height(), params.Width, params.Height)
	}
	grid := NewEmptyPointGrid(f.Width(), f.Height())
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			px, py, pz := params.PixelToPoint(float64(x), float64(y), float64(f.At(x, y)))
			grid.Set(x, y, r3.Vector{X: px, Y: py, Z: pz})
		}
	}
	return grid, nil
}

// Transform returns a new grid with every point carried through the pose.
func (g *PointGrid) Transform(p spatialmath.Pose) *PointGrid {
	out := NewEmptyPointGrid(g.width, g.height)
	g.TransformInto(p, out)
	return out
}

// TransformInto writes the transformed grid into dst, reusing its storage.
// dst must have the same dimensions as g.
func (g *PointGrid) TransformInto(p spatialmath.Pose, dst *PointGrid) {
	for i, pt := range g.points {
		dst.points[i] = p.TransformPoint(pt)
	}
}
