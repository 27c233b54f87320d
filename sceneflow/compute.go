package sceneflow

import (
	"github.com/golang/geo/r2"

	"github.com/viam-labs/roboclip/camera"
	"github.com/viam-labs/roboclip/depth"
	"github.com/viam-labs/roboclip/spatialmath"
)

// Compute projects the scene observed in a depth frame into a second camera
// pose and returns where each pixel lands, expressed as a displacement from
// its source position. pose1 and pose2 map each camera's frame into the world
// frame. Pixels without valid depth, and pixels whose reprojection falls at
// or behind the second camera's image plane, have no correspondence.
func Compute(
	d *depth.Frame,
	pose1, pose2 spatialmath.Pose,
	intrinsics *camera.Intrinsics,
) (*FlowField, error) {
	grid, err := intrinsics.UnprojectDepth(d)
	if err != nil {
		return nil, err
	}

	// world = pose1 * cam1, cam2 = inv(pose2) * world
	camToCam := pose2.Inverse().Compose(pose1)
	grid.TransformInto(camToCam, grid)

	field := NewEmptyFlowField(d.Width(), d.Height())
	for y := 0; y < d.Height(); y++ {
		for x := 0; x < d.Width(); x++ {
			if !d.Valid(x, y) {
				continue
			}
			pt := grid.At(x, y)
			if pt.Z <= 0 {
				continue
			}
			u, v := intrinsics.PointToPixel(pt.X, pt.Y, pt.Z)
			field.Set(x, y, r2.Point{X: u - float64(x), Y: v - float64(y)})
		}
	}
	return field, nil
}
