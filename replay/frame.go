package replay

import (
	"context"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viam-labs/roboclip/depth"
	"github.com/viam-labs/roboclip/imu"
	"github.com/viam-labs/roboclip/spatialmath"
)

// AlignedFrame is one step of the synchronized stream. Orientation and
// Translation place the viewing frame in the world and are always populated;
// the remaining fields carry whatever streams the session had near this step.
type AlignedFrame struct {
	// Step is the index on the primary clock.
	Step int
	// Time is the primary timestamp in seconds.
	Time float64

	// IMU is the inertial sample nearest to Time, nil when the session has
	// no inertial log.
	IMU *imu.Sample
	// Pose is the recorded device pose nearest to Time, nil when the
	// session has no pose source at all.
	Pose *spatialmath.Pose
	// PoseSynthesized is true when Pose came from synthesized identities
	// rather than a recorded trajectory.
	PoseSynthesized bool

	// Depth is the range image attached to this step, nil on steps the
	// rate cap skipped or when the read failed.
	Depth *depth.Frame
	// DepthTime is the capture timestamp of Depth, zero when Depth is nil.
	DepthTime float64

	// Orientation rotates the viewing frame into the world frame.
	Orientation quat.Number
	// Translation positions the viewing frame in the world frame. Zero
	// when no pose source exists.
	Translation r3.Vector
}

// HasDepth reports whether this step carries a range image.
func (f *AlignedFrame) HasDepth() bool {
	return f.Depth != nil
}

// A Sink receives aligned frames in step order. Frames are freshly allocated
// per step and never reused, so sinks may retain what they receive. Close is
// called exactly once after the final frame, whether or not the run
// succeeded.
type Sink interface {
	Consume(ctx context.Context, frame *AlignedFrame) error
	Close() error
}
