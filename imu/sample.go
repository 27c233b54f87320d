// Package imu models the scanner's inertial stream and the delimited motion
// log it is recorded in.
package imu

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viam-labs/roboclip/spatialmath"
)

// Sample is one inertial measurement. Attitude is the device orientation as
// ZYX Euler angles in radians, rates are rad/s, and accelerations are in g.
// Gravity is only present in the longer record variant.
type Sample struct {
	Time         float64
	Attitude     spatialmath.EulerAngles
	RotationRate r3.Vector
	Acceleration r3.Vector
	Gravity      *r3.Vector
}

// WorldOrientation carries the sample's attitude through the given frame
// chain, yielding the orientation of the view frame in the world.
func (s *Sample) WorldOrientation(chain *spatialmath.FrameChain) quat.Number {
	return chain.Apply(s.Attitude.Quaternion())
}

// AccelerationInFrame re-expresses the measured acceleration in the frame
// reached by rotating with q.
func (s *Sample) AccelerationInFrame(q quat.Number) r3.Vector {
	return spatialmath.RotateVector(q, s.Acceleration)
}

// RotationRateInFrame re-expresses the measured rotation rate in the frame
// reached by rotating with q.
func (s *Sample) RotationRateInFrame(q quat.Number) r3.Vector {
	return spatialmath.RotateVector(q, s.RotationRate)
}
