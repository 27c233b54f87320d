package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// EulerAngles are three angles in radians representing an orientation as
// successive rotations about the Z (yaw), Y (pitch), and X (roll) axes.
// This matches the attitude convention of the scanner's motion logs.
type EulerAngles struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// NewEulerAngles returns an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{}
}

// Quaternion returns the orientation as a quaternion.
func (ea *EulerAngles) Quaternion() quat.Number {
	cy := math.Cos(ea.Yaw / 2)
	sy := math.Sin(ea.Yaw / 2)
	cp := math.Cos(ea.Pitch / 2)
	sp := math.Sin(ea.Pitch / 2)
	cr := math.Cos(ea.Roll / 2)
	sr := math.Sin(ea.Roll / 2)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// QuatToEulerAngles converts a quaternion to the ZYX Euler angle convention.
func QuatToEulerAngles(q quat.Number) *EulerAngles {
	angles := EulerAngles{}

	sinp := 2 * (q.Real*q.Jmag - q.Kmag*q.Imag)
	if math.Abs(sinp) >= 1 {
		// gimbal lock
		angles.Pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		angles.Pitch = math.Asin(sinp)
	}

	sinrCosp := 2 * (q.Real*q.Imag + q.Jmag*q.Kmag)
	cosrCosp := 1 - 2*(q.Imag*q.Imag+q.Jmag*q.Jmag)
	angles.Roll = math.Atan2(sinrCosp, cosrCosp)

	sinyCosp := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosyCosp := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	angles.Yaw = math.Atan2(sinyCosp, cosyCosp)

	return &angles
}
