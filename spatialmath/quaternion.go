// Package spatialmath defines the rigid-body math used to carry scanner
// attitudes and poses between the sensor, device, and view frames.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternions whose norm falls below this are too degenerate to renormalize
// and collapse to the identity rotation instead.
const degenerateNormEps = 1e-6

// NewZeroRotation returns the identity quaternion.
func NewZeroRotation() quat.Number {
	return quat.Number{Real: 1}
}

// Norm returns the norm of the vector part of the quaternion, i.e. the sqrt
// of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Normalize scales q to unit length. A quaternion with near-zero norm cannot
// be meaningfully normalized and becomes the identity rotation.
func Normalize(q quat.Number) quat.Number {
	length := quat.Abs(q)
	if length < degenerateNormEps {
		return NewZeroRotation()
	}
	return quat.Scale(1/length, q)
}

// Compose returns the normalized Hamilton product a*b, the rotation produced
// by applying b first and then a. Every composition renormalizes so that
// long chains cannot drift away from unit length.
func Compose(a, b quat.Number) quat.Number {
	return Normalize(quat.Mul(a, b))
}

// RotateVector rotates v by the quaternion q using the sandwich product
// q*v*q^-1. q is normalized first so the conjugate serves as the inverse.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	qn := Normalize(q)
	pure := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rotated := quat.Mul(quat.Mul(qn, pure), quat.Conj(qn))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// QuatFromScalarLast builds a quaternion from the [x y z w] component order
// used by recordings on disk.
func QuatFromScalarLast(a [4]float64) quat.Number {
	return quat.Number{Real: a[3], Imag: a[0], Jmag: a[1], Kmag: a[2]}
}

// QuatToScalarLast returns the [x y z w] component order used by recordings
// on disk.
func QuatToScalarLast(q quat.Number) [4]float64 {
	return [4]float64{q.Imag, q.Jmag, q.Kmag, q.Real}
}

// Flip multiplies a quaternion by -1, representing the same orientation in
// the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// AngleBetween returns the angle in radians of the rotation taking a to b.
func AngleBetween(a, b quat.Number) float64 {
	rel := quat.Mul(Normalize(b), quat.Conj(Normalize(a)))
	return 2 * math.Atan2(Norm(rel), math.Abs(rel.Real))
}

// QuaternionAlmostEqual compares two quaternions as rotations, treating q and
// -q as the same orientation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return AngleBetween(a, b) < tol
}
