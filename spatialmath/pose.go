package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform in 3D space stored as a 4x4 homogeneous matrix.
// The zero value is not a valid pose; use NewZeroPose for the identity.
type Pose struct {
	mat mgl64.Mat4
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{mat: mgl64.Ident4()}
}

// NewPose builds a pose from a rotation and a translation.
func NewPose(rotation quat.Number, translation r3.Vector) Pose {
	q := Normalize(rotation)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	var m mgl64.Mat4
	m.Set(0, 0, 1-2*(y*y+z*z))
	m.Set(0, 1, 2*(x*y-z*w))
	m.Set(0, 2, 2*(x*z+y*w))
	m.Set(0, 3, translation.X)
	m.Set(1, 0, 2*(x*y+z*w))
	m.Set(1, 1, 1-2*(x*x+z*z))
	m.Set(1, 2, 2*(y*z-x*w))
	m.Set(1, 3, translation.Y)
	m.Set(2, 0, 2*(x*z-y*w))
	m.Set(2, 1, 2*(y*z+x*w))
	m.Set(2, 2, 1-2*(x*x+y*y))
	m.Set(2, 3, translation.Z)
	m.Set(3, 3, 1)
	return Pose{mat: m}
}

// NewPoseFromRows builds a pose from a row-major 4x4 matrix, as stored in
// recorded pose files. The bottom row must be [0 0 0 1].
func NewPoseFromRows(rows [4][4]float64) (Pose, error) {
	bottom := rows[3]
	if math.Abs(bottom[0]) > degenerateNormEps ||
		math.Abs(bottom[1]) > degenerateNormEps ||
		math.Abs(bottom[2]) > degenerateNormEps ||
		math.Abs(bottom[3]-1) > degenerateNormEps {
		return Pose{}, errors.Errorf("pose bottom row must be [0 0 0 1], got %v", bottom)
	}
	var m mgl64.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m.Set(r, c, rows[r][c])
		}
	}
	return Pose{mat: m}, nil
}

// Rows returns the pose as a row-major 4x4 matrix.
func (p Pose) Rows() [4][4]float64 {
	var rows [4][4]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			rows[r][c] = p.mat.At(r, c)
		}
	}
	return rows
}

// Compose returns the pose equivalent to applying o and then p, so that
// transforming a point by the result runs o first.
func (p Pose) Compose(o Pose) Pose {
	return Pose{mat: p.mat.Mul4(o.mat)}
}

// Inverse returns the pose mapping in the opposite direction. The rotation
// block is assumed orthonormal, so the inverse is the transpose of the
// rotation with a counter-rotated translation.
func (p Pose) Inverse() Pose {
	var inv mgl64.Mat4
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			inv.Set(r, c, p.mat.At(c, r))
		}
	}
	tx := p.mat.At(0, 3)
	ty := p.mat.At(1, 3)
	tz := p.mat.At(2, 3)
	for r := 0; r < 3; r++ {
		inv.Set(r, 3, -(inv.At(r, 0)*tx + inv.At(r, 1)*ty + inv.At(r, 2)*tz))
	}
	inv.Set(3, 3, 1)
	return Pose{mat: inv}
}

// TransformPoint applies the pose to a point.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	out := p.mat.Mul4x1(mgl64.Vec4{pt.X, pt.Y, pt.Z, 1})
	return r3.Vector{X: out.X(), Y: out.Y(), Z: out.Z()}
}

// Translation returns the translation column of the pose.
func (p Pose) Translation() r3.Vector {
	return r3.Vector{X: p.mat.At(0, 3), Y: p.mat.At(1, 3), Z: p.mat.At(2, 3)}
}

// Rotation returns the rotation block of the pose as a unit quaternion.
func (p Pose) Rotation() quat.Number {
	m00, m01, m02 := p.mat.At(0, 0), p.mat.At(0, 1), p.mat.At(0, 2)
	m10, m11, m12 := p.mat.At(1, 0), p.mat.At(1, 1), p.mat.At(1, 2)
	m20, m21, m22 := p.mat.At(2, 0), p.mat.At(2, 1), p.mat.At(2, 2)

	var q quat.Number
	tr := m00 + m11 + m22
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1.0) * 2
		q = quat.Number{Real: 0.25 * s, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1.0+m00-m11-m22) * 2
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1.0+m11-m00-m22) * 2
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := math.Sqrt(1.0+m22-m00-m11) * 2
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return Normalize(q)
}

// AlmostEqual reports whether two poses agree element-wise within tol.
func (p Pose) AlmostEqual(o Pose, tol float64) bool {
	return p.mat.ApproxEqualThreshold(o.mat, tol)
}

// IsIdentity reports whether the pose is the identity transform within tol.
func (p Pose) IsIdentity(tol float64) bool {
	return p.AlmostEqual(NewZeroPose(), tol)
}
