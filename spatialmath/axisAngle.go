package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/tagpose/utils"
)

// See here for a thorough explanation: https://en.wikipedia.org/wiki/Axis%E2%80%93angle_representation
// Basic explanation: Imagine a 3d cartesian grid centered at 0,0,0, and a sphere of radius 1 centered at
// that same point. An orientation can be expressed by first specifying an axis, i.e. a line from the origin
// to a point on that sphere, represented by (rx, ry, rz), and a rotation around that axis, theta.
// These four numbers can be used as-is (R4), or they can be converted to R3, where theta is multiplied by each of
// the unit sphere components to give a vector whose length is theta and whose direction is the original axis.
// The R3 form is the "rotation vector" handed around by pose solvers.

// R4AA represents an R4 axis angle.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA creates an empty R4AA struct.
func NewR4AA() *R4AA {
	return &R4AA{Theta: 0, RX: 0, RY: 0, RZ: 1}
}

// RotationMatrix returns the orientation in rotation matrix representation using Rodrigues'
// formula R = I cosθ + (1 - cosθ) k kᵀ + sinθ [k]ₓ.
func (r4 *R4AA) RotationMatrix() *RotationMatrix {
	if r4.Theta == 0 {
		return NewIdentityRotationMatrix()
	}
	axis := *r4
	axis.Normalize()
	x, y, z := axis.RX, axis.RY, axis.RZ
	c := math.Cos(r4.Theta)
	s := math.Sin(r4.Theta)
	t := 1 - c
	return &RotationMatrix{[9]float64{
		c + t*x*x, t*x*y - s*z, t*x*z + s*y,
		t*x*y + s*z, c + t*y*y, t*y*z - s*x,
		t*x*z - s*y, t*y*z + s*x, c + t*z*z,
	}}
}

// ToR3 converts an R4 angle axis to R3.
func (r4 *R4AA) ToR3() r3.Vector {
	return r3.Vector{X: r4.RX * r4.Theta, Y: r4.RY * r4.Theta, Z: r4.RZ * r4.Theta}
}

// Normalize scales the x, y, and z components of a R4 axis angle to be on the unit sphere.
func (r4 *R4AA) Normalize() {
	norm := math.Sqrt(r4.RX*r4.RX + r4.RY*r4.RY + r4.RZ*r4.RZ)
	if norm == 0.0 { // prevent division by 0
		panic("cannot normalize R4AA, divide by zero")
	}
	r4.RX /= norm
	r4.RY /= norm
	r4.RZ /= norm
}

// R3ToR4 converts an R3 angle axis to R4.
func R3ToR4(aa r3.Vector) *R4AA {
	theta := aa.Norm()
	if theta == 0 {
		return NewR4AA()
	}
	return &R4AA{theta, aa.X / theta, aa.Y / theta, aa.Z / theta}
}

// RotationMatrixToR4AA recovers the axis and angle of a rotation matrix. The angle is in [0, π].
// With v = (R21-R12, R02-R20, R10-R01) = 2 sinθ k, the angle is atan2(|v|/2, (trace-1)/2), which
// keeps full precision near 0 and π where acos does not.
func RotationMatrixToR4AA(rm *RotationMatrix) *R4AA {
	v := r3.Vector{
		X: rm.At(2, 1) - rm.At(1, 2),
		Y: rm.At(0, 2) - rm.At(2, 0),
		Z: rm.At(1, 0) - rm.At(0, 1),
	}
	cosTheta := utils.Clamp((rm.At(0, 0)+rm.At(1, 1)+rm.At(2, 2)-1)/2, -1, 1)
	theta := math.Atan2(v.Norm()/2, cosTheta)
	if theta < 1e-12 {
		return NewR4AA()
	}
	if cosTheta >= 0 {
		return &R4AA{theta, v.X / v.Norm(), v.Y / v.Norm(), v.Z / v.Norm()}
	}

	// sinθ is small past 90°, so read the axis off the symmetric part (R+Rᵀ)/2 - cosθ I = (1-cosθ) k kᵀ,
	// taking the column with the largest diagonal term and the sign from v.
	b := func(i, j int) float64 {
		s := (rm.At(i, j) + rm.At(j, i)) / 2
		if i == j {
			s -= cosTheta
		}
		return s
	}
	col := 0
	for i := 1; i < 3; i++ {
		if b(i, i) > b(col, col) {
			col = i
		}
	}
	k := r3.Vector{X: b(0, col), Y: b(1, col), Z: b(2, col)}
	k = k.Mul(1 / k.Norm())
	if k.Dot(v) < 0 {
		k = k.Mul(-1)
	}
	return &R4AA{theta, k.X, k.Y, k.Z}
}
