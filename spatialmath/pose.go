package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Pose is a rigid transform from an object frame into the camera frame: a point p in the object
// frame is at Rotation·p + Translation in the camera frame.
type Pose struct {
	Rotation    *RotationMatrix
	Translation r3.Vector
}

// NewPose returns a pose from a translation and a rotation.
func NewPose(translation r3.Vector, rm *RotationMatrix) *Pose {
	return &Pose{Rotation: rm, Translation: translation}
}

// NewPoseFromRotationVector returns a pose from a rotation vector (axis scaled by angle in
// radians) and a translation.
func NewPoseFromRotationVector(rvec, translation r3.Vector) *Pose {
	return &Pose{Rotation: R3ToR4(rvec).RotationMatrix(), Translation: translation}
}

// Transform maps a point from the object frame into the camera frame.
func (p *Pose) Transform(pt r3.Vector) r3.Vector {
	return p.Rotation.Apply(pt).Add(p.Translation)
}

// RotationVector returns the rotation as an axis scaled by its angle in radians.
func (p *Pose) RotationVector() r3.Vector {
	return p.Rotation.AxisAngles().ToR3()
}

// EulerAngles returns the display orientation of the pose.
func (p *Pose) EulerAngles() *EulerAngles {
	return p.Rotation.EulerAngles()
}

// Distance is the straight line distance from the camera centre to the object origin.
func (p *Pose) Distance() float64 {
	return p.Translation.Norm()
}

func (p *Pose) String() string {
	ea := p.EulerAngles()
	return fmt.Sprintf("t=(%.4f, %.4f, %.4f) rot=(%.2f, %.2f, %.2f)",
		p.Translation.X, p.Translation.Y, p.Translation.Z, ea.Pitch, ea.Yaw, ea.Roll)
}

// PoseAlmostEqual compares translations within translationTol and rotations entry by entry
// within rotationTol.
func PoseAlmostEqual(a, b *Pose, translationTol, rotationTol float64) bool {
	if a.Translation.Sub(b.Translation).Norm() > translationTol {
		return false
	}
	return RotationMatrixAlmostEqual(a.Rotation, b.Rotation, rotationTol)
}
