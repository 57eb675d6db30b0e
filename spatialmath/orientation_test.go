package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

// represent a 45 degree rotation around the x axis in the different representations.
var (
	th    = math.Pi / 4.
	aa45x = &R4AA{th, 1., 0., 0.}
	rm45x = &RotationMatrix{[9]float64{
		1, 0, 0,
		0, math.Cos(th), -math.Sin(th),
		0, math.Sin(th), math.Cos(th),
	}}
	ea45x = &EulerAngles{Pitch: 45, Yaw: 0, Roll: 0}
)

func TestIdentityRotation(t *testing.T) {
	identity := NewIdentityRotationMatrix()
	test.That(t, identity.AxisAngles(), test.ShouldResemble, NewR4AA())
	test.That(t, identity.EulerAngles(), test.ShouldResemble, &EulerAngles{})
}

func TestAxisAngles(t *testing.T) {
	test.That(t, RotationMatrixAlmostEqual(aa45x.RotationMatrix(), rm45x, 1e-12), test.ShouldBeTrue)
	ea := aa45x.RotationMatrix().EulerAngles()
	test.That(t, ea.Pitch, test.ShouldAlmostEqual, ea45x.Pitch)
	test.That(t, ea.Yaw, test.ShouldAlmostEqual, ea45x.Yaw)
	test.That(t, ea.Roll, test.ShouldAlmostEqual, ea45x.Roll)

	back := rm45x.AxisAngles()
	test.That(t, back.Theta, test.ShouldAlmostEqual, aa45x.Theta)
	test.That(t, back.RX, test.ShouldAlmostEqual, aa45x.RX)
	test.That(t, back.RY, test.ShouldAlmostEqual, aa45x.RY)
	test.That(t, back.RZ, test.ShouldAlmostEqual, aa45x.RZ)
}

func TestR3R4RoundTrip(t *testing.T) {
	for _, rvec := range []r3.Vector{
		{X: 0.1, Y: -0.2, Z: 0.3},
		{X: 0, Y: 0, Z: 2.5},
		{X: -1.2, Y: 0.4, Z: 0.05},
		{X: 0, Y: math.Pi, Z: 0},
		{X: math.Pi / math.Sqrt(2), Y: -math.Pi / math.Sqrt(2), Z: 0},
		{X: 0, Y: 0, Z: math.Pi - 1e-7},
		{X: 1e-7, Y: -2e-7, Z: 0},
		{X: 2, Y: -1.5, Z: 0.7},
	} {
		rm := R3ToR4(rvec).RotationMatrix()
		test.That(t, rm.IsOrthonormal(1e-12), test.ShouldBeTrue)
		aa := RotationMatrixToR4AA(rm)
		test.That(t, aa.Theta, test.ShouldAlmostEqual, rvec.Norm(), 1e-12)
		back := aa.RotationMatrix()
		test.That(t, RotationMatrixAlmostEqual(rm, back, 1e-12), test.ShouldBeTrue)
	}
	test.That(t, R3ToR4(r3.Vector{}), test.ShouldResemble, NewR4AA())
	test.That(t, RotationMatrixToR4AA(NewIdentityRotationMatrix()), test.ShouldResemble, NewR4AA())

	// past 90 degrees the axis comes from the symmetric part; the sign must still follow the rotation
	aa := RotationMatrixToR4AA(R3ToR4(r3.Vector{X: 0, Y: 0, Z: -(math.Pi - 1e-7)}).RotationMatrix())
	test.That(t, aa.RZ, test.ShouldAlmostEqual, -1, 1e-12)
	test.That(t, aa.RX, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, aa.RY, test.ShouldAlmostEqual, 0, 1e-12)
}

func TestRotationMatrixRowsAndCols(t *testing.T) {
	tr := rm45x.Transpose()
	for i := 0; i < 3; i++ {
		test.That(t, rm45x.Row(i), test.ShouldResemble, tr.Col(i))
		test.That(t, rm45x.Col(i), test.ShouldResemble, tr.Row(i))
	}
	test.That(t, rm45x.Col(0), test.ShouldResemble, r3.Vector{X: 1})
}

func TestNearestRotationMatrix(t *testing.T) {
	noisy := rm45x.Dense()
	noisy.Set(0, 1, 0.01)
	noisy.Scale(3, noisy)
	rm, err := NearestRotationMatrix(noisy)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rm.IsOrthonormal(1e-9), test.ShouldBeTrue)
	test.That(t, RotationMatrixAlmostEqual(rm, rm45x, 1e-2), test.ShouldBeTrue)

	_, err = NewRotationMatrix([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPose(t *testing.T) {
	pose := NewPoseFromRotationVector(r3.Vector{X: 0, Y: 0, Z: math.Pi / 2}, r3.Vector{X: 0, Y: 0, Z: 1})
	pt := pose.Transform(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, pt.X, test.ShouldAlmostEqual, 0)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 1)
	test.That(t, pt.Z, test.ShouldAlmostEqual, 1)
	test.That(t, pose.Distance(), test.ShouldAlmostEqual, 1)
	test.That(t, pose.RotationVector().Z, test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, pose.String(), test.ShouldContainSubstring, "t=(0.0000, 0.0000, 1.0000)")

	other := NewPose(r3.Vector{X: 0, Y: 0, Z: 1.0005}, pose.Rotation)
	test.That(t, PoseAlmostEqual(pose, other, 1e-3, 1e-9), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(pose, other, 1e-4, 1e-9), test.ShouldBeFalse)
}
