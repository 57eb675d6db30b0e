package transform

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/tagpose/spatialmath"
)

func pointAt(x, y float64) r2.Point {
	return r2.Point{X: x, Y: y}
}

func squareObject(half float64) []r3.Vector {
	return []r3.Vector{{X: -half, Y: -half, Z: 0}, {X: half, Y: -half, Z: 0}, {X: half, Y: half, Z: 0}, {X: -half, Y: half, Z: 0}}
}

func testCameraModel(t *testing.T, coeffs []float64) *CameraModel {
	t.Helper()
	cm, err := NewCameraModel(640, 480, [9]float64{1000, 0, 320, 0, 1000, 240, 0, 0, 1}, coeffs)
	test.That(t, err, test.ShouldBeNil)
	return cm
}

func TestEstimatePoseEndToEnd(t *testing.T) {
	var _ PoseEstimator = &IterativePnP{}

	cm := testCameraModel(t, []float64{0, 0, 0, 0, 0})
	object := squareObject(0.05)
	truth := spatialmath.NewPose(r3.Vector{X: 0, Y: 0, Z: 1}, spatialmath.NewIdentityRotationMatrix())
	image := cm.ProjectPoints(truth, object)
	test.That(t, len(image), test.ShouldEqual, 4)
	test.That(t, image[0].X, test.ShouldAlmostEqual, 270.0)
	test.That(t, image[0].Y, test.ShouldAlmostEqual, 190.0)
	test.That(t, image[2].X, test.ShouldAlmostEqual, 370.0)
	test.That(t, image[2].Y, test.ShouldAlmostEqual, 290.0)

	pose, err := NewIterativePnP(DefaultMaxReprojectionError).EstimatePose(object, image, cm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Translation.X, test.ShouldAlmostEqual, 0.0, 1e-6)
	test.That(t, pose.Translation.Y, test.ShouldAlmostEqual, 0.0, 1e-6)
	test.That(t, pose.Translation.Z, test.ShouldAlmostEqual, 1.0, 1e-6)
	test.That(t, pose.Distance(), test.ShouldAlmostEqual, 1.0, 1e-6)

	ea := pose.EulerAngles()
	test.That(t, ea.Pitch, test.ShouldAlmostEqual, 0.0, 1e-4)
	test.That(t, ea.Yaw, test.ShouldAlmostEqual, 0.0, 1e-4)
	test.That(t, ea.Roll, test.ShouldAlmostEqual, 0.0, 1e-4)
}

func TestEstimatePoseSynthetic(t *testing.T) {
	object := squareObject(0.05)
	for _, tc := range []struct {
		name   string
		coeffs []float64
		rvec   r3.Vector
		t      r3.Vector
	}{
		{"fronto parallel", nil, r3.Vector{}, r3.Vector{X: 0.1, Y: -0.05, Z: 0.7}},
		{"tilted", nil, r3.Vector{X: 0.3, Y: -0.2, Z: 0.1}, r3.Vector{X: 0.05, Y: -0.03, Z: 0.8}},
		{"rolled", nil, r3.Vector{X: 0, Y: 0, Z: 2.5}, r3.Vector{X: -0.08, Y: 0.02, Z: 0.5}},
		{"steep", nil, r3.Vector{X: 0.9, Y: 0.2, Z: 0}, r3.Vector{X: 0, Y: 0, Z: 0.6}},
		{"distorted", []float64{0.1, -0.05, 0.001, -0.002, 0.01}, r3.Vector{X: 0.2, Y: -0.3, Z: 0.1}, r3.Vector{X: 0.05, Y: -0.03, Z: 0.8}},
		{"distorted off axis", []float64{-0.2, 0.05, 0, 0, -0.01}, r3.Vector{X: -0.1, Y: 0.4, Z: -0.3}, r3.Vector{X: -0.15, Y: 0.1, Z: 0.9}},
		{"rational", []float64{0.1, 0.01, 0.001, 0.001, 0.001, 0.05, 0.005, 0.0005}, r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}, r3.Vector{X: 0.02, Y: 0.02, Z: 1.2}},
		{"tilted sensor", []float64{0.1, 0.01, 0.001, 0.001, 0.001, 0, 0, 0, 0.001, 0, 0.001, 0, 0.02, -0.01}, r3.Vector{X: 0.2, Y: 0.1, Z: 0}, r3.Vector{X: 0, Y: 0.05, Z: 0.9}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cm := testCameraModel(t, tc.coeffs)
			truth := spatialmath.NewPoseFromRotationVector(tc.rvec, tc.t)
			image := cm.ProjectPoints(truth, object)
			test.That(t, len(image), test.ShouldEqual, 4)

			pose, err := NewIterativePnP(0).EstimatePose(object, image, cm)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, pose.Translation.Sub(truth.Translation).Norm(), test.ShouldBeLessThan, 1e-3)
			test.That(t, spatialmath.RotationMatrixAlmostEqual(pose.Rotation, truth.Rotation, 1e-3), test.ShouldBeTrue)
			test.That(t, cm.reprojectionRMS(pose, object, image), test.ShouldBeLessThan, 1e-3)
		})
	}
}

func TestEstimatePoseFailures(t *testing.T) {
	cm := testCameraModel(t, nil)
	object := squareObject(0.05)
	image := []r2.Point{{X: 270, Y: 190}, {X: 370, Y: 190}, {X: 370, Y: 290}, {X: 270, Y: 290}}
	pnp := NewIterativePnP(DefaultMaxReprojectionError)

	for _, tc := range []struct {
		name   string
		object []r3.Vector
		image  []r2.Point
	}{
		{"mismatched", object, image[:3]},
		{"too few", object[:3], image[:3]},
		{"collinear", object, []r2.Point{{X: 100, Y: 100}, {X: 200, Y: 200}, {X: 300, Y: 300}, {X: 400, Y: 400}}},
		{"coincident", object, []r2.Point{{X: 100, Y: 100}, {X: 100, Y: 100}, {X: 100, Y: 100}, {X: 100, Y: 100}}},
		{"not finite", object, []r2.Point{{X: 270, Y: 190}, {X: math.NaN(), Y: 190}, {X: 370, Y: 290}, {X: 270, Y: 290}}},
		{"not planar", []r3.Vector{{X: -0.05, Y: -0.05, Z: 0}, {X: 0.05, Y: -0.05, Z: 0.01}, {X: 0.05, Y: 0.05, Z: 0}, {X: -0.05, Y: 0.05, Z: 0}}, image},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pose, err := pnp.EstimatePose(tc.object, tc.image, cm)
			test.That(t, pose, test.ShouldBeNil)
			test.That(t, errors.Is(err, ErrPoseEstimationFailed), test.ShouldBeTrue)
		})
	}

	t.Run("invalid camera", func(t *testing.T) {
		bad := testCameraModel(t, nil)
		bad.Fx = 0
		_, err := pnp.EstimatePose(object, image, bad)
		test.That(t, errors.Is(err, ErrPoseEstimationFailed), test.ShouldBeTrue)
	})

	t.Run("reprojection error bound", func(t *testing.T) {
		truth := spatialmath.NewPoseFromRotationVector(r3.Vector{X: 0.3, Y: -0.2, Z: 0.1}, r3.Vector{X: 0.05, Y: -0.03, Z: 0.8})
		rounded := cm.ProjectPoints(truth, object)
		for i := range rounded {
			rounded[i] = pointAt(math.Round(rounded[i].X), math.Round(rounded[i].Y))
		}
		_, err := NewIterativePnP(1e-9).EstimatePose(object, rounded, cm)
		test.That(t, errors.Is(err, ErrPoseEstimationFailed), test.ShouldBeTrue)

		pose, err := pnp.EstimatePose(object, rounded, cm)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.Translation.Sub(truth.Translation).Norm(), test.ShouldBeLessThan, 0.02)
	})
}

func TestProjectPoints(t *testing.T) {
	cm := testCameraModel(t, nil)
	pose := spatialmath.NewPose(r3.Vector{X: 0, Y: 0, Z: 0.5}, spatialmath.NewIdentityRotationMatrix())

	pts := cm.ProjectPoints(pose, []r3.Vector{{}, {X: 0.05, Y: 0, Z: 0}, {X: 0, Y: 0.05, Z: 0}, {X: 0, Y: 0, Z: 0.05}})
	test.That(t, len(pts), test.ShouldEqual, 4)
	test.That(t, pts[0], test.ShouldResemble, pointAt(320, 240))
	test.That(t, pts[1].X, test.ShouldAlmostEqual, 420.0)
	test.That(t, pts[2].Y, test.ShouldAlmostEqual, 340.0)
	test.That(t, pts[3].X, test.ShouldAlmostEqual, 320.0)

	behind := spatialmath.NewPose(r3.Vector{X: 0, Y: 0, Z: 0.02}, spatialmath.NewIdentityRotationMatrix())
	test.That(t, cm.ProjectPoints(behind, []r3.Vector{{}, {X: 0, Y: 0, Z: -0.05}}), test.ShouldBeNil)
	test.That(t, cm.ProjectPoints(nil, []r3.Vector{{}}), test.ShouldBeNil)
}
