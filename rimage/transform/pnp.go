package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/tagpose/spatialmath"
	"go.viam.com/tagpose/utils"
)

// ErrPoseEstimationFailed is returned when no trustworthy pose can be recovered from the
// correspondences. Callers must treat the pose as unavailable.
var ErrPoseEstimationFailed = errors.New("pose estimation failed")

const (
	// DefaultMaxReprojectionError is the default bound on the RMS reprojection error, in pixels.
	DefaultMaxReprojectionError = 2.0

	// behindCameraPenalty is the cost of a parameter vector that puts a point behind the camera.
	behindCameraPenalty = 1e12
	minPolygonArea      = 1e-9
)

// PoseEstimator recovers the pose of an object from corresponding object and image points.
type PoseEstimator interface {
	EstimatePose(object []r3.Vector, image []r2.Point, cm *CameraModel) (*spatialmath.Pose, error)
}

// IterativePnP solves the perspective-n-point problem for a planar object lying in the z = 0
// plane of its frame. An initial pose is decomposed from the homography between the object plane
// and the undistorted image, then refined by minimizing the squared pixel reprojection error
// through the full camera model.
type IterativePnP struct {
	// MaxReprojectionError is the largest acceptable RMS reprojection error in pixels. Zero uses
	// DefaultMaxReprojectionError.
	MaxReprojectionError float64
	// MaxIterations bounds the major iterations of the refinement. Zero uses 100.
	MaxIterations int
}

// NewIterativePnP returns an estimator rejecting poses whose RMS error exceeds maxErrPx pixels.
func NewIterativePnP(maxErrPx float64) *IterativePnP {
	return &IterativePnP{MaxReprojectionError: maxErrPx}
}

func poseEstimationError(msg string) error {
	return errors.Wrap(ErrPoseEstimationFailed, msg)
}

// EstimatePose implements PoseEstimator. object and image must be in the same corner order.
func (p *IterativePnP) EstimatePose(object []r3.Vector, image []r2.Point, cm *CameraModel) (*spatialmath.Pose, error) {
	if err := checkCorrespondences(object, image); err != nil {
		return nil, err
	}
	if err := cm.CheckValid(); err != nil {
		return nil, errors.Wrap(ErrPoseEstimationFailed, err.Error())
	}

	normalized := make([]r2.Point, len(image))
	for i, px := range image {
		normalized[i] = cm.UndistortPixel(px)
		if !utils.IsFinite(normalized[i].X, normalized[i].Y) {
			return nil, poseEstimationError("undistorted image point is not finite")
		}
	}

	initial, err := poseFromPlanarHomography(object, normalized)
	if err != nil {
		return nil, err
	}

	refined, err := p.refine(initial, object, image, cm)
	if err != nil {
		return nil, err
	}

	for _, pt := range object {
		if refined.Transform(pt).Z <= 0 {
			return nil, poseEstimationError("marker is behind the camera")
		}
	}
	maxErr := p.MaxReprojectionError
	if maxErr <= 0 {
		maxErr = DefaultMaxReprojectionError
	}
	if rms := cm.reprojectionRMS(refined, object, image); !(rms <= maxErr) {
		return nil, errors.Wrapf(ErrPoseEstimationFailed, "reprojection error %.3f px exceeds %.3f px", rms, maxErr)
	}
	return refined, nil
}

func checkCorrespondences(object []r3.Vector, image []r2.Point) error {
	if len(object) != len(image) {
		return errors.Wrapf(ErrPoseEstimationFailed, "%d object points but %d image points", len(object), len(image))
	}
	if len(object) < 4 {
		return errors.Wrapf(ErrPoseEstimationFailed, "need at least 4 correspondences, got %d", len(object))
	}
	for i := range object {
		if !utils.IsFinite(object[i].X, object[i].Y, object[i].Z, image[i].X, image[i].Y) {
			return errors.Wrapf(ErrPoseEstimationFailed, "correspondence %d is not finite", i)
		}
		if object[i].Z != 0 {
			return errors.Wrapf(ErrPoseEstimationFailed, "object point %d is not in the z = 0 plane", i)
		}
	}
	if math.Abs(polygonArea(image)) < minPolygonArea {
		return poseEstimationError("image points are degenerate")
	}
	return nil
}

// polygonArea is the signed shoelace area of pts.
func polygonArea(pts []r2.Point) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

// poseFromPlanarHomography decomposes H ~ [r1 r2 t], the homography from the object plane to
// normalized image coordinates, into a rotation and a translation in front of the camera.
func poseFromPlanarHomography(object []r3.Vector, normalized []r2.Point) (*spatialmath.Pose, error) {
	src := make([]r2.Point, len(object))
	for i, pt := range object {
		src[i] = r2.Point{X: pt.X, Y: pt.Y}
	}
	h, err := EstimateHomography(src, normalized)
	if err != nil {
		return nil, errors.Wrap(ErrPoseEstimationFailed, err.Error())
	}

	h1, h2, h3 := h.Column(0), h.Column(1), h.Column(2)
	n1, n2 := norm3(h1), norm3(h2)
	if n1 == 0 || n2 == 0 {
		return nil, poseEstimationError("homography cannot be decomposed")
	}
	lambda := 2 / (n1 + n2)
	if h3[2] < 0 {
		lambda = -lambda
	}
	r1 := scale3(h1, lambda)
	r2v := scale3(h2, lambda)
	t := scale3(h3, lambda)
	r3v := cross(r1, r2v)

	approx := mat.NewDense(3, 3, []float64{
		r1[0], r2v[0], r3v[0],
		r1[1], r2v[1], r3v[1],
		r1[2], r2v[2], r3v[2],
	})
	rot, err := spatialmath.NearestRotationMatrix(approx)
	if err != nil {
		return nil, errors.Wrap(ErrPoseEstimationFailed, err.Error())
	}
	pose := &spatialmath.Pose{Rotation: rot, Translation: r3.Vector{X: t[0], Y: t[1], Z: t[2]}}
	if !utils.IsFinite(t[0], t[1], t[2]) || t[2] <= 0 {
		return nil, poseEstimationError("homography places the marker behind the camera")
	}
	return pose, nil
}

// refine minimizes the sum of squared reprojection errors over (rotation vector, translation)
// with BFGS and central finite difference gradients.
func (p *IterativePnP) refine(
	initial *spatialmath.Pose, object []r3.Vector, image []r2.Point, cm *CameraModel,
) (*spatialmath.Pose, error) {
	cost := func(x []float64) float64 {
		pose := poseFromParameters(x)
		var sum float64
		for i, pt := range object {
			c := pose.Transform(pt)
			if c.Z <= 0 {
				return behindCameraPenalty
			}
			px, ok := cm.ProjectPoint(c)
			if !ok {
				return behindCameraPenalty
			}
			d := px.Sub(image[i])
			sum += d.X*d.X + d.Y*d.Y
		}
		return sum
	}
	gradSettings := &fd.Settings{Formula: fd.Central}
	problem := optimize.Problem{
		Func: cost,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, cost, x, gradSettings)
		},
	}

	iterations := p.MaxIterations
	if iterations <= 0 {
		iterations = 100
	}
	settings := &optimize.Settings{
		MajorIterations:   iterations,
		GradientThreshold: 1e-9,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 10,
		},
	}

	x0 := poseParameters(initial)
	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if result == nil {
		if err == nil {
			err = errors.New("optimizer returned no result")
		}
		return nil, errors.Wrap(ErrPoseEstimationFailed, err.Error())
	}
	// a line search that cannot improve on an exact start reports an error, so keep the better location
	best := x0
	if utils.IsFinite(result.X...) && result.F <= cost(x0) {
		best = result.X
	}
	if err != nil && !utils.IsFinite(cost(best)) {
		return nil, errors.Wrap(ErrPoseEstimationFailed, err.Error())
	}
	return poseFromParameters(best), nil
}

func poseParameters(pose *spatialmath.Pose) []float64 {
	rv := pose.RotationVector()
	t := pose.Translation
	return []float64{rv.X, rv.Y, rv.Z, t.X, t.Y, t.Z}
}

func poseFromParameters(x []float64) *spatialmath.Pose {
	return spatialmath.NewPoseFromRotationVector(
		r3.Vector{X: x[0], Y: x[1], Z: x[2]},
		r3.Vector{X: x[3], Y: x[4], Z: x[5]},
	)
}
