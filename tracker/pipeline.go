// Package tracker runs the per-frame marker pose pipeline and the frame loop around it.
package tracker

import (
	"github.com/pkg/errors"

	"go.viam.com/tagpose/logging"
	"go.viam.com/tagpose/rimage/transform"
	"go.viam.com/tagpose/vision/fiducial"
	"go.viam.com/tagpose/vision/overlay"
)

// Pipeline turns the candidates detected in a frame into a Result. It owns the camera model
// cache and must only be used from the frame loop goroutine.
type Pipeline struct {
	resolver   *transform.CameraModelResolver
	estimator  transform.PoseEstimator
	object     fiducial.ObjectModel
	axisLength float64
	logger     logging.Logger
	changes    ChangeNotifier
}

// ChangeNotifier reports, once per change, that the calibration file was modified.
type ChangeNotifier interface {
	Changed() bool
}

// NewPipeline returns a pipeline tracking markers of the given model. A non-positive axisLength
// uses overlay.DefaultAxisLength.
func NewPipeline(
	resolver *transform.CameraModelResolver,
	estimator transform.PoseEstimator,
	object fiducial.ObjectModel,
	axisLength float64,
	logger logging.Logger,
) *Pipeline {
	if axisLength <= 0 {
		axisLength = overlay.DefaultAxisLength
	}
	return &Pipeline{
		resolver:   resolver,
		estimator:  estimator,
		object:     object,
		axisLength: axisLength,
		logger:     logger,
	}
}

// Object returns the marker model being tracked.
func (p *Pipeline) Object() fiducial.ObjectModel {
	return p.object
}

// Calibrated reports whether the camera model comes from a calibration file.
func (p *Pipeline) Calibrated() bool {
	return p.resolver.Calibrated()
}

// Prime resolves the camera model for the given frame size ahead of the first frame so that a
// malformed calibration is reported before anything is shown.
func (p *Pipeline) Prime(width, height int) error {
	_, err := p.resolver.Resolve(width, height)
	return err
}

// WatchCalibration makes the pipeline reload the calibration file before the next frame whenever
// n reports a change. A calibration that fails to load is logged and the previous one is kept.
func (p *Pipeline) WatchCalibration(n ChangeNotifier) {
	p.changes = n
}

func (p *Pipeline) reloadIfChanged() {
	if p.changes == nil || !p.changes.Changed() {
		return
	}
	if err := p.resolver.Reload(); err != nil {
		p.logger.Warnw("cannot reload calibration, keeping the current one", "error", err)
	}
}

// ProcessFrame selects the largest candidate and recovers its pose. The returned error is fatal
// and only occurs when no camera model can be built; per-frame failures are reported in the
// Result.
func (p *Pipeline) ProcessFrame(width, height int, candidates []fiducial.Candidate) (Result, error) {
	p.reloadIfChanged()
	cm, err := p.resolver.Resolve(width, height)
	if err != nil {
		return Result{}, errors.Wrap(err, "cannot resolve camera model")
	}
	result := Result{Outcome: NoMarker, Camera: cm}

	marker, ok := fiducial.SelectLargest(candidates)
	if !ok {
		return result, nil
	}
	result.Marker = marker

	pose, err := p.estimator.EstimatePose(p.object.Points(), marker.ImagePoints(), cm)
	if err != nil {
		p.logger.Debugw("pose estimation failed", "id", marker.ID, "error", err)
		result.Outcome = EstimationFailed
		result.Err = err
		return result, nil
	}
	if pose == nil {
		result.Outcome = EstimationFailed
		result.Err = errors.Wrap(transform.ErrPoseEstimationFailed, "estimator returned no pose")
		return result, nil
	}

	result.Outcome = Tracked
	result.Pose = pose
	result.Angles = pose.EulerAngles()
	result.Center = overlay.MarkerCenter(marker)
	result.Tripod, result.HasTripod = overlay.ProjectTripod(cm, pose, p.axisLength)
	return result, nil
}
