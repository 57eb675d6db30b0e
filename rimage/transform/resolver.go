package transform

import (
	"github.com/pkg/errors"

	"go.viam.com/tagpose/logging"
)

// CameraModelResolver produces the CameraModel for the current frame size. The model is built on
// the first frame, reused while the frame size is unchanged and rebuilt when it changes. It is not
// safe for concurrent use; the frame loop owns it.
type CameraModelResolver struct {
	calibration *Calibration
	source      string
	logger      logging.Logger

	model *CameraModel
}

// NewCameraModelResolver returns a resolver using calibration, which may be nil to always
// synthesize an approximate model. source names where the calibration came from, for logging.
func NewCameraModelResolver(calibration *Calibration, source string, logger logging.Logger) *CameraModelResolver {
	return &CameraModelResolver{calibration: calibration, source: source, logger: logger}
}

// NewCameraModelResolverFromPaths probes paths for a calibration file and loads the first one
// found. A missing file yields an uncalibrated resolver; a malformed one is an error.
func NewCameraModelResolverFromPaths(paths []string, logger logging.Logger) (*CameraModelResolver, error) {
	path, ok := LocateCalibration(paths)
	if !ok {
		logger.Infow("no calibration file found, using approximate intrinsics", "candidates", paths)
		return NewCameraModelResolver(nil, "", logger), nil
	}
	calib, err := LoadCalibration(path)
	if err != nil {
		return nil, err
	}
	logger.Infow("loaded camera calibration", "path", path, "dist_coeffs", len(calib.DistCoeffs))
	return NewCameraModelResolver(calib, path, logger), nil
}

// Calibrated reports whether models come from a calibration file.
func (r *CameraModelResolver) Calibrated() bool {
	return r.calibration != nil
}

// Source returns the calibration file path, or "" when uncalibrated.
func (r *CameraModelResolver) Source() string {
	return r.source
}

// Resolve returns the camera model for frames of width x height.
func (r *CameraModelResolver) Resolve(width, height int) (*CameraModel, error) {
	if r.model != nil && r.model.Width == width && r.model.Height == height {
		return r.model, nil
	}
	if r.model != nil {
		r.logger.Infow("frame size changed, rebuilding camera model",
			"old_width", r.model.Width, "old_height", r.model.Height, "width", width, "height", height)
	}
	r.model = nil

	var (
		model *CameraModel
		err   error
	)
	if r.calibration != nil {
		if !r.calibration.MatchesSize(width, height) {
			r.logger.Warnw("calibration image size differs from frame size, using camera matrix as is",
				"calibration_size", r.calibration.ImageSize, "width", width, "height", height)
		}
		model, err = r.calibration.CameraModel(width, height)
		if err != nil {
			return nil, errors.Wrapf(err, "calibration %q", r.source)
		}
	} else {
		model, err = NewApproximateCameraModel(width, height)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot approximate intrinsics for %dx%d frames", width, height)
		}
	}
	r.logger.Debugw("resolved camera model", "model", model.String())
	r.model = model
	return model, nil
}

// Reload reads the calibration file again and drops the cached model. It is a no-op for an
// uncalibrated resolver. On error the current calibration is kept.
func (r *CameraModelResolver) Reload() error {
	if r.calibration == nil {
		return nil
	}
	calib, err := LoadCalibration(r.source)
	if err != nil {
		return err
	}
	r.calibration = calib
	r.model = nil
	r.logger.Infow("reloaded camera calibration", "path", r.source)
	return nil
}

// Reset drops the cached model so the next Resolve rebuilds it.
func (r *CameraModelResolver) Reset() {
	r.model = nil
}
