// Package webcam opens a local video device and reads frames from it.
package webcam

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tagpose/logging"
)

// ErrDeviceUnavailable is returned when none of the requested devices could be opened.
var ErrDeviceUnavailable = errors.New("no usable camera device")

// NewDeviceUnavailableError reports the indices that were tried and why each failed.
func NewDeviceUnavailableError(indices []int, err error) error {
	return errors.Wrapf(ErrDeviceUnavailable, "tried devices %v: %v", indices, err)
}

// OpenFirst calls open for each index in order and returns the first device that opens along
// with its index.
func OpenFirst[T any](indices []int, open func(index int) (T, error), logger logging.Logger) (T, int, error) {
	var zero T
	var errs error
	for _, index := range indices {
		devLogger := logger.WithFields("index", index)
		dev, err := open(index)
		if err == nil {
			devLogger.Info("camera opened")
			return dev, index, nil
		}
		devLogger.Warnw("cannot open camera", "error", err)
		errs = multierr.Combine(errs, errors.Wrapf(err, "device %d", index))
	}
	if errs == nil {
		errs = errors.New("no devices requested")
	}
	return zero, -1, NewDeviceUnavailableError(indices, errs)
}
