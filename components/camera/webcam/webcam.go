//go:build cgo && !no_cgo

package webcam

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"go.viam.com/tagpose/logging"
)

// Webcam reads BGR frames from an OpenCV capture device. The returned frame is reused by the
// next Read.
type Webcam struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	index   int
	logger  logging.Logger
}

func openDevice(index int) (*gocv.VideoCapture, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, err
	}
	if !capture.IsOpened() {
		return nil, multierr.Combine(errors.New("device did not open"), capture.Close())
	}
	return capture, nil
}

// Open opens the first of indices that works. It fails with ErrDeviceUnavailable when none do.
func Open(indices []int, logger logging.Logger) (*Webcam, error) {
	capture, index, err := OpenFirst(indices, openDevice, logger)
	if err != nil {
		return nil, err
	}
	return &Webcam{capture: capture, frame: gocv.NewMat(), index: index, logger: logger.WithFields("index", index)}, nil
}

// Index is the device index that was opened.
func (w *Webcam) Index() int {
	return w.index
}

// Read grabs the next frame. A failed grab or an empty frame ends the stream with io.EOF.
func (w *Webcam) Read(_ context.Context) (gocv.Mat, error) {
	if ok := w.capture.Read(&w.frame); !ok || w.frame.Empty() {
		w.logger.Info("camera returned no frame")
		return gocv.Mat{}, io.EOF
	}
	return w.frame, nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	return multierr.Combine(w.frame.Close(), w.capture.Close())
}
