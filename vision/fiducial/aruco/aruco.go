//go:build cgo && !no_cgo

// Package aruco detects AprilTag 36h11 markers with the OpenCV ArUco module.
package aruco

import (
	"github.com/golang/geo/r2"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"go.viam.com/tagpose/logging"
	"go.viam.com/tagpose/vision/fiducial"
)

// Detector finds AprilTag 36h11 markers in BGR frames.
type Detector struct {
	detector gocv.ArucoDetector
	gray     gocv.Mat
	logger   logging.Logger
}

// NewDetector returns a detector using the AprilTag 36h11 dictionary with default parameters.
func NewDetector(logger logging.Logger) *Detector {
	dict := gocv.GetPredefinedDictionary(gocv.ArucoDictAprilTag_36h11)
	params := gocv.NewArucoDetectorParameters()
	return &Detector{
		detector: gocv.NewArucoDetectorWithParams(dict, params),
		gray:     gocv.NewMat(),
		logger:   logger,
	}
}

// Detect converts frame to gray and returns the markers found, in detector order. Markers
// without exactly four corners are dropped.
func (d *Detector) Detect(frame gocv.Mat) ([]fiducial.Candidate, error) {
	gocv.CvtColor(frame, &d.gray, gocv.ColorBGRToGray)
	corners, ids, _ := d.detector.DetectMarkers(d.gray)

	candidates := make([]fiducial.Candidate, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) {
			break
		}
		pts := make([]r2.Point, len(corners[i]))
		for j, p := range corners[i] {
			pts[j] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
		}
		c, err := fiducial.NewCandidate(id, pts)
		if err != nil {
			d.logger.Debugw("dropping marker", "error", err)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Close releases the OpenCV resources.
func (d *Detector) Close() error {
	return multierr.Combine(d.detector.Close(), d.gray.Close())
}
