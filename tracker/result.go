package tracker

import (
	"github.com/golang/geo/r2"

	"go.viam.com/tagpose/rimage/transform"
	"go.viam.com/tagpose/spatialmath"
	"go.viam.com/tagpose/vision/fiducial"
	"go.viam.com/tagpose/vision/overlay"
)

// Outcome is what happened to a frame.
type Outcome int

const (
	// NoMarker means the detector found nothing. It is not an error.
	NoMarker Outcome = iota
	// EstimationFailed means a marker was selected but its pose could not be recovered.
	EstimationFailed
	// Tracked means a pose was recovered.
	Tracked
)

func (o Outcome) String() string {
	switch o {
	case NoMarker:
		return "no_marker"
	case EstimationFailed:
		return "estimation_failed"
	case Tracked:
		return "tracked"
	default:
		return "unknown"
	}
}

// Result is the outcome of one frame. Fields beyond Outcome and Camera are only meaningful for
// the outcomes noted.
type Result struct {
	Outcome Outcome
	Camera  *transform.CameraModel

	// Marker is the selected candidate, for EstimationFailed and Tracked.
	Marker fiducial.Candidate
	// Err is why estimation failed, for EstimationFailed.
	Err error

	// Pose, Angles and Center are set for Tracked.
	Pose   *spatialmath.Pose
	Angles *spatialmath.EulerAngles
	Center r2.Point
	// Tripod is valid for Tracked when HasTripod is set.
	Tripod    overlay.Tripod
	HasTripod bool
}
