package overlay

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/tagpose/rimage/transform"
	"go.viam.com/tagpose/spatialmath"
	"go.viam.com/tagpose/vision/fiducial"
)

// DefaultAxisLength is the length in meters of each drawn axis.
const DefaultAxisLength = 0.05

// Tripod is the image of the marker origin and of the tips of its three axes.
type Tripod struct {
	Origin, X, Y, Z r2.Point
}

// TripodPoints returns (0,0,0), (L,0,0), (0,L,0), (0,0,L) in the marker frame.
func TripodPoints(length float64) []r3.Vector {
	return []r3.Vector{
		{},
		{X: length},
		{Y: length},
		{Z: length},
	}
}

// ProjectTripod projects the tripod of the given axis length through the camera model. ok is
// false if any of the four points could not be projected, in which case nothing should be drawn.
func ProjectTripod(cm *transform.CameraModel, pose *spatialmath.Pose, length float64) (Tripod, bool) {
	pts := cm.ProjectPoints(pose, TripodPoints(length))
	if len(pts) != 4 {
		return Tripod{}, false
	}
	return Tripod{Origin: pts[0], X: pts[1], Y: pts[2], Z: pts[3]}, true
}

// MarkerCenter is the image-plane centroid of the marker corners.
func MarkerCenter(c fiducial.Candidate) r2.Point {
	return c.Centroid()
}
