package tracker

import (
	"fmt"

	"github.com/golang/geo/r2"

	"go.viam.com/tagpose/vision/fiducial"
	"go.viam.com/tagpose/vision/overlay"
)

// Status lines shown when no pose is available.
const (
	StatusNoMarker         = "No marker detected"
	StatusEstimationFailed = "Pose estimation failed"
)

const (
	textLeft       = 10
	headerTop      = 25
	headerSpacing  = 20
	headerScale    = 0.55
	infoTop        = 120
	infoSpacing    = 24
	infoScale      = 0.6
	statusTop      = 130
	statusScale    = 0.7
	lineThickness  = 2
	centerRadius   = 4
	headerTitle    = "AprilTag Pose Detector"
	calibratedText = "Calibrated: YES"
	approxText     = "Calibrated: NO (approx intrinsics)"
)

// Annotate describes what to draw over the frame that produced r.
func (p *Pipeline) Annotate(r Result) *overlay.Annotation {
	calibrated := p.Calibrated()
	if r.Camera != nil {
		calibrated = r.Camera.Calibrated
	}
	return BuildAnnotation(r, p.object.TagSize(), calibrated)
}

// BuildAnnotation draws a header, then for a tracked marker its outline, axes, center and pose
// readout, or a red status line otherwise.
func BuildAnnotation(r Result, tagSize float64, calibrated bool) *overlay.Annotation {
	a := &overlay.Annotation{}

	calib := approxText
	if calibrated {
		calib = calibratedText
	}
	header := []string{
		headerTitle,
		fmt.Sprintf("Tag size: %.3f m | Family: %s", tagSize, fiducial.Family),
		calib,
	}
	for i, line := range header {
		a.AddText(r2.Point{X: textLeft, Y: float64(headerTop + i*headerSpacing)}, line, overlay.White, headerScale)
	}

	switch r.Outcome {
	case NoMarker:
		a.AddText(r2.Point{X: textLeft, Y: statusTop}, StatusNoMarker, overlay.Red, statusScale)
	case EstimationFailed:
		a.AddPolygon(r.Marker.ImagePoints(), overlay.Green, lineThickness)
		a.AddText(r2.Point{X: textLeft, Y: statusTop}, StatusEstimationFailed, overlay.Red, statusScale)
	case Tracked:
		a.AddPolygon(r.Marker.ImagePoints(), overlay.Green, lineThickness)
		if r.HasTripod {
			a.AddTripod(r.Tripod, lineThickness)
		}
		a.AddCircle(r.Center, centerRadius, overlay.Yellow, true)
		for i, line := range InfoLines(r) {
			a.AddText(r2.Point{X: textLeft, Y: float64(infoTop + i*infoSpacing)}, line, overlay.Green, infoScale)
		}
	}
	return a
}

// InfoLines is the pose readout of a tracked result.
func InfoLines(r Result) []string {
	if r.Outcome != Tracked || r.Pose == nil || r.Angles == nil {
		return nil
	}
	return []string{
		fmt.Sprintf("ID: %d", r.Marker.ID),
		fmt.Sprintf("Distance to center: %.3f m (z=%.3f m)", r.Pose.Distance(), r.Pose.Translation.Z),
		fmt.Sprintf("Rotation (deg): X=%+.1f  Y=%+.1f  Z=%+.1f", r.Angles.Pitch, r.Angles.Yaw, r.Angles.Roll),
	}
}
