// Package fiducial holds the marker candidates reported by a detector and the geometry needed to
// choose one and relate it to its physical model.
package fiducial

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Family is the only marker dictionary tracked.
const Family = "APRILTAG_36h11"

// Candidate is a detected marker. Corners are in detector order, top-left, top-right,
// bottom-right, bottom-left in the marker's own frame.
type Candidate struct {
	ID      int         `json:"id"`
	Corners [4]r2.Point `json:"corners"`
}

// NewCandidate builds a candidate from a detector's corner list, which must have exactly 4 points.
func NewCandidate(id int, corners []r2.Point) (Candidate, error) {
	if len(corners) != 4 {
		return Candidate{}, errors.Errorf("marker %d has %d corners, need 4", id, len(corners))
	}
	c := Candidate{ID: id}
	copy(c.Corners[:], corners)
	return c, nil
}

// Area is the unsigned shoelace area of the corner polygon in square pixels.
func (c Candidate) Area() float64 {
	return PolygonArea(c.Corners[:])
}

// Centroid is the arithmetic mean of the corners.
func (c Candidate) Centroid() r2.Point {
	return Centroid(c.Corners[:])
}

// ImagePoints returns the corners as a slice, in the same order as ObjectModel.Points.
func (c Candidate) ImagePoints() []r2.Point {
	out := make([]r2.Point, len(c.Corners))
	copy(out, c.Corners[:])
	return out
}

func (c Candidate) String() string {
	return fmt.Sprintf("marker %d %v", c.ID, c.Corners)
}

// PolygonArea is the unsigned area of a simple polygon given by its vertices in order.
func PolygonArea(pts []r2.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}

// Centroid is the mean of pts, or the origin if there are none.
func Centroid(pts []r2.Point) r2.Point {
	if len(pts) == 0 {
		return r2.Point{}
	}
	var c r2.Point
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(pts)))
}

// SelectLargest returns the candidate with the strictly largest area. Ties keep the first in
// detector order. ok is false when there are no candidates, which is not an error.
func SelectLargest(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := 0
	bestArea := candidates[0].Area()
	for i := 1; i < len(candidates); i++ {
		if area := candidates[i].Area(); area > bestArea {
			best, bestArea = i, area
		}
	}
	return candidates[best], true
}

// ObjectModel is a square marker of side 2*HalfSize meters centered on its origin in the z = 0
// plane, x to the right and y down as seen in the image.
type ObjectModel struct {
	HalfSize float64 `json:"half_size"`
}

// NewObjectModel returns the model of a marker with the given edge length in meters.
func NewObjectModel(tagSize float64) (ObjectModel, error) {
	if !(tagSize > 0) || math.IsInf(tagSize, 0) {
		return ObjectModel{}, errors.Errorf("tag size must be positive and finite, got %v", tagSize)
	}
	return ObjectModel{HalfSize: tagSize / 2}, nil
}

// TagSize is the edge length in meters.
func (m ObjectModel) TagSize() float64 {
	return 2 * m.HalfSize
}

// Points returns (-h,-h,0), (h,-h,0), (h,h,0), (-h,h,0), matching Candidate corner order.
func (m ObjectModel) Points() []r3.Vector {
	h := m.HalfSize
	return []r3.Vector{
		{X: -h, Y: -h, Z: 0},
		{X: h, Y: -h, Z: 0},
		{X: h, Y: h, Z: 0},
		{X: -h, Y: h, Z: 0},
	}
}
