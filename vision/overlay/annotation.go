// Package overlay projects the orientation tripod of a tracked marker into the image and
// describes the per-frame annotation in a renderer-neutral way.
package overlay

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
)

// Annotation colors.
var (
	Red    = color.RGBA{R: 255, A: 255}
	Green  = color.RGBA{G: 255, A: 255}
	Blue   = color.RGBA{B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Text is a single line of text. Position is the left end of its baseline and Scale is relative
// to a nominal font height of about 22 pixels.
type Text struct {
	Position r2.Point
	Value    string
	Color    color.RGBA
	Scale    float64
}

// Line is a straight segment.
type Line struct {
	From, To  r2.Point
	Color     color.RGBA
	Thickness float64
}

// Polygon is a closed outline.
type Polygon struct {
	Points    []r2.Point
	Color     color.RGBA
	Thickness float64
}

// Circle is filled when Filled is set, otherwise outlined with a thickness of 1.
type Circle struct {
	Center r2.Point
	Radius float64
	Color  color.RGBA
	Filled bool
}

// Annotation is everything drawn over one frame, in drawing order: polygons, lines, circles then
// texts.
type Annotation struct {
	Polygons []Polygon
	Lines    []Line
	Circles  []Circle
	Texts    []Text
}

// Canvas is a surface an Annotation can be drawn on.
type Canvas interface {
	DrawPolygon(Polygon)
	DrawLine(Line)
	DrawCircle(Circle)
	DrawText(Text)
}

// AddPolygon appends a closed outline.
func (a *Annotation) AddPolygon(pts []r2.Point, c color.RGBA, thickness float64) {
	cp := make([]r2.Point, len(pts))
	copy(cp, pts)
	a.Polygons = append(a.Polygons, Polygon{Points: cp, Color: c, Thickness: thickness})
}

// AddLine appends a segment.
func (a *Annotation) AddLine(from, to r2.Point, c color.RGBA, thickness float64) {
	a.Lines = append(a.Lines, Line{From: from, To: to, Color: c, Thickness: thickness})
}

// AddCircle appends a circle.
func (a *Annotation) AddCircle(center r2.Point, radius float64, c color.RGBA, filled bool) {
	a.Circles = append(a.Circles, Circle{Center: center, Radius: radius, Color: c, Filled: filled})
}

// AddText appends a line of text.
func (a *Annotation) AddText(pos r2.Point, value string, c color.RGBA, scale float64) {
	a.Texts = append(a.Texts, Text{Position: pos, Value: value, Color: c, Scale: scale})
}

// AddTripod draws the X, Y and Z axes of t in red, green and blue.
func (a *Annotation) AddTripod(t Tripod, thickness float64) {
	a.AddLine(t.Origin, t.X, Red, thickness)
	a.AddLine(t.Origin, t.Y, Green, thickness)
	a.AddLine(t.Origin, t.Z, Blue, thickness)
}

// Draw renders the annotation on c.
func (a *Annotation) Draw(c Canvas) {
	for _, p := range a.Polygons {
		c.DrawPolygon(p)
	}
	for _, l := range a.Lines {
		c.DrawLine(l)
	}
	for _, ci := range a.Circles {
		c.DrawCircle(ci)
	}
	for _, t := range a.Texts {
		c.DrawText(t)
	}
}

// Pixel rounds p to the nearest integer pixel for renderers that only take integer coordinates.
func Pixel(p r2.Point) image.Point {
	return image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// TextValues returns the text lines in order, mostly for logging and tests.
func (a *Annotation) TextValues() []string {
	out := make([]string, 0, len(a.Texts))
	for _, t := range a.Texts {
		out = append(out, t.Value)
	}
	return out
}
