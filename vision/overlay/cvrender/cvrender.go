//go:build cgo && !no_cgo

// Package cvrender draws overlay annotations on OpenCV frames and shows them in a window.
package cvrender

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/tagpose/vision/overlay"
)

// QuitKey closes the window.
const QuitKey = 'q'

// MatCanvas draws annotations in place on a frame.
type MatCanvas struct {
	mat *gocv.Mat
}

// NewMatCanvas returns a canvas drawing on mat.
func NewMatCanvas(mat *gocv.Mat) *MatCanvas {
	return &MatCanvas{mat: mat}
}

func toPixel(p r2.Point) image.Point {
	return overlay.Pixel(p)
}

func thickness(t float64) int {
	if t < 1 {
		return 1
	}
	return int(math.Round(t))
}

// DrawPolygon implements overlay.Canvas.
func (mc *MatCanvas) DrawPolygon(p overlay.Polygon) {
	pts := make([]image.Point, len(p.Points))
	for i, pt := range p.Points {
		pts[i] = toPixel(pt)
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.Polylines(mc.mat, pv, true, p.Color, thickness(p.Thickness))
}

// DrawLine implements overlay.Canvas.
func (mc *MatCanvas) DrawLine(l overlay.Line) {
	gocv.Line(mc.mat, toPixel(l.From), toPixel(l.To), l.Color, thickness(l.Thickness))
}

// DrawCircle implements overlay.Canvas.
func (mc *MatCanvas) DrawCircle(c overlay.Circle) {
	t := 1
	if c.Filled {
		t = -1
	}
	gocv.Circle(mc.mat, toPixel(c.Center), int(math.Round(c.Radius)), c.Color, t)
}

// DrawText implements overlay.Canvas.
func (mc *MatCanvas) DrawText(t overlay.Text) {
	gocv.PutText(mc.mat, t.Value, toPixel(t.Position), gocv.FontHersheySimplex, t.Scale, t.Color, 2)
}

// Window shows annotated frames and reports when the quit key is pressed.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(name string) *Window {
	return &Window{window: gocv.NewWindow(name)}
}

// Show draws a on frame, presents it and polls the keyboard once.
func (w *Window) Show(frame gocv.Mat, a *overlay.Annotation) (bool, error) {
	return w.ShowKey(frame, a) == QuitKey, nil
}

// ShowKey is Show returning the low byte of the key pressed, or -1 when none was.
func (w *Window) ShowKey(frame gocv.Mat, a *overlay.Annotation) int {
	a.Draw(NewMatCanvas(&frame))
	w.window.IMShow(frame)
	key := w.window.WaitKey(1)
	if key < 0 {
		return -1
	}
	return key & 0xFF
}

// Close closes the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// ToImage converts a BGR frame for the snapshot writer.
func ToImage(frame gocv.Mat) (image.Image, error) {
	img, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert frame to image")
	}
	return img, nil
}
