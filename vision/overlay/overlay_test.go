package overlay

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/tagpose/rimage/transform"
	"go.viam.com/tagpose/spatialmath"
	"go.viam.com/tagpose/vision/fiducial"
)

func TestProjectTripod(t *testing.T) {
	cm, err := transform.NewApproximateCameraModel(640, 480)
	test.That(t, err, test.ShouldBeNil)

	pose := spatialmath.NewPose(r3.Vector{X: 0, Y: 0, Z: 0.5}, spatialmath.NewIdentityRotationMatrix())
	tripod, ok := ProjectTripod(cm, pose, DefaultAxisLength)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, tripod.Origin, test.ShouldResemble, r2.Point{X: 320, Y: 240})
	test.That(t, tripod.X.X, test.ShouldAlmostEqual, 320+576*0.1)
	test.That(t, tripod.X.Y, test.ShouldAlmostEqual, 240.0)
	test.That(t, tripod.Y.X, test.ShouldAlmostEqual, 320.0)
	test.That(t, tripod.Y.Y, test.ShouldAlmostEqual, 240+576*0.1)
	// the z axis points away from the camera through the principal point
	test.That(t, tripod.Z.X, test.ShouldAlmostEqual, 320.0)
	test.That(t, tripod.Z.Y, test.ShouldAlmostEqual, 240.0)

	// an axis crossing behind the camera cannot be drawn
	flipped := spatialmath.NewPose(r3.Vector{X: 0, Y: 0, Z: 0.03}, (&spatialmath.R4AA{Theta: 3.14159265, RX: 1}).RotationMatrix())
	_, ok = ProjectTripod(cm, flipped, DefaultAxisLength)
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = ProjectTripod(nil, pose, DefaultAxisLength)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestMarkerCenter(t *testing.T) {
	c := fiducial.Candidate{ID: 1, Corners: [4]r2.Point{{X: 100, Y: 100}, {X: 200, Y: 110}, {X: 210, Y: 200}, {X: 90, Y: 190}}}
	center := MarkerCenter(c)
	test.That(t, center.X, test.ShouldAlmostEqual, 150.0)
	test.That(t, center.Y, test.ShouldAlmostEqual, 150.0)
}

type recordingCanvas struct {
	ops []string
}

func (rc *recordingCanvas) DrawPolygon(Polygon) { rc.ops = append(rc.ops, "polygon") }
func (rc *recordingCanvas) DrawLine(Line)       { rc.ops = append(rc.ops, "line") }
func (rc *recordingCanvas) DrawCircle(Circle)   { rc.ops = append(rc.ops, "circle") }
func (rc *recordingCanvas) DrawText(t Text)     { rc.ops = append(rc.ops, "text:"+t.Value) }

func TestAnnotationDraw(t *testing.T) {
	var a Annotation
	a.AddText(r2.Point{X: 10, Y: 25}, "hello", White, 0.55)
	a.AddCircle(r2.Point{X: 5, Y: 5}, 4, Yellow, true)
	a.AddTripod(Tripod{Origin: r2.Point{X: 1, Y: 1}, X: r2.Point{X: 2, Y: 1}, Y: r2.Point{X: 1, Y: 2}, Z: r2.Point{X: 1, Y: 1}}, 2)
	corners := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	a.AddPolygon(corners, Green, 2)
	corners[0] = r2.Point{X: 9, Y: 9}

	rc := &recordingCanvas{}
	a.Draw(rc)
	test.That(t, rc.ops, test.ShouldResemble, []string{"polygon", "line", "line", "line", "circle", "text:hello"})
	test.That(t, a.Polygons[0].Points[0], test.ShouldResemble, r2.Point{X: 0, Y: 0})
	test.That(t, a.Lines[0].Color, test.ShouldResemble, Red)
	test.That(t, a.Lines[1].Color, test.ShouldResemble, Green)
	test.That(t, a.Lines[2].Color, test.ShouldResemble, Blue)
	test.That(t, a.TextValues(), test.ShouldResemble, []string{"hello"})
}

func TestPixel(t *testing.T) {
	test.That(t, Pixel(r2.Point{X: 10.4, Y: 20.6}), test.ShouldResemble, image.Point{X: 10, Y: 21})
	test.That(t, Pixel(r2.Point{X: 99.5, Y: -3.7}), test.ShouldResemble, image.Point{X: 100, Y: -4})
	test.That(t, Pixel(r2.Point{X: 0.49999, Y: 7}), test.ShouldResemble, image.Point{X: 0, Y: 7})
}

func TestImageCanvas(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	var a Annotation
	a.AddCircle(r2.Point{X: 32, Y: 24}, 6, Yellow, true)
	a.AddLine(r2.Point{X: 0, Y: 2}, r2.Point{X: 63, Y: 2}, Red, 2)
	a.AddText(r2.Point{X: 2, Y: 40}, "ID: 3", White, 0.5)

	out := RenderImage(img, &a)
	test.That(t, out.Bounds(), test.ShouldResemble, img.Bounds())
	r, g, b, _ := out.At(32, 24).RGBA()
	test.That(t, r>>8, test.ShouldEqual, uint32(255))
	test.That(t, g>>8, test.ShouldEqual, uint32(255))
	test.That(t, b>>8, test.ShouldEqual, uint32(0))
	r, _, _, _ = out.At(30, 2).RGBA()
	test.That(t, r>>8, test.ShouldBeGreaterThan, uint32(0))
	// the source image is not modified
	test.That(t, img.At(32, 24), test.ShouldResemble, color.RGBA{})

	ic := NewImageCanvas(img)
	a.Draw(ic)
	path := filepath.Join(t.TempDir(), "snapshots", "frame.png")
	test.That(t, ic.Save(path, FormatPNG), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}
