package transform

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func TestNewBrownConrady(t *testing.T) {
	bc, err := NewBrownConrady(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bc.IsZero(), test.ShouldBeTrue)
	test.That(t, bc.Parameters(), test.ShouldBeEmpty)
	test.That(t, bc.ModelType(), test.ShouldEqual, BrownConradyDistortionType)

	bc, err = NewBrownConrady([]float64{0.1, 0.2, 0.3, 0.4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bc.TangentialP1, test.ShouldEqual, 0.3)
	test.That(t, bc.TangentialP2, test.ShouldEqual, 0.4)
	test.That(t, bc.RadialK3, test.ShouldEqual, 0.0)
	test.That(t, bc.Parameters(), test.ShouldResemble, []float64{0.1, 0.2, 0.3, 0.4})
	test.That(t, bc.CheckValid(), test.ShouldBeNil)

	_, err = NewBrownConrady(make([]float64, 15))
	test.That(t, err, test.ShouldNotBeNil)

	var nilBC *BrownConrady
	test.That(t, nilBC.CheckValid(), test.ShouldNotBeNil)
	x, y := nilBC.Transform(0.3, -0.2)
	test.That(t, x, test.ShouldEqual, 0.3)
	test.That(t, y, test.ShouldEqual, -0.2)
}

func TestNewDistorter(t *testing.T) {
	d, err := NewDistorter(BrownConradyDistortionType, []float64{0.1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, BrownConradyDistortionType)

	d, err = NewDistorter(InverseBrownConradyDistortionType, []float64{0.1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, InverseBrownConradyDistortionType)
	test.That(t, d.Parameters(), test.ShouldResemble, []float64{0.1})

	_, err = NewDistorter(DistortionType("kannala_brandt"), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBrownConradyTransform(t *testing.T) {
	bc, err := NewBrownConrady([]float64{0.1, -0.05, 0.001, -0.002, 0.01})
	test.That(t, err, test.ShouldBeNil)

	// the principal point is a fixed point of every model
	x, y := bc.Transform(0, 0)
	test.That(t, x, test.ShouldEqual, 0.0)
	test.That(t, y, test.ShouldEqual, 0.0)

	// purely radial model along the x axis
	radial, err := NewBrownConrady([]float64{0.1, 0.01})
	test.That(t, err, test.ShouldBeNil)
	x, y = radial.Transform(0.5, 0)
	test.That(t, x, test.ShouldAlmostEqual, 0.5*(1+0.1*0.25+0.01*0.0625))
	test.That(t, y, test.ShouldAlmostEqual, 0.0)

	// rational denominator
	rational, err := NewBrownConrady([]float64{0, 0, 0, 0, 0, 0.2})
	test.That(t, err, test.ShouldBeNil)
	x, _ = rational.Transform(0.5, 0)
	test.That(t, x, test.ShouldAlmostEqual, 0.5/(1+0.2*0.25))
}

func TestBrownConradyThinPrismAndTilt(t *testing.T) {
	prism, err := NewBrownConrady([]float64{0, 0, 0, 0, 0, 0, 0, 0, 0.01, 0.002, -0.03, 0.004})
	test.That(t, err, test.ShouldBeNil)
	x, y := prism.Transform(0.5, 0)
	test.That(t, x, test.ShouldAlmostEqual, 0.5+0.01*0.25+0.002*0.0625)
	test.That(t, y, test.ShouldAlmostEqual, -0.03*0.25+0.004*0.0625)

	// zero tilt angles leave the model untouched
	flat, err := NewBrownConrady(append([]float64{0.1, -0.05, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 0, 0))
	test.That(t, err, test.ShouldBeNil)
	radial, err := NewBrownConrady([]float64{0.1, -0.05})
	test.That(t, err, test.ShouldBeNil)
	x1, y1 := flat.Transform(0.3, -0.2)
	x2, y2 := radial.Transform(0.3, -0.2)
	test.That(t, x1, test.ShouldEqual, x2)
	test.That(t, y1, test.ShouldEqual, y2)

	// the principal ray stays on the axis under tilt
	tilted, err := NewBrownConrady([]float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0.02, -0.01})
	test.That(t, err, test.ShouldBeNil)
	x, y = tilted.Transform(0, 0)
	test.That(t, x, test.ShouldAlmostEqual, 0.0)
	test.That(t, y, test.ShouldAlmostEqual, 0.0)
	x, _ = tilted.Transform(0.3, 0)
	test.That(t, x, test.ShouldNotAlmostEqual, 0.3, 1e-6)
}

func TestBrownConradyJacobian(t *testing.T) {
	for _, coeffs := range [][]float64{
		{0.11, -0.21, -0.001, 0.002, 0.19, 0.01, -0.02, 0.003},
		{0.11, -0.21, -0.001, 0.002, 0.19, 0.01, -0.02, 0.003, 0.002, -0.001, 0.003, 0.0005},
		{0.11, -0.21, -0.001, 0.002, 0.19, 0.01, -0.02, 0.003, 0.002, -0.001, 0.003, 0.0005, 0.03, -0.02},
	} {
		bc, err := NewBrownConrady(coeffs)
		test.That(t, err, test.ShouldBeNil)
		f := func(dst, x []float64) {
			dst[0], dst[1] = bc.Transform(x[0], x[1])
		}
		for _, pt := range [][]float64{{0.1, 0.2}, {-0.4, 0.3}, {0.35, -0.25}} {
			numeric := mat.NewDense(2, 2, nil)
			fd.Jacobian(numeric, f, pt, &fd.JacobianSettings{Formula: fd.Central})
			dxdx, dxdy, dydx, dydy := bc.jacobian(pt[0], pt[1])
			test.That(t, dxdx, test.ShouldAlmostEqual, numeric.At(0, 0), 1e-6)
			test.That(t, dxdy, test.ShouldAlmostEqual, numeric.At(0, 1), 1e-6)
			test.That(t, dydx, test.ShouldAlmostEqual, numeric.At(1, 0), 1e-6)
			test.That(t, dydy, test.ShouldAlmostEqual, numeric.At(1, 1), 1e-6)
		}
	}
}

func TestInverseBrownConrady(t *testing.T) {
	for _, coeffs := range [][]float64{
		{0.11, -0.21, -0.001, 0.002, 0.19},
		{0.11, -0.21, -0.001, 0.002, 0.19, 0, 0, 0, 0.002, -0.001, 0.003, 0.0005, 0.03, -0.02},
	} {
		bc, err := NewBrownConrady(coeffs)
		test.That(t, err, test.ShouldBeNil)
		inv := bc.Inverse()
		test.That(t, inv.CheckValid(), test.ShouldBeNil)
		test.That(t, inv.Parameters(), test.ShouldResemble, bc.Parameters())

		for x := -0.5; x <= 0.5; x += 0.125 {
			for y := -0.4; y <= 0.4; y += 0.1 {
				xd, yd := bc.Transform(x, y)
				xu, yu := inv.Transform(xd, yd)
				test.That(t, xu, test.ShouldAlmostEqual, x, 1e-9)
				test.That(t, yu, test.ShouldAlmostEqual, y, 1e-9)
			}
		}
	}

	zero, err := NewInverseBrownConrady([]float64{0, 0, 0, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	xu, yu := zero.Transform(0.25, -0.75)
	test.That(t, xu, test.ShouldEqual, 0.25)
	test.That(t, yu, test.ShouldEqual, -0.75)

	var nilInv *InverseBrownConrady
	test.That(t, nilInv.CheckValid(), test.ShouldNotBeNil)
	test.That(t, nilInv.Parameters(), test.ShouldBeEmpty)
}

func TestCameraModelUndistortPixel(t *testing.T) {
	cm, err := NewCameraModel(640, 480, [9]float64{576, 0, 320, 0, 576, 240, 0, 0, 1}, []float64{0.1, -0.05})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cm.Distortion.ModelType(), test.ShouldEqual, BrownConradyDistortionType)
	test.That(t, cm.Undistortion.ModelType(), test.ShouldEqual, InverseBrownConradyDistortionType)

	n := cm.UndistortPixel(pointAt(320, 240))
	test.That(t, n.X, test.ShouldAlmostEqual, 0.0)
	test.That(t, n.Y, test.ShouldAlmostEqual, 0.0)

	px, ok := cm.ProjectPoint(r3.Vector{X: 180 / 576.0, Y: -140 / 576.0, Z: 1})
	test.That(t, ok, test.ShouldBeTrue)
	n = cm.UndistortPixel(px)
	test.That(t, n.X, test.ShouldAlmostEqual, 180/576.0, 1e-9)
	test.That(t, n.Y, test.ShouldAlmostEqual, -140/576.0, 1e-9)

	_, err = NewCameraModel(640, 480, [9]float64{576, 0, 320, 0, 576, 240, 0, 0, 2}, nil)
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
	_, err = NewCameraModel(640, 480, [9]float64{576, 0, 320, 0, 576, 240, 0, 0, 1}, make([]float64, 15))
	test.That(t, err, test.ShouldNotBeNil)
}
