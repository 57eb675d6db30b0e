package transform

import (
	"math"

	"github.com/pkg/errors"
)

// maxBrownConradyParameters is the length of OpenCV's longest coefficient list, the tilted model.
const maxBrownConradyParameters = 14

// BrownConrady is the Brown-Conrady lens distortion model in OpenCV coefficient order
// k1, k2, p1, p2, k3, k4, k5, k6, s1, s2, s3, s4, τx, τy. Coefficients that are not supplied are
// zero, so the common five coefficient model has no rational, thin prism or tilt terms.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
	RadialK3     float64 `json:"rk3"`
	RadialK4     float64 `json:"rk4"`
	RadialK5     float64 `json:"rk5"`
	RadialK6     float64 `json:"rk6"`
	ThinPrismS1  float64 `json:"s1"`
	ThinPrismS2  float64 `json:"s2"`
	ThinPrismS3  float64 `json:"s3"`
	ThinPrismS4  float64 `json:"s4"`
	// TiltTauX and TiltTauY are the sensor tilt angles in radians.
	TiltTauX float64 `json:"taux"`
	TiltTauY float64 `json:"tauy"`

	// numParameters remembers how many coefficients were supplied so they are reported back verbatim.
	numParameters int
}

// NewBrownConrady takes in a slice of up to 14 floats in OpenCV order that will be passed into
// the struct. Missing values are zero.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > maxBrownConradyParameters {
		return nil, errors.Errorf("list of parameters too long, expected max %d, got %d", maxBrownConradyParameters, len(inp))
	}
	var p [maxBrownConradyParameters]float64
	copy(p[:], inp)
	return &BrownConrady{
		RadialK1:      p[0],
		RadialK2:      p[1],
		TangentialP1:  p[2],
		TangentialP2:  p[3],
		RadialK3:      p[4],
		RadialK4:      p[5],
		RadialK5:      p[6],
		RadialK6:      p[7],
		ThinPrismS1:   p[8],
		ThinPrismS2:   p[9],
		ThinPrismS3:   p[10],
		ThinPrismS4:   p[11],
		TiltTauX:      p[12],
		TiltTauY:      p[13],
		numParameters: len(inp),
	}, nil
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	for _, p := range bc.coefficients() {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return InvalidDistortionError("BrownConrady coefficients must be finite")
		}
	}
	return nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the coefficients in the order and length they were supplied.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	all := bc.coefficients()
	out := make([]float64, bc.numParameters)
	copy(out, all[:bc.numParameters])
	return out
}

// IsZero reports whether the model leaves every point unchanged.
func (bc *BrownConrady) IsZero() bool {
	if bc == nil {
		return true
	}
	for _, p := range bc.coefficients() {
		if p != 0 {
			return false
		}
	}
	return true
}

func (bc *BrownConrady) coefficients() [maxBrownConradyParameters]float64 {
	return [maxBrownConradyParameters]float64{
		bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2,
		bc.RadialK3, bc.RadialK4, bc.RadialK5, bc.RadialK6,
		bc.ThinPrismS1, bc.ThinPrismS2, bc.ThinPrismS3, bc.ThinPrismS4,
		bc.TiltTauX, bc.TiltTauY,
	}
}

// radial returns the rational radial factor and its derivative with respect to r².
func (bc *BrownConrady) radial(r2 float64) (float64, float64) {
	r4 := r2 * r2
	r6 := r4 * r2
	num := 1 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r6
	den := 1 + bc.RadialK4*r2 + bc.RadialK5*r4 + bc.RadialK6*r6
	dNum := bc.RadialK1 + 2*bc.RadialK2*r2 + 3*bc.RadialK3*r4
	dDen := bc.RadialK4 + 2*bc.RadialK5*r2 + 3*bc.RadialK6*r4
	return num / den, (dNum*den - num*dDen) / (den * den)
}

// tilted reports whether the sensor tilt terms are in use.
func (bc *BrownConrady) tilted() bool {
	return bc.TiltTauX != 0 || bc.TiltTauY != 0
}

// tiltMatrix is OpenCV's projection of the tilted sensor plane, projZ(R) · Ry(τy) · Rx(τx), row major.
func (bc *BrownConrady) tiltMatrix() [9]float64 {
	cx, sx := math.Cos(bc.TiltTauX), math.Sin(bc.TiltTauX)
	cy, sy := math.Cos(bc.TiltTauY), math.Sin(bc.TiltTauY)
	// R = Ry · Rx
	r := [9]float64{
		cy, sy * sx, -sy * cx,
		0, cx, sx,
		sy, -cy * sx, cy * cx,
	}
	r22 := r[8]
	return [9]float64{
		r22*r[0] - r[2]*r[6], r22*r[1] - r[2]*r[7], r22*r[2] - r[2]*r[8],
		r22*r[3] - r[5]*r[6], r22*r[4] - r[5]*r[7], r22*r[5] - r[5]*r[8],
		r[6], r[7], r[8],
	}
}

// Transform distorts a normalized image point:
//
//	x_d = x * radial + 2*p1*x*y + p2*(r² + 2*x²) + s1*r² + s2*r⁴
//	y_d = y * radial + p1*(r² + 2*y²) + 2*p2*x*y + s3*r² + s4*r⁴
//
// with radial = (1 + k1*r² + k2*r⁴ + k3*r⁶) / (1 + k4*r² + k5*r⁴ + k6*r⁶), followed by the
// sensor tilt projection when τx or τy is set.
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	r4 := r2 * r2
	rad, _ := bc.radial(r2)
	xd := x*rad + 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x) + bc.ThinPrismS1*r2 + bc.ThinPrismS2*r4
	yd := y*rad + bc.TangentialP1*(r2+2*y*y) + 2*bc.TangentialP2*x*y + bc.ThinPrismS3*r2 + bc.ThinPrismS4*r4
	if !bc.tilted() {
		return xd, yd
	}
	t := bc.tiltMatrix()
	w := t[6]*xd + t[7]*yd + t[8]
	if w == 0 {
		return math.Inf(1), math.Inf(1)
	}
	return (t[0]*xd + t[1]*yd + t[2]) / w, (t[3]*xd + t[4]*yd + t[5]) / w
}

// jacobian returns the partial derivatives of Transform at (x, y) as
// [[dxd/dx, dxd/dy], [dyd/dx, dyd/dy]].
func (bc *BrownConrady) jacobian(x, y float64) (float64, float64, float64, float64) {
	r2 := x*x + y*y
	rad, dRad := bc.radial(r2)
	p1, p2 := bc.TangentialP1, bc.TangentialP2
	// derivatives of the thin prism terms with respect to r², times 2
	px := 2 * (bc.ThinPrismS1 + 2*bc.ThinPrismS2*r2)
	py := 2 * (bc.ThinPrismS3 + 2*bc.ThinPrismS4*r2)
	dxdx := rad + 2*x*x*dRad + 2*p1*y + 6*p2*x + px*x
	dxdy := 2*x*y*dRad + 2*p1*x + 2*p2*y + px*y
	dydx := 2*x*y*dRad + 2*p1*x + 2*p2*y + py*x
	dydy := rad + 2*y*y*dRad + 6*p1*y + 2*p2*x + py*y
	if !bc.tilted() {
		return dxdx, dxdy, dydx, dydy
	}

	// chain rule through the tilt homography
	r4 := r2 * r2
	xd := x*rad + 2*p1*x*y + p2*(r2+2*x*x) + bc.ThinPrismS1*r2 + bc.ThinPrismS2*r4
	yd := y*rad + p1*(r2+2*y*y) + 2*p2*x*y + bc.ThinPrismS3*r2 + bc.ThinPrismS4*r4
	t := bc.tiltMatrix()
	w := t[6]*xd + t[7]*yd + t[8]
	u := t[0]*xd + t[1]*yd + t[2]
	v := t[3]*xd + t[4]*yd + t[5]
	w2 := w * w
	dudxd, dudyd := (t[0]*w-u*t[6])/w2, (t[1]*w-u*t[7])/w2
	dvdxd, dvdyd := (t[3]*w-v*t[6])/w2, (t[4]*w-v*t[7])/w2
	return dudxd*dxdx + dudyd*dydx, dudxd*dxdy + dudyd*dydy,
		dvdxd*dxdx + dvdyd*dydx, dvdxd*dxdy + dvdyd*dydy
}

// Inverse returns the model that undoes bc.
func (bc *BrownConrady) Inverse() *InverseBrownConrady {
	return &InverseBrownConrady{Forward: bc}
}
