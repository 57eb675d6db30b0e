package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// homographyRankTol is the smallest ratio between the last and first singular values of the DLT
// system for which the solution is considered unique.
const homographyRankTol = 1e-10

// Homography is a 3x3 matrix (represented as a 2D array) used to transform a plane from the perspective of a 2D
// camera to the perspective of another 2D camera. Indices are [row][column].
type Homography [3][3]float64

// At returns the element at row, col.
func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// Apply maps pt through the homography. ok is false if pt maps to infinity.
func (h *Homography) Apply(pt r2.Point) (r2.Point, bool) {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	if z == 0 {
		return r2.Point{}, false
	}
	return r2.Point{X: x / z, Y: y / z}, true
}

// Column returns column col as a slice of 3 values.
func (h *Homography) Column(col int) [3]float64 {
	return [3]float64{h[0][col], h[1][col], h[2][col]}
}

func homographyFromDense(m mat.Matrix) *Homography {
	var h Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h[i][j] = m.At(i, j)
		}
	}
	return &h
}

// EstimateHomography fits the homography mapping src onto dst with the normalized direct linear
// transform (Multiple View Geometry, Alg 4.2). At least 4 correspondences are needed and no 3 of
// the first 4 may be collinear.
func EstimateHomography(src, dst []r2.Point) (*Homography, error) {
	if len(src) != len(dst) {
		return nil, errors.New("sets of points src and dst must have the same number of elements")
	}
	if len(src) < 4 {
		return nil, errors.Errorf("sets of points must have at least 4 elements, got %d", len(src))
	}
	points1, t1, err := normalizePoints(src)
	if err != nil {
		return nil, err
	}
	points2, t2, err := normalizePoints(dst)
	if err != nil {
		return nil, err
	}

	// pad to at least 9 rows so the full SVD always exposes a 9x9 V
	nRows := 2 * len(src)
	if nRows < 9 {
		nRows = 9
	}
	a := mat.NewDense(nRows, 9, nil)
	for i := range points1 {
		x, y := points1[i].X, points1[i].Y
		u, v := points2[i].X, points2[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	mats := performSVD(a)
	if mats == nil {
		return nil, errors.New("failed to factorize homography system")
	}
	if mats.Values[0] == 0 || mats.Values[7]/mats.Values[0] < homographyRankTol {
		return nil, errors.New("degenerate point configuration, homography is not unique")
	}
	lastColV := mats.V.ColView(8)
	hn := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		hn.Set(i/3, i%3, lastColV.AtVec(i))
	}

	// denormalize: T2^-1 @ Hn @ T1
	var t2Inv mat.Dense
	if err := t2Inv.Inverse(t2); err != nil {
		return nil, errors.Wrap(err, "cannot invert normalization")
	}
	var h mat.Dense
	h.Mul(&t2Inv, hn)
	h.Mul(&h, t1)

	scale := h.At(2, 2)
	if math.Abs(scale) < 1e-15 {
		scale = mat.Norm(&h, 2)
	}
	if scale == 0 {
		return nil, errors.New("homography is zero")
	}
	h.Scale(1/scale, &h)
	return homographyFromDense(&h), nil
}
