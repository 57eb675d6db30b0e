//go:build cgo && !no_cgo

package calibrate

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"go.viam.com/tagpose/rimage/transform"
)

const (
	subPixWindow     = 11
	subPixIterations = 30
	subPixEpsilon    = 0.001
)

// ChessboardFinder locates the inner corners of a board in BGR frames.
type ChessboardFinder struct {
	board   Board
	gray    gocv.Mat
	corners gocv.Mat
}

// NewChessboardFinder returns a finder for board. Close releases its buffers.
func NewChessboardFinder(board Board) (*ChessboardFinder, error) {
	if err := board.Validate(); err != nil {
		return nil, err
	}
	return &ChessboardFinder{board: board, gray: gocv.NewMat(), corners: gocv.NewMat()}, nil
}

func (f *ChessboardFinder) patternSize() image.Point {
	return image.Pt(f.board.Cols, f.board.Rows)
}

// Find reports whether the whole board is visible in frame. The coarse corners stay in the finder
// for Draw and Refine.
func (f *ChessboardFinder) Find(frame gocv.Mat) (bool, error) {
	if err := gocv.CvtColor(frame, &f.gray, gocv.ColorBGRToGray); err != nil {
		return false, errors.Wrap(err, "cannot convert frame to gray")
	}
	found := gocv.FindChessboardCorners(f.gray, f.patternSize(), &f.corners,
		gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage)
	return found && f.corners.Rows() == f.board.NumCorners(), nil
}

// Draw marks the last corners found on frame.
func (f *ChessboardFinder) Draw(frame *gocv.Mat, found bool) error {
	if f.corners.Empty() {
		return nil
	}
	return gocv.DrawChessboardCorners(frame, f.patternSize(), f.corners, found)
}

// Refine moves the last corners found to sub-pixel accuracy and returns them in board order.
func (f *ChessboardFinder) Refine() ([]r2.Point, error) {
	if f.corners.Rows() != f.board.NumCorners() {
		return nil, errors.Errorf("expected %d corners, got %d", f.board.NumCorners(), f.corners.Rows())
	}
	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, subPixIterations, subPixEpsilon)
	if err := gocv.CornerSubPix(f.gray, &f.corners, image.Pt(subPixWindow, subPixWindow), image.Pt(-1, -1), criteria); err != nil {
		return nil, errors.Wrap(err, "cannot refine chessboard corners")
	}
	pts := make([]r2.Point, f.corners.Rows())
	for i := range pts {
		v := f.corners.GetVecfAt(i, 0)
		pts[i] = r2.Point{X: float64(v[0]), Y: float64(v[1])}
	}
	return pts, nil
}

// Close releases the OpenCV buffers.
func (f *ChessboardFinder) Close() error {
	return multierr.Combine(f.gray.Close(), f.corners.Close())
}

// Calibrate runs the OpenCV intrinsic calibration on the recorded views of s.
func Calibrate(s *Session) (_ *transform.Calibration, err error) {
	if !s.Ready() {
		return nil, errors.Wrapf(ErrNotEnoughCaptures, "have %d, need %d", s.Len(), s.minCaptures)
	}
	objp := make([]gocv.Point3f, 0, s.board.NumCorners())
	for _, p := range s.board.ObjectPoints() {
		objp = append(objp, gocv.NewPoint3f(float32(p.X), float32(p.Y), float32(p.Z)))
	}
	objectViews := make([][]gocv.Point3f, len(s.views))
	imageViews := make([][]gocv.Point2f, len(s.views))
	for i, view := range s.views {
		objectViews[i] = objp
		imageViews[i] = make([]gocv.Point2f, len(view))
		for j, p := range view {
			imageViews[i][j] = gocv.NewPoint2f(float32(p.X), float32(p.Y))
		}
	}
	objectPoints := gocv.NewPoints3fVectorFromPoints(objectViews)
	defer objectPoints.Close()
	imagePoints := gocv.NewPoints2fVectorFromPoints(imageViews)
	defer imagePoints.Close()

	cameraMatrix := gocv.NewMat()
	distCoeffs := gocv.NewMat()
	rvecs := gocv.NewMat()
	tvecs := gocv.NewMat()
	defer func() {
		err = multierr.Combine(err, cameraMatrix.Close(), distCoeffs.Close(), rvecs.Close(), tvecs.Close())
	}()

	width, height := s.Size()
	rms := gocv.CalibrateCamera(objectPoints, imagePoints, image.Pt(width, height),
		&cameraMatrix, &distCoeffs, &rvecs, &tvecs, gocv.CalibFlag(0))
	if cameraMatrix.Rows() != 3 || cameraMatrix.Cols() != 3 {
		return nil, errors.New("calibration did not produce a camera matrix")
	}

	var k [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			k[3*i+j] = cameraMatrix.GetDoubleAt(i, j)
		}
	}
	dist := make([]float64, 0, distCoeffs.Total())
	for i := 0; i < distCoeffs.Rows(); i++ {
		for j := 0; j < distCoeffs.Cols(); j++ {
			dist = append(dist, distCoeffs.GetDoubleAt(i, j))
		}
	}
	return NewCalibration(k, dist, rms, width, height)
}
