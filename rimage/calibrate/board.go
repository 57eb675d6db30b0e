// Package calibrate collects chessboard views and turns an intrinsic calibration into the
// calibration file the tracker reads.
package calibrate

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/tagpose/rimage/transform"
	"go.viam.com/tagpose/utils"
)

// Defaults of the calibration command.
const (
	DefaultCols        = 9
	DefaultRows        = 6
	DefaultSquareSize  = 0.0245
	DefaultMinCaptures = 10
	DefaultOutputPath  = "src/camera.yaml"
)

// ErrNotEnoughCaptures is returned when a calibration is requested with too few views.
var ErrNotEnoughCaptures = errors.New("not enough chessboard captures")

// Board is a printed chessboard. Cols and Rows count inner corners, not squares, and SquareSize
// is the edge of one square in meters.
type Board struct {
	Cols       int
	Rows       int
	SquareSize float64
}

// DefaultBoard is a 10x7 square chessboard with 24.5 mm squares.
func DefaultBoard() Board {
	return Board{Cols: DefaultCols, Rows: DefaultRows, SquareSize: DefaultSquareSize}
}

// Validate checks that the board has a grid of at least 2x2 inner corners and a positive square.
func (b Board) Validate() error {
	if b.Cols < 2 || b.Rows < 2 {
		return errors.Errorf("chessboard needs at least 2x2 inner corners, got %dx%d", b.Cols, b.Rows)
	}
	if !utils.IsFinite(b.SquareSize) || b.SquareSize <= 0 {
		return errors.Errorf("square size must be positive, got %v", b.SquareSize)
	}
	return nil
}

// NumCorners is the number of inner corners found in a complete view.
func (b Board) NumCorners() int {
	return b.Cols * b.Rows
}

// ObjectPoints are the inner corners on the board plane z=0, row by row, in the order the
// chessboard finder reports them.
func (b Board) ObjectPoints() []r3.Vector {
	pts := make([]r3.Vector, 0, b.NumCorners())
	for row := 0; row < b.Rows; row++ {
		for col := 0; col < b.Cols; col++ {
			pts = append(pts, r3.Vector{X: float64(col) * b.SquareSize, Y: float64(row) * b.SquareSize})
		}
	}
	return pts
}

// Coverage summarizes where the captured corners lie in the image. Means and deviations are
// relative to the image size, so a well spread set has means near 0.5 and large deviations.
type Coverage struct {
	MeanX, MeanY float64
	StdX, StdY   float64
}

func (c Coverage) String() string {
	return fmt.Sprintf("mean (%.2f, %.2f) std (%.2f, %.2f)", c.MeanX, c.MeanY, c.StdX, c.StdY)
}

// Session accumulates chessboard views of one camera. It is not safe for concurrent use.
type Session struct {
	board       Board
	minCaptures int
	width       int
	height      int
	views       [][]r2.Point
}

// NewSession starts a session for board that needs minCaptures views before calibrating.
func NewSession(board Board, minCaptures int) (*Session, error) {
	if err := board.Validate(); err != nil {
		return nil, err
	}
	if minCaptures < 1 {
		return nil, errors.Errorf("minimum captures must be positive, got %d", minCaptures)
	}
	return &Session{board: board, minCaptures: minCaptures}, nil
}

// Board returns the board of the session.
func (s *Session) Board() Board {
	return s.board
}

// Add records the corners of one view. Every view must have the board's corner count and come
// from frames of the same size.
func (s *Session) Add(corners []r2.Point, width, height int) error {
	if len(corners) != s.board.NumCorners() {
		return errors.Errorf("expected %d corners, got %d", s.board.NumCorners(), len(corners))
	}
	if width <= 0 || height <= 0 {
		return errors.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(s.views) > 0 && (width != s.width || height != s.height) {
		return errors.Errorf("frame size changed from %dx%d to %dx%d", s.width, s.height, width, height)
	}
	s.width, s.height = width, height
	view := make([]r2.Point, len(corners))
	copy(view, corners)
	s.views = append(s.views, view)
	return nil
}

// Len is the number of recorded views.
func (s *Session) Len() int {
	return len(s.views)
}

// Ready reports whether enough views were recorded to calibrate.
func (s *Session) Ready() bool {
	return len(s.views) >= s.minCaptures
}

// Size returns the frame size of the recorded views.
func (s *Session) Size() (int, int) {
	return s.width, s.height
}

// Views returns the recorded corner sets.
func (s *Session) Views() [][]r2.Point {
	return s.views
}

// Coverage reports how the recorded corners are spread over the image.
func (s *Session) Coverage() (Coverage, error) {
	if len(s.views) == 0 {
		return Coverage{}, ErrNotEnoughCaptures
	}
	var xs, ys []float64
	for _, view := range s.views {
		for _, p := range view {
			xs = append(xs, p.X/float64(s.width))
			ys = append(ys, p.Y/float64(s.height))
		}
	}
	var cov Coverage
	var err error
	if cov.MeanX, err = stats.Mean(xs); err != nil {
		return Coverage{}, err
	}
	if cov.MeanY, err = stats.Mean(ys); err != nil {
		return Coverage{}, err
	}
	if cov.StdX, err = stats.StandardDeviation(xs); err != nil {
		return Coverage{}, err
	}
	if cov.StdY, err = stats.StandardDeviation(ys); err != nil {
		return Coverage{}, err
	}
	return cov, nil
}

// NewCalibration builds the calibration file content from a row-major camera matrix, the
// distortion coefficients, the RMS reprojection error in pixels and the image size.
func NewCalibration(k [9]float64, dist []float64, rms float64, width, height int) (*transform.Calibration, error) {
	calib := &transform.Calibration{
		CameraMatrix: [][]float64{
			{k[0], k[1], k[2]},
			{k[3], k[4], k[5]},
			{k[6], k[7], k[8]},
		},
		DistCoeffs:        append([]float64{}, dist...),
		ReprojectionError: &rms,
		ImageSize:         []int{width, height},
	}
	if err := calib.CheckValid(); err != nil {
		return nil, err
	}
	return calib, nil
}
