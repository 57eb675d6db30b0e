package transform

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/tagpose/utils"
)

// ErrMalformedCalibration is returned when a calibration file exists but cannot be used.
var ErrMalformedCalibration = errors.New("malformed camera calibration")

// DefaultCalibrationPaths are probed in order when no paths are configured.
var DefaultCalibrationPaths = []string{"src/camera.yaml", "../src/camera.yaml"}

// NewMalformedCalibrationError is used when a calibration fails validation.
func NewMalformedCalibrationError(msg string) error {
	return errors.Wrap(ErrMalformedCalibration, msg)
}

// Calibration is the content of a camera calibration file:
//
//	camera_matrix:
//	  - [fx, 0, cx]
//	  - [0, fy, cy]
//	  - [0, 0, 1]
//	dist_coeffs: [k1, k2, p1, p2, k3]
//	reprojection_error: 0.31
//	image_size: [640, 480]
type Calibration struct {
	CameraMatrix      [][]float64 `yaml:"camera_matrix"`
	DistCoeffs        []float64   `yaml:"dist_coeffs"`
	ReprojectionError *float64    `yaml:"reprojection_error,omitempty"`
	ImageSize         []int       `yaml:"image_size,omitempty"`
}

// ParseCalibration decodes and validates a YAML calibration document.
func ParseCalibration(data []byte) (*Calibration, error) {
	var calib Calibration
	if err := yaml.Unmarshal(data, &calib); err != nil {
		return nil, errors.Wrap(ErrMalformedCalibration, err.Error())
	}
	if err := calib.CheckValid(); err != nil {
		return nil, err
	}
	return &calib, nil
}

// LoadCalibration reads and validates the calibration file at path.
func LoadCalibration(path string) (*Calibration, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading calibration file %q", path)
	}
	calib, err := ParseCalibration(data)
	if err != nil {
		return nil, errors.Wrapf(err, "calibration file %q", path)
	}
	return calib, nil
}

// Marshal encodes a valid calibration in the layout ParseCalibration reads.
func (c *Calibration) Marshal() ([]byte, error) {
	if err := c.CheckValid(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, errors.Wrap(err, "cannot encode calibration")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "cannot encode calibration")
	}
	return buf.Bytes(), nil
}

// WriteCalibration writes c to path, creating its directory.
func WriteCalibration(path string, c *Calibration) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrapf(err, "cannot create directory for %q", path)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "cannot write calibration file %q", path)
	}
	return nil
}

// LocateCalibration returns the first of paths that exists. Absence is not an error.
func LocateCalibration(paths []string) (string, bool) {
	if len(paths) == 0 {
		paths = DefaultCalibrationPaths
	}
	return utils.FirstExistingFile(paths...)
}

// CheckValid checks that the camera matrix is exactly 3x3 with positive focal terms, a
// bottom-right 1 and finite entries, and that there are at most 14 finite distortion
// coefficients, the longest list OpenCV writes.
func (c *Calibration) CheckValid() error {
	if c == nil {
		return NewMalformedCalibrationError("calibration does not exist")
	}
	if c.CameraMatrix == nil {
		return NewMalformedCalibrationError("camera_matrix is missing")
	}
	if len(c.CameraMatrix) != 3 {
		return NewMalformedCalibrationError(fmt.Sprintf("camera_matrix must have 3 rows, got %d", len(c.CameraMatrix)))
	}
	for i, row := range c.CameraMatrix {
		if len(row) != 3 {
			return NewMalformedCalibrationError(fmt.Sprintf("camera_matrix row %d must have 3 columns, got %d", i, len(row)))
		}
		if !utils.IsFinite(row...) {
			return NewMalformedCalibrationError(fmt.Sprintf("camera_matrix row %d is not finite", i))
		}
	}
	k := c.CameraMatrix
	if k[0][0] <= 0 || k[1][1] <= 0 {
		return NewMalformedCalibrationError(fmt.Sprintf("focal lengths must be positive, got fx=%v fy=%v", k[0][0], k[1][1]))
	}
	if k[2][2] != 1 {
		return NewMalformedCalibrationError(fmt.Sprintf("camera_matrix bottom-right must be 1, got %v", k[2][2]))
	}
	if len(c.DistCoeffs) > maxBrownConradyParameters {
		return NewMalformedCalibrationError(fmt.Sprintf("dist_coeffs supports at most %d values, got %d",
			maxBrownConradyParameters, len(c.DistCoeffs)))
	}
	if !utils.IsFinite(c.DistCoeffs...) {
		return NewMalformedCalibrationError("dist_coeffs must be finite")
	}
	if c.ImageSize != nil && (len(c.ImageSize) != 2 || c.ImageSize[0] <= 0 || c.ImageSize[1] <= 0) {
		return NewMalformedCalibrationError(fmt.Sprintf("image_size must be [width, height], got %v", c.ImageSize))
	}
	return nil
}

// MatchesSize reports whether the calibration was made at width x height. A calibration without
// an image_size matches every size.
func (c *Calibration) MatchesSize(width, height int) bool {
	if len(c.ImageSize) != 2 {
		return true
	}
	return c.ImageSize[0] == width && c.ImageSize[1] == height
}

// CameraModel builds the calibrated model for frames of the given size. The camera matrix and
// distortion coefficients are used verbatim.
func (c *Calibration) CameraModel(width, height int) (*CameraModel, error) {
	if err := c.CheckValid(); err != nil {
		return nil, err
	}
	k := c.CameraMatrix
	cm, err := NewCameraModel(width, height, [9]float64{
		k[0][0], k[0][1], k[0][2],
		k[1][0], k[1][1], k[1][2],
		k[2][0], k[2][1], k[2][2],
	}, c.DistCoeffs)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedCalibration, err.Error())
	}
	cm.Calibrated = true
	return cm, nil
}
