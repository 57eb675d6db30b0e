// Package config defines the tracker's configuration, its defaults and its validation.
package config

import (
	"fmt"
	"math"

	"github.com/invopop/jsonschema"

	"go.viam.com/tagpose/rimage/transform"
	"go.viam.com/tagpose/utils"
	"go.viam.com/tagpose/vision/overlay"
)

// Defaults for an unconfigured tracker.
const (
	DefaultTagSize              = 0.10
	DefaultPreferredCameraIndex = 0
	DefaultFallbackCameraIndex  = 1
	DefaultWindowName           = "AprilTag_PoseDetector"
	DefaultSnapshotEvery        = 30
)

// Config describes how to run the tracker.
type Config struct {
	// TagSizeM is the edge length of the marker's black square in meters.
	TagSizeM             float64 `json:"tag_size_m"`
	PreferredCameraIndex int     `json:"preferred_camera_index"`
	FallbackCameraIndex  int     `json:"fallback_camera_index"`
	AxisLengthM          float64 `json:"axis_length_m"`
	// CalibrationPaths are probed in order for a calibration file. Empty uses the defaults.
	CalibrationPaths       []string `json:"calibration_paths,omitempty"`
	MaxReprojectionErrorPx float64  `json:"max_reprojection_error_px"`
	WindowName             string   `json:"window_name"`
	// SnapshotDir, if set, receives every SnapshotEvery'th annotated frame.
	SnapshotDir   string `json:"snapshot_dir,omitempty"`
	SnapshotEvery int    `json:"snapshot_every"`
	// SnapshotFormat is one of png, jpeg, ppm or qoi.
	SnapshotFormat   string `json:"snapshot_format"`
	SnapshotMaxWidth int    `json:"snapshot_max_width,omitempty"`
	// WatchCalibration reloads the calibration file when it changes on disk.
	WatchCalibration bool   `json:"watch_calibration,omitempty"`
	LogFile          string `json:"log_file,omitempty"`
	Debug            bool   `json:"debug"`

	ConfigFilePath string `json:"-"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		TagSizeM:               DefaultTagSize,
		PreferredCameraIndex:   DefaultPreferredCameraIndex,
		FallbackCameraIndex:    DefaultFallbackCameraIndex,
		AxisLengthM:            overlay.DefaultAxisLength,
		MaxReprojectionErrorPx: transform.DefaultMaxReprojectionError,
		WindowName:             DefaultWindowName,
		SnapshotEvery:          DefaultSnapshotEvery,
		SnapshotFormat:         string(overlay.FormatPNG),
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if !positive(c.TagSizeM) {
		return utils.NewConfigValidationFieldRangeError(path, "tag_size_m", c.TagSizeM, "positive")
	}
	if !positive(c.AxisLengthM) {
		return utils.NewConfigValidationFieldRangeError(path, "axis_length_m", c.AxisLengthM, "positive")
	}
	if !positive(c.MaxReprojectionErrorPx) {
		return utils.NewConfigValidationFieldRangeError(path, "max_reprojection_error_px", c.MaxReprojectionErrorPx, "positive")
	}
	if c.PreferredCameraIndex < 0 {
		return utils.NewConfigValidationFieldRangeError(path, "preferred_camera_index", c.PreferredCameraIndex, "non-negative")
	}
	if c.FallbackCameraIndex < 0 {
		return utils.NewConfigValidationFieldRangeError(path, "fallback_camera_index", c.FallbackCameraIndex, "non-negative")
	}
	if c.WindowName == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "window_name")
	}
	if c.SnapshotDir != "" && c.SnapshotEvery <= 0 {
		return utils.NewConfigValidationFieldRangeError(path, "snapshot_every", c.SnapshotEvery, "positive when snapshot_dir is set")
	}
	if _, err := overlay.ParseImageFormat(c.SnapshotFormat); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if c.SnapshotMaxWidth < 0 {
		return utils.NewConfigValidationFieldRangeError(path, "snapshot_max_width", c.SnapshotMaxWidth, "non-negative")
	}
	for i, p := range c.CalibrationPaths {
		if p == "" {
			return utils.NewConfigValidationFieldRequiredError(path, fmt.Sprintf("calibration_paths.%d", i))
		}
	}
	return nil
}

// CameraIndices returns the device indices to try, in order, without repeats.
func (c *Config) CameraIndices() []int {
	if c.FallbackCameraIndex == c.PreferredCameraIndex {
		return []int{c.PreferredCameraIndex}
	}
	return []int{c.PreferredCameraIndex, c.FallbackCameraIndex}
}

// Schema describes the configuration file format.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
