package calibrate

import (
	"github.com/pkg/errors"
)

// Keys of the calibration window.
const (
	CaptureKey = ' '
	QuitKey    = 'q'
)

// Action is what a key press asks the calibration loop to do.
type Action int

// Actions of the calibration loop.
const (
	ActionNone Action = iota
	ActionCapture
	ActionCalibrate
	ActionQuit
)

// KeyAction maps a key code from the window to an action. ENTER is accepted as carriage return
// or line feed since window toolkits differ.
func KeyAction(key int) Action {
	switch key {
	case CaptureKey:
		return ActionCapture
	case '\r', '\n':
		return ActionCalibrate
	case QuitKey:
		return ActionQuit
	default:
		return ActionNone
	}
}

// Status lines drawn over the live view.
const (
	FoundText    = "Chessboard FOUND - press SPACE to capture"
	NotFoundText = "Chessboard NOT found"
)

// Options configure one run of the calibration command.
type Options struct {
	CameraIndex int
	Board       Board
	MinCaptures int
	OutputPath  string
	WindowName  string
}

// DefaultOptions calibrates camera 0 with the default board into src/camera.yaml.
func DefaultOptions() Options {
	return Options{
		Board:       DefaultBoard(),
		MinCaptures: DefaultMinCaptures,
		OutputPath:  DefaultOutputPath,
		WindowName:  "camera_calibrate",
	}
}

// Validate checks the options before any device is opened.
func (o Options) Validate() error {
	if o.CameraIndex < 0 {
		return errors.Errorf("camera index must not be negative, got %d", o.CameraIndex)
	}
	if err := o.Board.Validate(); err != nil {
		return err
	}
	if o.MinCaptures < 1 {
		return errors.Errorf("minimum captures must be positive, got %d", o.MinCaptures)
	}
	if o.OutputPath == "" {
		return errors.New("output path is required")
	}
	return nil
}
