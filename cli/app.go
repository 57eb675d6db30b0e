// Package cli builds the tagpose command line: flags, configuration merging and logger setup.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/tagpose/config"
	"go.viam.com/tagpose/logging"
	"go.viam.com/tagpose/rimage/calibrate"
)

const (
	// Flags.
	flagConfig               = "config"
	flagTagSize              = "tag-size"
	flagCamera               = "camera"
	flagFallbackCamera       = "fallback-camera"
	flagAxisLength           = "axis-length"
	flagCalibration          = "calibration"
	flagMaxReprojectionError = "max-reprojection-error"
	flagWindow               = "window"
	flagSnapshotDir          = "snapshot-dir"
	flagSnapshotEvery        = "snapshot-every"
	flagSnapshotFormat       = "snapshot-format"
	flagSnapshotMaxWidth     = "snapshot-max-width"
	flagWatchCalibration     = "watch-calibration"
	flagLogFile              = "log-file"
	flagDebug                = "debug"

	// Calibrate flags.
	flagCols        = "cols"
	flagRows        = "rows"
	flagSquareSize  = "square-size"
	flagMinCaptures = "min-captures"
	flagOut         = "out"

	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
)

// RunFunc runs the tracker with a validated configuration. It returns when the stream ends, the
// user quits or ctx is done.
type RunFunc func(ctx context.Context, cfg *config.Config, logger logging.Logger) error

// CalibrateFunc captures chessboard views and writes the calibration file.
type CalibrateFunc func(ctx context.Context, opts calibrate.Options, logger logging.Logger) error

// NewApp returns the tagpose app, with Writer set to out and ErrWriter set to errOut. Log
// output goes to out and, if configured, to a rotating log file.
func NewApp(out, errOut io.Writer, run RunFunc, calib CalibrateFunc) *cli.App {
	return &cli.App{
		Name:            "tagpose",
		Usage:           "track an AprilTag with a webcam and show its pose",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from JSON `FILE`",
			},
			&cli.Float64Flag{
				Name:  flagTagSize,
				Usage: "marker edge length in meters",
				Value: config.DefaultTagSize,
			},
			&cli.IntFlag{
				Name:  flagCamera,
				Usage: "preferred camera device index",
				Value: config.DefaultPreferredCameraIndex,
			},
			&cli.IntFlag{
				Name:  flagFallbackCamera,
				Usage: "camera device index tried when the preferred one cannot be opened",
				Value: config.DefaultFallbackCameraIndex,
			},
			&cli.Float64Flag{
				Name:  flagAxisLength,
				Usage: "length of the drawn axes in meters",
			},
			&cli.StringSliceFlag{
				Name:  flagCalibration,
				Usage: "calibration `FILE` to probe, may be repeated",
			},
			&cli.Float64Flag{
				Name:  flagMaxReprojectionError,
				Usage: "largest RMS reprojection error in pixels for an accepted pose",
			},
			&cli.StringFlag{
				Name:  flagWindow,
				Usage: "window title",
			},
			&cli.StringFlag{
				Name:  flagSnapshotDir,
				Usage: "write annotated frames as PNG into `DIR`",
			},
			&cli.IntFlag{
				Name:  flagSnapshotEvery,
				Usage: "write one snapshot every N frames",
			},
			&cli.StringFlag{
				Name:  flagSnapshotFormat,
				Usage: "snapshot image format: png, jpeg, ppm or qoi",
			},
			&cli.IntFlag{
				Name:  flagSnapshotMaxWidth,
				Usage: "downscale snapshots wider than `PIXELS`",
			},
			&cli.BoolFlag{
				Name:  flagWatchCalibration,
				Usage: "reload the calibration file when it changes",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the configuration file",
				Action: SchemaAction,
			},
			calibrateCommand(calib),
		},
		Action: func(c *cli.Context) (err error) {
			cfg, err := ConfigFromContext(c)
			if err != nil {
				return err
			}
			logger, closer := NewLogger(cfg, c.App.Writer)
			logging.ReplaceGlobal(logger)
			defer func() {
				err = multierr.Combine(err, logger.Sync(), closer.Close())
			}()
			logger.Infow("starting", "tag_size_m", cfg.TagSizeM, "cameras", cfg.CameraIndices())
			if err := run(c.Context, cfg, logger); err != nil {
				logger.Errorw("tracker stopped", "error", err)
				return err
			}
			return nil
		},
	}
}

func calibrateCommand(calib CalibrateFunc) *cli.Command {
	defaults := calibrate.DefaultOptions()
	return &cli.Command{
		Name:  "calibrate",
		Usage: "calibrate a camera from views of a printed chessboard",
		Description: "SPACE captures the current view when the board is found, ENTER calibrates once " +
			"enough views are captured and writes the calibration file, q quits.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  flagCamera,
				Usage: "camera device index",
				Value: defaults.CameraIndex,
			},
			&cli.IntFlag{
				Name:  flagCols,
				Usage: "inner corners per chessboard row",
				Value: defaults.Board.Cols,
			},
			&cli.IntFlag{
				Name:  flagRows,
				Usage: "inner corners per chessboard column",
				Value: defaults.Board.Rows,
			},
			&cli.Float64Flag{
				Name:  flagSquareSize,
				Usage: "chessboard square edge in meters",
				Value: defaults.Board.SquareSize,
			},
			&cli.IntFlag{
				Name:  flagMinCaptures,
				Usage: "views needed before calibrating",
				Value: defaults.MinCaptures,
			},
			&cli.StringFlag{
				Name:  flagOut,
				Usage: "write the calibration to `FILE`",
				Value: defaults.OutputPath,
			},
			&cli.StringFlag{
				Name:  flagWindow,
				Usage: "window title",
				Value: defaults.WindowName,
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: func(c *cli.Context) (err error) {
			opts := calibrate.Options{
				CameraIndex: c.Int(flagCamera),
				Board: calibrate.Board{
					Cols:       c.Int(flagCols),
					Rows:       c.Int(flagRows),
					SquareSize: c.Float64(flagSquareSize),
				},
				MinCaptures: c.Int(flagMinCaptures),
				OutputPath:  c.String(flagOut),
				WindowName:  c.String(flagWindow),
			}
			if err := opts.Validate(); err != nil {
				return errors.Wrap(err, "invalid calibration options")
			}
			logger := newLogger(c.Bool(flagDebug), c.App.Writer)
			defer func() {
				err = multierr.Combine(err, logger.Sync())
			}()
			if err := calib(c.Context, opts, logger); err != nil {
				logger.Errorw("calibration failed", "error", err)
				return err
			}
			return nil
		},
	}
}

// SchemaAction prints the configuration file's JSON schema.
func SchemaAction(c *cli.Context) error {
	data, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal configuration schema")
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

// ConfigFromContext loads the configuration file, if any, and applies the flags that were set
// on the command line on top of it.
func ConfigFromContext(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	path := "flags"
	if c.IsSet(flagConfig) {
		path = c.String(flagConfig)
		var err error
		cfg, err = config.Read(path, logging.NewBlankLogger("config"))
		if err != nil {
			return nil, errors.Wrap(err, "cannot load configuration")
		}
	}

	if c.IsSet(flagTagSize) {
		cfg.TagSizeM = c.Float64(flagTagSize)
	}
	if c.IsSet(flagCamera) {
		cfg.PreferredCameraIndex = c.Int(flagCamera)
	}
	if c.IsSet(flagFallbackCamera) {
		cfg.FallbackCameraIndex = c.Int(flagFallbackCamera)
	}
	if c.IsSet(flagAxisLength) {
		cfg.AxisLengthM = c.Float64(flagAxisLength)
	}
	if c.IsSet(flagCalibration) {
		cfg.CalibrationPaths = c.StringSlice(flagCalibration)
	}
	if c.IsSet(flagMaxReprojectionError) {
		cfg.MaxReprojectionErrorPx = c.Float64(flagMaxReprojectionError)
	}
	if c.IsSet(flagWindow) {
		cfg.WindowName = c.String(flagWindow)
	}
	if c.IsSet(flagSnapshotDir) {
		cfg.SnapshotDir = c.String(flagSnapshotDir)
	}
	if c.IsSet(flagSnapshotEvery) {
		cfg.SnapshotEvery = c.Int(flagSnapshotEvery)
	}
	if c.IsSet(flagSnapshotFormat) {
		cfg.SnapshotFormat = c.String(flagSnapshotFormat)
	}
	if c.IsSet(flagSnapshotMaxWidth) {
		cfg.SnapshotMaxWidth = c.Int(flagSnapshotMaxWidth)
	}
	if c.IsSet(flagWatchCalibration) {
		cfg.WatchCalibration = c.Bool(flagWatchCalibration)
	}
	if c.IsSet(flagLogFile) {
		cfg.LogFile = c.String(flagLogFile)
	}
	if c.IsSet(flagDebug) {
		cfg.Debug = c.Bool(flagDebug)
	}

	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger returns a logger writing to out and, when cfg.LogFile is set, to a rotating file.
// The closer releases the file.
func NewLogger(cfg *config.Config, out io.Writer) (logging.Logger, io.Closer) {
	logger := newLogger(cfg.Debug, out)
	if cfg.LogFile == "" {
		return logger, nopCloser{}
	}
	appender, closer := logging.NewFileAppender(cfg.LogFile, logFileMaxSizeMB, logFileMaxBackups)
	logger.AddAppender(appender)
	return logger, closer
}

func newLogger(debug bool, out io.Writer) logging.Logger {
	logger := logging.NewBlankLogger("tagpose")
	logger.AddAppender(logging.NewWriterAppender(out))
	if !debug {
		logger.SetLevel(logging.INFO)
	}
	return logger
}
