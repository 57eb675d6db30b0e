//go:build cgo && !no_cgo

package main

import (
	"context"
	"io"
	"strconv"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tagpose/components/camera/webcam"
	"go.viam.com/tagpose/logging"
	"go.viam.com/tagpose/rimage/calibrate"
	"go.viam.com/tagpose/rimage/transform"
	"go.viam.com/tagpose/vision/overlay"
	"go.viam.com/tagpose/vision/overlay/cvrender"
)

func calibrateCamera(ctx context.Context, opts calibrate.Options, logger logging.Logger) (err error) {
	session, err := calibrate.NewSession(opts.Board, opts.MinCaptures)
	if err != nil {
		return err
	}
	cam, err := webcam.Open([]int{opts.CameraIndex}, logger.Sublogger("camera"))
	if err != nil {
		return err
	}
	finder, err := calibrate.NewChessboardFinder(opts.Board)
	if err != nil {
		return multierr.Combine(err, cam.Close())
	}
	window := cvrender.NewWindow(opts.WindowName)
	defer func() {
		err = multierr.Combine(err, window.Close(), finder.Close(), cam.Close())
	}()

	logger.Infow("capturing chessboard views",
		"camera", cam.Index(), "cols", opts.Board.Cols, "rows", opts.Board.Rows, "min_captures", opts.MinCaptures)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := cam.Read(ctx)
		if errors.Is(err, io.EOF) {
			logger.Warnw("stream ended before calibration", "captures", session.Len())
			return nil
		}
		if err != nil {
			return err
		}

		found, err := finder.Find(frame)
		if err != nil {
			return err
		}
		if err := finder.Draw(&frame, found); err != nil {
			return err
		}
		a := &overlay.Annotation{}
		if found {
			a.AddText(r2.Point{X: 10, Y: 30}, calibrate.FoundText, overlay.Green, 0.6)
		} else {
			a.AddText(r2.Point{X: 10, Y: 30}, calibrate.NotFoundText, overlay.Red, 0.6)
		}
		a.AddText(r2.Point{X: 10, Y: 60}, "Captures: "+strconv.Itoa(session.Len()), overlay.White, 0.6)

		switch calibrate.KeyAction(window.ShowKey(frame, a)) {
		case calibrate.ActionQuit:
			logger.Infow("calibration aborted", "captures", session.Len())
			return nil
		case calibrate.ActionCapture:
			if !found {
				continue
			}
			corners, err := finder.Refine()
			if err != nil {
				return err
			}
			if err := session.Add(corners, frame.Cols(), frame.Rows()); err != nil {
				return err
			}
			logger.Infow("captured", "captures", session.Len())
		case calibrate.ActionCalibrate:
			if !session.Ready() {
				logger.Warnw("need more captures for a decent calibration",
					"captures", session.Len(), "min_captures", opts.MinCaptures)
				continue
			}
			return finishCalibration(session, opts.OutputPath, logger)
		case calibrate.ActionNone:
		}
	}
}

func finishCalibration(session *calibrate.Session, path string, logger logging.Logger) error {
	if cov, err := session.Coverage(); err == nil {
		logger.Infow("corner coverage", "coverage", cov.String())
	}
	calib, err := calibrate.Calibrate(session)
	if err != nil {
		return err
	}
	if err := transform.WriteCalibration(path, calib); err != nil {
		return err
	}
	logger.Infow("saved calibration", "path", path, "reprojection_error", *calib.ReprojectionError)
	return nil
}
