//go:build cgo && !no_cgo

package main

import (
	"context"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"go.viam.com/tagpose/components/camera/webcam"
	"go.viam.com/tagpose/config"
	"go.viam.com/tagpose/logging"
	"go.viam.com/tagpose/rimage/transform"
	"go.viam.com/tagpose/tracker"
	"go.viam.com/tagpose/vision/fiducial"
	"go.viam.com/tagpose/vision/fiducial/aruco"
	"go.viam.com/tagpose/vision/overlay"
	"go.viam.com/tagpose/vision/overlay/cvrender"
)

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) (err error) {
	snapshotFormat, err := overlay.ParseImageFormat(cfg.SnapshotFormat)
	if err != nil {
		return err
	}
	paths := cfg.CalibrationPaths
	if len(paths) == 0 {
		paths = transform.DefaultCalibrationPaths
	}
	resolver, err := transform.NewCameraModelResolverFromPaths(paths, logger.Sublogger("calibration"))
	if err != nil {
		return err
	}
	object, err := fiducial.NewObjectModel(cfg.TagSizeM)
	if err != nil {
		return err
	}
	pipeline := tracker.NewPipeline(
		resolver,
		transform.NewIterativePnP(cfg.MaxReprojectionErrorPx),
		object,
		cfg.AxisLengthM,
		logger.Sublogger("pipeline"),
	)

	cam, err := webcam.Open(cfg.CameraIndices(), logger.Sublogger("camera"))
	if err != nil {
		return err
	}
	detector := aruco.NewDetector(logger.Sublogger("detector"))
	window := cvrender.NewWindow(cfg.WindowName)
	defer func() {
		err = multierr.Combine(err, window.Close(), detector.Close(), cam.Close())
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if cfg.WatchCalibration && resolver.Calibrated() {
		watcher, werr := transform.NewCalibrationWatcher(resolver.Source(), logger.Sublogger("calibration"))
		if werr != nil {
			return werr
		}
		defer func() {
			err = multierr.Combine(err, watcher.Close())
		}()
		pipeline.WatchCalibration(watcher)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	stats := tracker.NewStats(nil)
	loop := &tracker.Loop[gocv.Mat]{
		Source:   cam,
		Detector: detector,
		Display:  window,
		Pipeline: pipeline,
		Logger:   logger.Sublogger("loop").WithFields("camera", cam.Index()),
		OnResult: func(_ int, r tracker.Result) {
			stats.Observe(r)
		},
	}
	if cfg.SnapshotDir != "" {
		loop.Snapshots = &tracker.ImageSnapshots[gocv.Mat]{
			Dir:      cfg.SnapshotDir,
			Every:    cfg.SnapshotEvery,
			Format:   snapshotFormat,
			MaxWidth: cfg.SnapshotMaxWidth,
			ToImage:  cvrender.ToImage,
		}
	}

	logger.Infow("tracking",
		"camera", cam.Index(), "calibrated", pipeline.Calibrated(), "tag_size_m", pipeline.Object().TagSize())
	// the display must stay on this goroutine
	loopErr := loop.Run(ctx)
	cancel()
	logger.Info("run summary\n" + stats.Summary().String())
	return multierr.Combine(loopErr, g.Wait())
}
