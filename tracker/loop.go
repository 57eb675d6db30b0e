package tracker

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"go.viam.com/tagpose/logging"
	"go.viam.com/tagpose/vision/fiducial"
	"go.viam.com/tagpose/vision/overlay"
)

// Frame is an image whose size the loop can read.
type Frame interface {
	Cols() int
	Rows() int
}

// FrameSource supplies successive frames and returns io.EOF at the end of the stream.
type FrameSource[F Frame] interface {
	Read(ctx context.Context) (F, error)
}

// Detector finds marker candidates in a frame.
type Detector[F Frame] interface {
	Detect(frame F) ([]fiducial.Candidate, error)
}

// Display presents an annotated frame and reports whether the user asked to quit.
type Display[F Frame] interface {
	Show(frame F, a *overlay.Annotation) (quit bool, err error)
}

// Snapshotter receives every annotated frame before it is displayed.
type Snapshotter[F Frame] interface {
	Snapshot(frame F, a *overlay.Annotation, index int) error
}

// Loop drives acquisition, detection, the pipeline and display, one frame at a time.
type Loop[F Frame] struct {
	Source    FrameSource[F]
	Detector  Detector[F]
	Display   Display[F]
	Snapshots Snapshotter[F]
	Pipeline  *Pipeline
	Logger    logging.Logger

	// OnResult, if set, is called with every frame's result.
	OnResult func(index int, r Result)
}

// Run processes frames until the source ends, the display asks to quit or ctx is done, all of
// which return nil. The camera model is resolved from the first frame's size before that frame is
// shown. Cancellation is only checked between frames. Any other error is fatal.
func (l *Loop[F]) Run(ctx context.Context) error {
	var lastOutcome Outcome = -1
	for index := 0; ; index++ {
		if ctx.Err() != nil {
			l.Logger.Infow("stopping", "reason", ctx.Err(), "frames", index)
			return nil
		}

		frame, err := l.Source.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.Logger.Infow("end of stream", "frames", index)
				return nil
			}
			return errors.Wrap(err, "cannot read frame")
		}
		if index == 0 {
			if err := l.Pipeline.Prime(frame.Cols(), frame.Rows()); err != nil {
				return err
			}
		}

		candidates, err := l.Detector.Detect(frame)
		if err != nil {
			l.Logger.Warnw("marker detection failed", "frame", index, "error", err)
			candidates = nil
		}

		result, err := l.Pipeline.ProcessFrame(frame.Cols(), frame.Rows(), candidates)
		if err != nil {
			return err
		}
		if result.Outcome != lastOutcome {
			l.Logger.Debugw("tracking state changed", "frame", index, "outcome", result.Outcome.String())
			lastOutcome = result.Outcome
		}
		if l.OnResult != nil {
			l.OnResult(index, result)
		}

		annotation := l.Pipeline.Annotate(result)
		if l.Snapshots != nil {
			if err := l.Snapshots.Snapshot(frame, annotation, index); err != nil {
				l.Logger.Warnw("cannot write snapshot", "frame", index, "error", err)
			}
		}

		quit, err := l.Display.Show(frame, annotation)
		if err != nil {
			return errors.Wrap(err, "cannot display frame")
		}
		if quit {
			l.Logger.Infow("quit requested", "frames", index+1)
			return nil
		}
	}
}
