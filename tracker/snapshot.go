package tracker

import (
	"fmt"
	"image"
	"path/filepath"

	"go.viam.com/tagpose/vision/overlay"
)

// ImageSnapshots writes every Every'th annotated frame to Dir, rendered with the pure Go image
// canvas. Frames wider than MaxWidth are downscaled first when MaxWidth is positive.
type ImageSnapshots[F Frame] struct {
	Dir      string
	Every    int
	Format   overlay.ImageFormat
	MaxWidth int
	ToImage  func(F) (image.Image, error)
}

// Snapshot implements Snapshotter.
func (s *ImageSnapshots[F]) Snapshot(frame F, a *overlay.Annotation, index int) error {
	if s.Dir == "" || s.Every <= 0 || index%s.Every != 0 {
		return nil
	}
	img, err := s.ToImage(frame)
	if err != nil {
		return err
	}
	rendered := overlay.RenderImage(img, a)
	return overlay.SaveImage(s.Path(index), overlay.Downscale(rendered, s.MaxWidth), s.Format)
}

// Path is where the snapshot of frame index is written.
func (s *ImageSnapshots[F]) Path(index int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("frame_%06d%s", index, s.Format.Extension()))
}
