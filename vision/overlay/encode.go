package overlay

import (
	"bufio"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
)

// ImageFormat is a file format annotated frames can be written in.
type ImageFormat string

// The supported formats.
const (
	FormatPNG  = ImageFormat("png")
	FormatJPEG = ImageFormat("jpeg")
	FormatPPM  = ImageFormat("ppm")
	FormatQOI  = ImageFormat("qoi")
)

const jpegQuality = 90

// ParseImageFormat returns the format named by s. The empty string is PNG.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "ppm":
		return FormatPPM, nil
	case "qoi":
		return FormatQOI, nil
	default:
		return "", errors.Errorf("unsupported image format %q", s)
	}
}

// Extension is the file extension for the format, with its dot.
func (f ImageFormat) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	if f == "" {
		return ".png"
	}
	return "." + string(f)
}

// EncodeImage writes img to w in format f.
func EncodeImage(w io.Writer, img image.Image, f ImageFormat) error {
	switch f {
	case FormatPNG, "":
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case FormatPPM:
		return ppm.Encode(w, img)
	case FormatQOI:
		return qoi.Encode(w, img)
	default:
		return errors.Errorf("unsupported image format %q", f)
	}
}

// SaveImage writes img to path in format f, creating its directory if needed.
func SaveImage(path string, img image.Image, f ImageFormat) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrapf(err, "cannot create snapshot directory for %q", path)
	}
	//nolint:gosec
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot write snapshot %q", path)
	}
	defer func() {
		err = multierr.Combine(err, file.Close())
	}()
	w := bufio.NewWriter(file)
	if err := EncodeImage(w, img, f); err != nil {
		return errors.Wrapf(err, "cannot encode snapshot %q", path)
	}
	return w.Flush()
}

// Downscale shrinks img to maxWidth pixels wide, keeping its aspect ratio. Images that are
// already narrow enough, or a non-positive maxWidth, are returned as is.
func Downscale(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}
