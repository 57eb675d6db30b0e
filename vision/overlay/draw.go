package overlay

import (
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// nominalFontSize is the font size in points that a Text of scale 1 is drawn at.
const nominalFontSize = 30

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// ImageCanvas draws annotations onto a copy of an image with gg.
type ImageCanvas struct {
	dc *gg.Context
}

// NewImageCanvas returns a canvas holding a copy of img.
func NewImageCanvas(img image.Image) *ImageCanvas {
	return &ImageCanvas{dc: gg.NewContextForImage(img)}
}

// DrawPolygon implements Canvas.
func (ic *ImageCanvas) DrawPolygon(p Polygon) {
	if len(p.Points) == 0 {
		return
	}
	ic.dc.NewSubPath()
	for _, pt := range p.Points {
		ic.dc.LineTo(pt.X, pt.Y)
	}
	ic.dc.ClosePath()
	ic.dc.SetColor(p.Color)
	ic.dc.SetLineWidth(p.Thickness)
	ic.dc.Stroke()
}

// DrawLine implements Canvas.
func (ic *ImageCanvas) DrawLine(l Line) {
	ic.dc.SetColor(l.Color)
	ic.dc.DrawLine(l.From.X, l.From.Y, l.To.X, l.To.Y)
	ic.dc.SetLineWidth(l.Thickness)
	ic.dc.Stroke()
}

// DrawCircle implements Canvas.
func (ic *ImageCanvas) DrawCircle(c Circle) {
	ic.dc.SetColor(c.Color)
	ic.dc.DrawCircle(c.Center.X, c.Center.Y, c.Radius)
	if c.Filled {
		ic.dc.Fill()
		return
	}
	ic.dc.SetLineWidth(1)
	ic.dc.Stroke()
}

// DrawText implements Canvas.
func (ic *ImageCanvas) DrawText(t Text) {
	ic.dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: nominalFontSize * t.Scale}))
	ic.dc.SetColor(t.Color)
	ic.dc.DrawString(t.Value, t.Position.X, t.Position.Y)
}

// Image returns the annotated image.
func (ic *ImageCanvas) Image() image.Image {
	return ic.dc.Image()
}

// Save writes the annotated image to path in format f.
func (ic *ImageCanvas) Save(path string, f ImageFormat) error {
	return SaveImage(path, ic.Image(), f)
}

// RenderImage draws a on a copy of img and returns it.
func RenderImage(img image.Image, a *Annotation) image.Image {
	ic := NewImageCanvas(img)
	a.Draw(ic)
	return ic.Image()
}
