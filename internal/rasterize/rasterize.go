// Package rasterize produces the bitmap for each element variant. The
// layout engine derives fractional sizes from the returned pixel
// dimensions immediately and never queries the rasterizer again.
package rasterize

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/ivlev/lecture2video/internal/script"
)

// Rasterizer turns one element's content into a bitmap.
type Rasterizer interface {
	Rasterize(el *script.Element) (*image.RGBA, error)
}

// Board is the standard rasterizer: chalk-styled text and formulas,
// SVG geometry through MuPDF, QR cards for reference links.
type Board struct {
	text *textRenderer
}

// NewBoard builds a rasterizer. fontPath may be empty, in which case the
// bundled Go fonts are used.
func NewBoard(fontPath string) (*Board, error) {
	text, err := newTextRenderer(fontPath)
	if err != nil {
		return nil, err
	}
	return &Board{text: text}, nil
}

func (b *Board) Rasterize(el *script.Element) (*image.RGBA, error) {
	switch el.Kind {
	case script.KindText:
		return b.text.Render(el.Content, el.FontSize, false)
	case script.KindFormula:
		return b.text.Render(stripMath(el.Content), el.FontSize, true)
	case script.KindGeometry:
		return renderGeometry(el.Content)
	case script.KindQR:
		return renderQR(el.Content)
	}
	return nil, fmt.Errorf("rasterize: unsupported element kind %q", el.Kind)
}

// stripMath removes TeX math delimiters so formulas render through the
// text path until a real typesetter is plugged in.
func stripMath(s string) string {
	for _, d := range [][2]string{{"$$", "$$"}, {"$", "$"}, {"\\(", "\\)"}, {"\\[", "\\]"}} {
		if len(s) >= len(d[0])+len(d[1]) && strings.HasPrefix(s, d[0]) && strings.HasSuffix(s, d[1]) {
			return s[len(d[0]) : len(s)-len(d[1])]
		}
	}
	return s
}

// toRGBA normalizes any decoded image into a zero-origin RGBA buffer.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

// trim crops fully transparent margins, leaving a two-pixel border.
func trim(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Pix[img.PixOffset(x, y)+3] > 0 {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < minX || maxY < minY {
		return img
	}
	minX = max(b.Min.X, minX-2)
	minY = max(b.Min.Y, minY-2)
	maxX = min(b.Max.X-1, maxX+2)
	maxY = min(b.Max.Y-1, maxY+2)

	cropped := image.NewRGBA(image.Rect(0, 0, maxX-minX+1, maxY-minY+1))
	draw.Draw(cropped, cropped.Bounds(), img, image.Point{X: minX, Y: minY}, draw.Src)
	return cropped
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
