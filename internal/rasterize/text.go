package rasterize

import (
	"image"
	"image/color"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// chalk is the stroke color for text and formulas on the board.
var chalk = color.RGBA{R: 240, G: 240, B: 235, A: 255}

const (
	defaultFontSize = 32
	textPadding     = 8
	// Rendered at 2x the script's nominal point size so downscaling in
	// layout keeps edges clean.
	supersample = 2
)

type textRenderer struct {
	regular *opentype.Font
	italic  *opentype.Font
}

func newTextRenderer(fontPath string) (*textRenderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	italic, err := opentype.Parse(goitalic.TTF)
	if err != nil {
		return nil, err
	}

	if fontPath != "" {
		data, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, err
		}
		custom, err := opentype.Parse(data)
		if err != nil {
			return nil, err
		}
		regular = custom
	}

	return &textRenderer{regular: regular, italic: italic}, nil
}

// Render draws the text white-on-transparent, one bitmap line per \n.
// Formulas use the italic face.
func (t *textRenderer) Render(text string, fontSize int, italic bool) (*image.RGBA, error) {
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}
	fnt := t.regular
	if italic {
		fnt = t.italic
	}

	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(fontSize * supersample),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	defer face.Close()

	lines := strings.Split(text, "\n")
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	maxWidth := 0
	for _, line := range lines {
		w := font.MeasureString(face, line).Ceil()
		if w > maxWidth {
			maxWidth = w
		}
	}
	if maxWidth == 0 {
		maxWidth = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, maxWidth+2*textPadding, lineHeight*len(lines)+2*textPadding))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(chalk),
		Face: face,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(textPadding, textPadding+ascent+i*lineHeight)
		drawer.DrawString(line)
	}

	return img, nil
}
