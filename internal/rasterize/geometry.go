package rasterize

import (
	"fmt"
	"strings"

	"image"

	"github.com/gen2brain/go-fitz"
)

const geometryDPI = 144

// renderGeometry rasterizes SVG content through MuPDF. The script may
// carry either a full SVG document or bare path data, which is wrapped
// in a chalk-stroked document first.
func renderGeometry(content string) (*image.RGBA, error) {
	svg := content
	if !strings.Contains(content, "<svg") {
		svg = wrapPath(content)
	}

	doc, err := fitz.NewFromMemory([]byte(svg))
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("geometry: empty document")
	}

	img, err := doc.ImageDPI(0, geometryDPI)
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	return trim(toRGBA(img)), nil
}

func wrapPath(path string) string {
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 200">`+
			`<path d=%q fill="none" stroke="#f0f0eb" stroke-width="3"/></svg>`,
		path,
	)
}
