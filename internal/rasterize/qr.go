package rasterize

import (
	"image"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSizePx = 360

// renderQR builds the chalk-on-transparent QR card used by the outro
// step that links viewers to the lecture materials.
func renderQR(url string) (*image.RGBA, error) {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	q.ForegroundColor = chalk
	q.BackgroundColor = color.RGBA{}
	return toRGBA(q.Image(qrSizePx)), nil
}
