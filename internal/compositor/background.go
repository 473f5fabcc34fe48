package compositor

import (
	"image"
	"math/rand"
)

// NewBlackboardBackground builds the immutable board texture: a dark
// slate base with light noise and sparse chalk dust. The seed is fixed
// so every step of a run composites onto an identical background.
func NewBlackboardBackground(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	r := rand.New(rand.NewSource(1))

	for i := 0; i < len(img.Pix); i += 4 {
		v := 30 + int(r.NormFloat64()*5)
		if v < 10 {
			v = 10
		}
		if v > 50 {
			v = 50
		}
		if r.Float64() > 0.995 {
			v = 70 // chalk dust
		}
		img.Pix[i+0] = uint8(v)
		img.Pix[i+1] = uint8(v)
		img.Pix[i+2] = uint8(v)
		img.Pix[i+3] = 255
	}
	return img
}
