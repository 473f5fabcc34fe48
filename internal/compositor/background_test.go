package compositor

import (
	"bytes"
	"testing"
)

func TestBlackboardBackgroundIsDeterministic(t *testing.T) {
	a := NewBlackboardBackground(64, 64)
	b := NewBlackboardBackground(64, 64)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Errorf("two backgrounds of the same size differ")
	}
}

func TestBlackboardBackgroundValueRange(t *testing.T) {
	bg := NewBlackboardBackground(128, 128)
	for i := 0; i < len(bg.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := bg.Pix[i+c]
			if v < 10 || v > 70 {
				t.Fatalf("pixel %d channel %d out of range: %d", i/4, c, v)
			}
		}
		if bg.Pix[i+3] != 255 {
			t.Fatalf("pixel %d not opaque: %d", i/4, bg.Pix[i+3])
		}
	}
}
