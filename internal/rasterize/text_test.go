package rasterize

import "testing"

func TestTextRenderProducesInk(t *testing.T) {
	r, err := newTextRenderer("")
	if err != nil {
		t.Fatalf("newTextRenderer failed: %v", err)
	}

	img, err := r.Render("Pythagoras", 32, false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	inked := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			inked++
		}
	}
	if inked == 0 {
		t.Fatalf("rendered text has no opaque pixels")
	}
}

func TestTextRenderScalesWithFontSize(t *testing.T) {
	r, err := newTextRenderer("")
	if err != nil {
		t.Fatalf("newTextRenderer failed: %v", err)
	}

	small, err := r.Render("abc", 20, false)
	if err != nil {
		t.Fatal(err)
	}
	large, err := r.Render("abc", 60, false)
	if err != nil {
		t.Fatal(err)
	}

	if large.Bounds().Dx() <= small.Bounds().Dx() || large.Bounds().Dy() <= small.Bounds().Dy() {
		t.Errorf("larger font did not produce a larger bitmap: %v vs %v",
			small.Bounds(), large.Bounds())
	}
}

func TestTextRenderMultiline(t *testing.T) {
	r, err := newTextRenderer("")
	if err != nil {
		t.Fatalf("newTextRenderer failed: %v", err)
	}

	one, err := r.Render("line", 32, false)
	if err != nil {
		t.Fatal(err)
	}
	three, err := r.Render("line\nline\nline", 32, false)
	if err != nil {
		t.Fatal(err)
	}

	if three.Bounds().Dy() <= 2*one.Bounds().Dy()-4*textPadding {
		t.Errorf("three lines not taller than two: %v vs %v", one.Bounds(), three.Bounds())
	}
}

func TestStripMath(t *testing.T) {
	cases := map[string]string{
		"$x^2$":       "x^2",
		"$$E = mc$$":  "E = mc",
		"plain":       "plain",
		"\\(a + b\\)": "a + b",
	}
	for in, want := range cases {
		if got := stripMath(in); got != want {
			t.Errorf("stripMath(%q): expected %q, got %q", in, want, got)
		}
	}
}
