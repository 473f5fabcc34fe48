package layout

import (
	"image"
	"math"
	"testing"

	"github.com/ivlev/lecture2video/internal/config"
	"github.com/ivlev/lecture2video/internal/script"
)

const canvasW, canvasH = 1000, 1000

func bitmapElement(w, h int) script.Element {
	return script.Element{
		Kind:   script.KindText,
		Bitmap: image.NewRGBA(image.Rect(0, 0, w, h)),
		Size:   [2]float64{float64(w) / canvasW, float64(h) / canvasH},
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 0.0001
}

func TestVerticalStackAnchors(t *testing.T) {
	// Safe area {top 0.05, bottom 0.15, left 0.05, right 0.40}: two
	// elements of height 0.2 and 0.1 with 0.02 spacing fit without
	// scaling and anchor at their vertical centers.
	step := script.Step{
		ID:     1,
		Layout: "vertical-stack",
		Elements: []script.Element{
			bitmapElement(300, 200),
			bitmapElement(200, 100),
		},
	}

	out, rep := LayoutStep(step, canvasW, canvasH, config.DefaultPolicy())

	if rep.Scale != 1.0 {
		t.Fatalf("expected scale 1.0, got %f", rep.Scale)
	}

	centerX := 0.05 + 0.55/2
	want := [][2]float64{
		{centerX, 0.05 + 0.1},
		{centerX, 0.05 + 0.2 + 0.02 + 0.05},
	}
	for i, w := range want {
		p := out.Elements[i].Position
		if !near(p[0], w[0]) || !near(p[1], w[1]) {
			t.Errorf("element %d: expected anchor (%.3f, %.3f), got (%.3f, %.3f)",
				i, w[0], w[1], p[0], p[1])
		}
	}
}

func TestStackedElementsDoNotOverlap(t *testing.T) {
	step := script.Step{
		ID:     1,
		Layout: "vertical-stack",
		Elements: []script.Element{
			bitmapElement(100, 150),
			bitmapElement(100, 250),
			bitmapElement(100, 120),
		},
	}

	out, _ := LayoutStep(step, canvasW, canvasH, config.DefaultPolicy())

	for i := 1; i < len(out.Elements); i++ {
		prev := out.Elements[i-1]
		cur := out.Elements[i]
		prevBottom := prev.Position[1] + prev.Size[1]/2
		curTop := cur.Position[1] - cur.Size[1]/2
		if curTop < prevBottom-0.0001 {
			t.Errorf("elements %d and %d overlap: bottom %.4f above top %.4f",
				i-1, i, prevBottom, curTop)
		}
	}
}

func TestDownscaleWhenContentOverflows(t *testing.T) {
	// 900px of height against an 800px safe band forces a shrink.
	step := script.Step{
		ID:     1,
		Layout: "vertical-stack",
		SafeZone: &script.SafeZone{
			Top: 0.1, Bottom: 0.15, Left: 0.1, Right: 0.1,
		},
		Elements: []script.Element{
			bitmapElement(400, 500),
			bitmapElement(400, 400),
		},
	}

	out, rep := LayoutStep(step, canvasW, canvasH, config.DefaultPolicy())

	if rep.Scale >= 1.0 {
		t.Fatalf("expected downscale, got scale %f", rep.Scale)
	}

	totalH := out.Elements[0].Size[1] + out.Elements[1].Size[1] + out.Spacing()
	if totalH > 0.75+0.01 {
		t.Errorf("scaled content height %.4f still exceeds safe height 0.75", totalH)
	}
	for i, el := range out.Elements {
		b := el.Bitmap.Bounds()
		if b.Dx() >= 400 {
			t.Errorf("element %d bitmap not shrunk: %dx%d", i, b.Dx(), b.Dy())
		}
	}
}

func TestContentIsNeverUpscaled(t *testing.T) {
	step := script.Step{
		ID:       1,
		Layout:   "vertical-stack",
		Elements: []script.Element{bitmapElement(50, 40)},
	}

	out, rep := LayoutStep(step, canvasW, canvasH, config.DefaultPolicy())

	if rep.Scale != 1.0 {
		t.Errorf("expected scale clamped to 1.0, got %f", rep.Scale)
	}
	b := out.Elements[0].Bitmap.Bounds()
	if b.Dx() != 50 || b.Dy() != 40 {
		t.Errorf("bitmap changed size: %dx%d", b.Dx(), b.Dy())
	}
}

func TestExplicitPlacementWithinSafeArea(t *testing.T) {
	step := script.Step{
		ID: 1,
		Elements: []script.Element{
			{
				Kind:     script.KindText,
				Bitmap:   image.NewRGBA(image.Rect(0, 0, 10, 10)),
				Size:     [2]float64{0.01, 0.01},
				Position: []float64{0.5, 0.5},
			},
			{
				Kind:   script.KindText,
				Bitmap: image.NewRGBA(image.Rect(0, 0, 10, 10)),
				Size:   [2]float64{0.01, 0.01},
			},
		},
	}

	out, _ := LayoutStep(step, canvasW, canvasH, config.DefaultPolicy())

	// (0.5, 0.5) relative to the default safe area lands at its center.
	wantX := 0.05 + 0.5*0.55
	wantY := 0.05 + 0.5*0.80
	for i := 0; i < 2; i++ {
		p := out.Elements[i].Position
		if !near(p[0], wantX) || !near(p[1], wantY) {
			t.Errorf("element %d: expected (%.4f, %.4f), got (%.4f, %.4f)",
				i, wantX, wantY, p[0], p[1])
		}
	}
}

func TestCaptionReserveFloorsBottomMargin(t *testing.T) {
	step := script.Step{
		ID:       1,
		SafeZone: &script.SafeZone{Top: 0.05, Bottom: 0.02, Left: 0.05, Right: 0.05},
		Elements: []script.Element{
			{
				Kind:     script.KindText,
				Bitmap:   image.NewRGBA(image.Rect(0, 0, 10, 10)),
				Size:     [2]float64{0.01, 0.01},
				Position: []float64{0.5, 1.0},
			},
		},
	}

	out, _ := LayoutStep(step, canvasW, canvasH, config.DefaultPolicy())

	// Bottom margin is floored at 0.15, so the lowest anchor is 0.85.
	if !near(out.Elements[0].Position[1], 0.85) {
		t.Errorf("expected y 0.85 with floored bottom margin, got %f", out.Elements[0].Position[1])
	}
}

func TestDegenerateSafeZoneFallsBackToFullCanvas(t *testing.T) {
	step := script.Step{
		ID:       1,
		SafeZone: &script.SafeZone{Top: 0.6, Bottom: 0.6, Left: 0.7, Right: 0.7},
		Elements: []script.Element{
			{
				Kind:     script.KindText,
				Bitmap:   image.NewRGBA(image.Rect(0, 0, 10, 10)),
				Size:     [2]float64{0.01, 0.01},
				Position: []float64{0.9, 0.9},
			},
		},
	}

	out, rep := LayoutStep(step, canvasW, canvasH, config.DefaultPolicy())

	p := out.Elements[0].Position
	if !near(p[0], 0.5) || !near(p[1], 0.5) {
		t.Errorf("expected full-canvas centering (0.5, 0.5), got (%.3f, %.3f)", p[0], p[1])
	}

	var gotW, gotH bool
	for _, w := range rep.Warnings {
		switch w.Kind {
		case WarnDegenerateSafeWidth:
			gotW = true
		case WarnDegenerateSafeHeight:
			gotH = true
		}
	}
	if !gotW || !gotH {
		t.Errorf("expected degenerate width and height warnings, got %v", rep.Warnings)
	}
}

func TestMissingBitmapExcludedFromScaling(t *testing.T) {
	step := script.Step{
		ID:     1,
		Layout: "vertical-stack",
		Elements: []script.Element{
			{Kind: script.KindText, Content: "no bitmap"},
			bitmapElement(100, 100),
		},
	}

	_, rep := LayoutStep(step, canvasW, canvasH, config.DefaultPolicy())

	found := false
	for _, w := range rep.Warnings {
		if w.Kind == WarnMissingBitmap {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a missing-bitmap warning")
	}
	if rep.Scale != 1.0 {
		t.Errorf("expected scale 1.0, got %f", rep.Scale)
	}
}

func TestLayoutDoesNotMutateInput(t *testing.T) {
	step := script.Step{
		ID:       1,
		Layout:   "vertical-stack",
		Elements: []script.Element{bitmapElement(100, 100)},
	}

	LayoutStep(step, canvasW, canvasH, config.DefaultPolicy())

	if step.Elements[0].Position != nil {
		t.Errorf("input element position was mutated: %v", step.Elements[0].Position)
	}
}
