// Package layout resolves each element of a step to a canvas-fractional
// anchor, uniformly rescaling the step's bitmaps when the declared sizes
// would not fit the safe area.
package layout

import (
	"fmt"
	"image"
	"log"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/lecture2video/internal/config"
	"github.com/ivlev/lecture2video/internal/script"
)

// WarningKind names the recoverable layout fallbacks.
type WarningKind string

const (
	WarnDegenerateSafeWidth  WarningKind = "degenerate_safe_width"
	WarnDegenerateSafeHeight WarningKind = "degenerate_safe_height"
	WarnMissingBitmap        WarningKind = "missing_bitmap"
)

// Warning is one fallback taken while laying out a step.
type Warning struct {
	Kind   WarningKind
	StepID int
	Detail string
}

// Report summarizes one step's layout pass.
type Report struct {
	Scale    float64
	Warnings []Warning
}

func (r *Report) warn(w Warning) {
	r.Warnings = append(r.Warnings, w)
}

// Log writes every warning through the standard logger.
func (r *Report) Log() {
	for _, w := range r.Warnings {
		log.Printf("[!] layout: %s: %s", w.Kind, w.Detail)
	}
}

// LayoutStep returns a copy of the step with every element's position
// resolved to a global canvas-fractional anchor and its bitmap rescaled
// if the content did not fit the safe area. Layout never fails a run;
// degenerate inputs degrade to documented defaults with a warning.
func LayoutStep(step script.Step, canvasW, canvasH int, pol config.Policy) (script.Step, Report) {
	rep := Report{Scale: 1.0}

	out := step
	out.Elements = make([]script.Element, len(step.Elements))
	copy(out.Elements, step.Elements)

	safe := step.EffectiveSafeZone(pol.CaptionReserve)
	availW := 1.0 - safe.Left - safe.Right
	availH := 1.0 - safe.Top - safe.Bottom

	if availW <= 0 {
		rep.warn(Warning{
			Kind:   WarnDegenerateSafeWidth,
			StepID: step.ID,
			Detail: fmt.Sprintf("step %d: safe width %.3f non-positive, centering horizontally on full canvas", step.ID, availW),
		})
	}
	if availH <= 0 {
		rep.warn(Warning{
			Kind:   WarnDegenerateSafeHeight,
			StepID: step.ID,
			Detail: fmt.Sprintf("step %d: safe height %.3f non-positive, centering vertically on full canvas", step.ID, availH),
		})
	}

	rescale(&out, &rep, safe, availW, availH, canvasW, canvasH)

	if out.VerticalStack() {
		stack(&out, safe, availW)
	} else {
		place(&out, safe, availW, availH)
	}

	return out, rep
}

// rescale applies the uniform min(s_v, s_h, 1.0) scale to bitmaps,
// sizes, and spacing. Content is never upscaled.
func rescale(step *script.Step, rep *Report, safe script.SafeZone, availW, availH float64, canvasW, canvasH int) {
	spacing := step.Spacing()

	totalH := 0.0
	maxW := 0.0
	sized := 0
	for i := range step.Elements {
		el := &step.Elements[i]
		if el.Bitmap == nil {
			rep.warn(Warning{
				Kind:   WarnMissingBitmap,
				StepID: step.ID,
				Detail: fmt.Sprintf("step %d: %s element has no bitmap, excluded from scaling", step.ID, el.Kind),
			})
			continue
		}
		totalH += el.Size[1]
		if el.Size[0] > maxW {
			maxW = el.Size[0]
		}
		sized++
	}
	if sized > 1 {
		totalH += spacing * float64(sized-1)
	}

	scaleV := 1.0
	if availH > 0 && totalH > 0 {
		scaleV = availH / totalH
	}
	scaleH := 1.0
	if availW > 0 && maxW > 0 {
		scaleH = availW / maxW
	}

	scale := min3(scaleV, scaleH, 1.0)
	rep.Scale = scale
	if scale >= 1.0 {
		return
	}

	sp := spacing * scale
	step.VerticalSpacing = &sp

	for i := range step.Elements {
		el := &step.Elements[i]
		if el.Bitmap == nil {
			continue
		}
		b := el.Bitmap.Bounds()
		newW := b.Dx()
		newH := b.Dy()
		newW = maxInt(1, int(float64(newW)*scale))
		newH = maxInt(1, int(float64(newH)*scale))
		el.Bitmap = resample(el.Bitmap, newW, newH)
		el.Size = [2]float64{
			float64(newW) / float64(canvasW),
			float64(newH) / float64(canvasH),
		}
	}
}

// stack lays elements top-to-bottom inside the safe area, anchoring each
// at its vertical center. An explicit x is a fraction of the safe width.
func stack(step *script.Step, safe script.SafeZone, availW float64) {
	centerX := 0.5
	if availW > 0 {
		centerX = safe.Left + availW/2
	}
	spacing := step.Spacing()

	cursor := safe.Top
	for i := range step.Elements {
		el := &step.Elements[i]
		x := centerX
		if el.Position != nil && availW > 0 {
			x = safe.Left + el.Position[0]*availW
		}
		y := cursor + el.Size[1]/2
		el.Position = []float64{x, y}
		cursor += el.Size[1] + spacing
	}
}

// place resolves explicit positions: the declared fractional position is
// relative to the safe area; a missing position means the safe-area center.
func place(step *script.Step, safe script.SafeZone, availW, availH float64) {
	for i := range step.Elements {
		el := &step.Elements[i]
		x, y := 0.5, 0.5
		relX, relY := 0.5, 0.5
		if el.Position != nil {
			relX, relY = el.Position[0], el.Position[1]
		}
		if availW > 0 {
			x = safe.Left + relX*availW
		}
		if availH > 0 {
			y = safe.Top + relY*availH
		}
		el.Position = []float64{x, y}
	}
}

// resample shrinks a bitmap to the given pixel size.
func resample(src *image.RGBA, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
