// Package compositor turns a laid-out step into an ordered sequence of
// composited frames: per-element opacity ramps over a z-sorted painter's
// pass onto a fresh copy of the background.
package compositor

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ivlev/lecture2video/internal/script"
	"github.com/ivlev/lecture2video/internal/system"
)

// FrameSink receives composited frames in increasing index order.
// The frame buffer is only valid for the duration of the call.
type FrameSink interface {
	WriteFrame(frame *image.RGBA) error
}

// TimelineEntry is the per-element render state derived for one step and
// discarded after the step's frames are emitted.
type TimelineEntry struct {
	Bitmap        *image.RGBA
	PixelX        int
	PixelY        int
	StartFrame    int
	EndFrame      int
	FadeInFrames  int
	FadeOutFrames int
	ZIndex        int
}

// TotalFrames returns the frame count for a step at the given rate.
func TotalFrames(duration float64, frameRate int) int {
	return int(math.Round(duration * float64(frameRate)))
}

// BuildTimeline derives the timeline entries for a step, sorted by
// ascending z-index. Elements without a bitmap are skipped.
func BuildTimeline(step *script.Step, frameRate, canvasW, canvasH int) []TimelineEntry {
	total := TotalFrames(step.Duration, frameRate)
	entries := make([]TimelineEntry, 0, len(step.Elements))

	for i := range step.Elements {
		el := &step.Elements[i]
		if el.Bitmap == nil {
			continue
		}

		fracX, fracY := 0.5, 0.5
		if el.Position != nil {
			fracX, fracY = el.Position[0], el.Position[1]
		}

		entry := TimelineEntry{
			Bitmap:     el.Bitmap,
			PixelX:     int(fracX * float64(canvasW)),
			PixelY:     int(fracY * float64(canvasH)),
			StartFrame: 0,
			EndFrame:   total,
			ZIndex:     el.PaintOrder(),
		}
		if el.Start != nil {
			entry.StartFrame = clampInt(TotalFrames(*el.Start, frameRate), 0, total)
		}
		if el.End != nil {
			entry.EndFrame = clampInt(TotalFrames(*el.End, frameRate), entry.StartFrame, total)
		}
		if el.Animation != nil {
			frames := TotalFrames(el.Animation.Duration, frameRate)
			if el.Animation.Enter != "" {
				entry.FadeInFrames = frames
			}
			if el.Animation.Exit != "" {
				entry.FadeOutFrames = frames
			}
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ZIndex < entries[j].ZIndex
	})
	return entries
}

// Alpha returns the element's opacity at the given frame: a linear ramp
// while fading, 1.0 while fully visible, 0 outside its range.
func (e *TimelineEntry) Alpha(frame int) float64 {
	if frame < e.StartFrame || frame >= e.EndFrame {
		return 0
	}
	if e.FadeInFrames > 0 && frame < e.StartFrame+e.FadeInFrames {
		return float64(frame-e.StartFrame) / float64(e.FadeInFrames)
	}
	if e.FadeOutFrames > 0 && frame >= e.EndFrame-e.FadeOutFrames {
		return float64(e.EndFrame-frame) / float64(e.FadeOutFrames)
	}
	return 1.0
}

// RenderStep composites and emits every frame of one step, in order.
// The background is never written to; each frame starts as a copy of it.
func RenderStep(step *script.Step, frameRate int, background *image.RGBA, sink FrameSink) error {
	bounds := background.Bounds()
	canvasW, canvasH := bounds.Dx(), bounds.Dy()
	total := TotalFrames(step.Duration, frameRate)
	timeline := BuildTimeline(step, frameRate, canvasW, canvasH)

	frame := system.GetImage(bounds)
	defer system.PutImage(frame)

	for f := 0; f < total; f++ {
		copy(frame.Pix, background.Pix)

		for i := range timeline {
			entry := &timeline[i]
			a := entry.Alpha(f)
			if a <= 0 {
				continue
			}
			blend(frame, entry.Bitmap, entry.PixelX, entry.PixelY, a)
		}

		if err := sink.WriteFrame(frame); err != nil {
			return fmt.Errorf("step %d frame %d: %w", step.ID, f, err)
		}
	}
	return nil
}

// blend alpha-composites src onto dst centered at (cx, cy). The bitmap is
// shifted, never scaled, to stay on the canvas, and cropped when it is
// larger than the canvas itself.
func blend(dst, src *image.RGBA, cx, cy int, globalAlpha float64) {
	dstW, dstH := dst.Bounds().Dx(), dst.Bounds().Dy()
	srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()

	x := cx - srcW/2
	y := cy - srcH/2

	// Shift back inside the canvas.
	if x+srcW > dstW {
		x = dstW - srcW
	}
	if y+srcH > dstH {
		y = dstH - srcH
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	// Crop whatever still falls outside.
	x1, y1 := x, y
	x2, y2 := x+srcW, y+srcH
	if x2 > dstW {
		x2 = dstW
	}
	if y2 > dstH {
		y2 = dstH
	}
	if x2 <= x1 || y2 <= y1 {
		return
	}

	for row := y1; row < y2; row++ {
		srcRow := row - y
		di := dst.PixOffset(x1, row)
		si := src.PixOffset(x1-x, srcRow)
		for col := x1; col < x2; col++ {
			a := float64(src.Pix[si+3]) / 255.0 * globalAlpha
			if a > 0 {
				dst.Pix[di+0] = mix(dst.Pix[di+0], src.Pix[si+0], a)
				dst.Pix[di+1] = mix(dst.Pix[di+1], src.Pix[si+1], a)
				dst.Pix[di+2] = mix(dst.Pix[di+2], src.Pix[si+2], a)
			}
			di += 4
			si += 4
		}
	}
}

func mix(d, s uint8, a float64) uint8 {
	return uint8(float64(d)*(1-a) + float64(s)*a + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
