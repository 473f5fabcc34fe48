// Package timing reconciles a script's nominal step durations with the
// measured durations of the synthesized narration audio.
package timing

import (
	"fmt"
	"math"

	"github.com/ivlev/lecture2video/internal/config"
	"github.com/ivlev/lecture2video/internal/script"
)

// stepRange is one step's slot on the original (nominal) timeline.
type stepRange struct {
	id         int
	start, end float64
}

// Synchronize distributes each measured audio segment's duration over the
// steps its cue overlaps on the original timeline, weighted by overlap,
// and returns the revised per-step durations keyed by step id.
//
// The original timeline is always rebuilt from the nominal durations of
// the given document, never from a prior synchronization run.
func Synchronize(doc *script.Document, segments []script.AudioSegment, pol config.Policy) (map[int]float64, *Report, error) {
	steps := doc.Blackboard.Steps
	if len(steps) == 0 {
		return nil, nil, fmt.Errorf("timing: script has no steps")
	}
	cues := doc.Cues()
	if len(cues) == 0 || len(segments) == 0 {
		return nil, nil, fmt.Errorf("timing: no narration data (cues=%d segments=%d)", len(cues), len(segments))
	}

	rep := &Report{
		Original: make(map[int]float64, len(steps)),
		Revised:  make(map[int]float64, len(steps)),
	}

	// Original timeline: cumulative nominal start/end per step.
	ranges := make([]stepRange, len(steps))
	cursor := 0.0
	for i, s := range steps {
		ranges[i] = stepRange{id: s.ID, start: cursor, end: cursor + s.Duration}
		cursor += s.Duration
		rep.Original[s.ID] = s.Duration
	}

	n := len(cues)
	if len(segments) != len(cues) {
		rep.warn(Warning{
			Kind:   WarnSegmentCountMismatch,
			Detail: fmt.Sprintf("%d cues vs %d measured segments, reconciling over the shorter list", len(cues), len(segments)),
		})
		if len(segments) < n {
			n = len(segments)
		}
	}

	accum := make([]float64, len(steps))
	for i := 0; i < n; i++ {
		cue := cues[i]
		seg := segments[i]
		rep.TotalActual += seg.Duration

		overlaps := make([]float64, len(steps))
		total := 0.0
		if cue.End > cue.Start {
			for si, r := range ranges {
				o := math.Min(cue.End, r.end) - math.Max(cue.Start, r.start)
				if o > 0 {
					overlaps[si] = o
					total += o
				}
			}
		}

		if total <= 0 {
			// A cue that maps to no step contributes nothing, except the
			// final one which falls back to the last step so the tail of
			// the narration is never lost.
			if i == n-1 {
				accum[len(steps)-1] += seg.Duration
				rep.warn(Warning{
					Kind:     WarnCueUnmapped,
					CueIndex: i,
					StepID:   ranges[len(ranges)-1].id,
					Seconds:  seg.Duration,
					Detail:   "final cue outside all step ranges, assigned to last step",
				})
				continue
			}
			rep.DroppedSeconds += seg.Duration
			kind := WarnCueUnmapped
			if cue.End <= cue.Start {
				kind = WarnZeroLengthCue
			}
			rep.warn(Warning{
				Kind:     kind,
				CueIndex: i,
				Seconds:  seg.Duration,
				Detail:   fmt.Sprintf("cue [%.3f, %.3f) overlaps no step, %.3fs of audio dropped", cue.Start, cue.End, seg.Duration),
			})
			continue
		}

		for si := range steps {
			if overlaps[si] > 0 {
				accum[si] += seg.Duration * overlaps[si] / total
			}
		}
	}

	revised := make(map[int]float64, len(steps))
	for si, s := range steps {
		d := accum[si]
		if d < pol.MinStepDuration {
			d = pol.MinStepDuration
		}
		d = round3(d)
		revised[s.ID] = d
		rep.Revised[s.ID] = d
		rep.TotalRevised += d
	}

	tolerance := math.Max(pol.DriftToleranceS, pol.DriftTolerancePc*rep.TotalActual)
	drift := math.Abs(rep.TotalRevised - rep.TotalActual)
	if drift > tolerance {
		rep.DriftExceeded = true
		rep.warn(Warning{
			Kind:    WarnDriftExceeded,
			Seconds: drift,
			Detail:  fmt.Sprintf("revised total %.3fs vs actual %.3fs exceeds tolerance %.3fs", rep.TotalRevised, rep.TotalActual, tolerance),
		})
	}

	return revised, rep, nil
}

// Apply returns a copy of the document with the revised durations written
// in and every affected element's animation duration rescaled by
// revised/original, so animations keep their relative pacing.
func Apply(doc *script.Document, revised map[int]float64) *script.Document {
	out := *doc
	out.Blackboard.Steps = make([]script.Step, len(doc.Blackboard.Steps))
	for si, s := range doc.Blackboard.Steps {
		step := s
		step.Elements = make([]script.Element, len(s.Elements))
		copy(step.Elements, s.Elements)

		newDur, ok := revised[s.ID]
		if ok && s.Duration > 0 && newDur != s.Duration {
			factor := newDur / s.Duration
			for ei := range step.Elements {
				el := &step.Elements[ei]
				if el.Animation != nil && el.Animation.Duration > 0 {
					anim := *el.Animation
					anim.Duration = round3(anim.Duration * factor)
					el.Animation = &anim
				}
			}
			step.Duration = newDur
		} else if ok {
			step.Duration = newDur
		}
		out.Blackboard.Steps[si] = step
	}
	return &out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
