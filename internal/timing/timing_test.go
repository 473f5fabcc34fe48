package timing

import (
	"math"
	"testing"

	"github.com/ivlev/lecture2video/internal/config"
	"github.com/ivlev/lecture2video/internal/script"
)

func makeDoc(durations []float64, narration []script.Narration) *script.Document {
	doc := &script.Document{}
	for i, d := range durations {
		doc.Blackboard.Steps = append(doc.Blackboard.Steps, script.Step{
			ID:       i + 1,
			Duration: d,
		})
	}
	doc.Audio.Narration = narration
	return doc
}

func TestSynchronizeSplitsCueByOverlap(t *testing.T) {
	// One cue spanning [1, 4) over steps of 3s and 2s: overlaps are 2s
	// and 1s, so a 6s measured segment splits 4s / 2s.
	doc := makeDoc([]float64{3, 2}, []script.Narration{
		{Text: "a", StartTime: 1, EndTime: 4},
	})
	segments := []script.AudioSegment{{Start: 0, End: 6, Duration: 6}}

	revised, rep, err := Synchronize(doc, segments, config.DefaultPolicy())
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}

	if math.Abs(revised[1]-4.0) > 0.0001 {
		t.Errorf("step 1: expected 4.0, got %f", revised[1])
	}
	if math.Abs(revised[2]-2.0) > 0.0001 {
		t.Errorf("step 2: expected 2.0, got %f", revised[2])
	}
	if math.Abs(rep.TotalRevised-6.0) > 0.0001 {
		t.Errorf("expected total 6.0, got %f", rep.TotalRevised)
	}
}

func TestDurationConservation(t *testing.T) {
	// Cues collectively cover every step, so the revised total must match
	// the measured total within tolerance.
	doc := makeDoc([]float64{5, 5, 5}, []script.Narration{
		{StartTime: 0, EndTime: 4},
		{StartTime: 4, EndTime: 9},
		{StartTime: 9, EndTime: 15},
	})
	segments := []script.AudioSegment{
		{Duration: 3.2},
		{Duration: 7.7},
		{Duration: 4.9},
	}

	revised, rep, err := Synchronize(doc, segments, config.DefaultPolicy())
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}

	sum := 0.0
	for _, d := range revised {
		sum += d
	}
	actual := 3.2 + 7.7 + 4.9
	if math.Abs(sum-actual) > 0.01 {
		t.Errorf("expected revised sum ~%f, got %f", actual, sum)
	}
	if rep.DriftExceeded {
		t.Errorf("drift flagged for a fully covered script")
	}
}

func TestMinimumStepDurationFloor(t *testing.T) {
	// Step 2 receives no audio at all but must keep the policy floor.
	doc := makeDoc([]float64{2, 3, 2}, []script.Narration{
		{StartTime: 0, EndTime: 2},
		{StartTime: 5, EndTime: 7},
	})
	segments := []script.AudioSegment{{Duration: 2}, {Duration: 2}}

	revised, _, err := Synchronize(doc, segments, config.DefaultPolicy())
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}

	pol := config.DefaultPolicy()
	for id, d := range revised {
		if d < pol.MinStepDuration {
			t.Errorf("step %d: revised %f below floor %f", id, d, pol.MinStepDuration)
		}
	}
	if revised[2] != pol.MinStepDuration {
		t.Errorf("step 2: expected floor %f, got %f", pol.MinStepDuration, revised[2])
	}
}

func TestUnmappedCueDropped(t *testing.T) {
	// A non-final cue outside the timeline contributes nothing.
	doc := makeDoc([]float64{3}, []script.Narration{
		{StartTime: 10, EndTime: 12},
		{StartTime: 0, EndTime: 3},
	})
	segments := []script.AudioSegment{{Duration: 2}, {Duration: 3}}

	revised, rep, err := Synchronize(doc, segments, config.DefaultPolicy())
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}

	if math.Abs(revised[1]-3.0) > 0.0001 {
		t.Errorf("expected 3.0, got %f", revised[1])
	}
	if math.Abs(rep.DroppedSeconds-2.0) > 0.0001 {
		t.Errorf("expected 2.0s dropped, got %f", rep.DroppedSeconds)
	}
	found := false
	for _, w := range rep.Warnings {
		if w.Kind == WarnCueUnmapped && w.CueIndex == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an unmapped-cue warning for cue 0")
	}
}

func TestFinalUnmappedCueFallsBackToLastStep(t *testing.T) {
	doc := makeDoc([]float64{3, 2}, []script.Narration{
		{StartTime: 0, EndTime: 5},
		{StartTime: 20, EndTime: 22},
	})
	segments := []script.AudioSegment{{Duration: 5}, {Duration: 2}}

	revised, rep, err := Synchronize(doc, segments, config.DefaultPolicy())
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}

	// Last step: 2/5 of the first segment plus the whole fallback segment.
	if math.Abs(revised[2]-4.0) > 0.0001 {
		t.Errorf("expected last step 4.0, got %f", revised[2])
	}
	if rep.DroppedSeconds != 0 {
		t.Errorf("final-cue fallback must not drop audio, dropped %f", rep.DroppedSeconds)
	}
}

func TestZeroLengthCueSkipped(t *testing.T) {
	doc := makeDoc([]float64{4}, []script.Narration{
		{StartTime: 1, EndTime: 1},
		{StartTime: 0, EndTime: 4},
	})
	segments := []script.AudioSegment{{Duration: 1.5}, {Duration: 4}}

	revised, rep, err := Synchronize(doc, segments, config.DefaultPolicy())
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}

	if math.Abs(revised[1]-4.0) > 0.0001 {
		t.Errorf("expected 4.0, got %f", revised[1])
	}
	found := false
	for _, w := range rep.Warnings {
		if w.Kind == WarnZeroLengthCue {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a zero-length-cue warning")
	}
	if math.Abs(rep.DroppedSeconds-1.5) > 0.0001 {
		t.Errorf("expected 1.5s dropped, got %f", rep.DroppedSeconds)
	}
}

func TestSegmentCountMismatchWarns(t *testing.T) {
	doc := makeDoc([]float64{3}, []script.Narration{
		{StartTime: 0, EndTime: 1},
		{StartTime: 1, EndTime: 2},
	})
	segments := []script.AudioSegment{{Duration: 1}}

	_, rep, err := Synchronize(doc, segments, config.DefaultPolicy())
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	found := false
	for _, w := range rep.Warnings {
		if w.Kind == WarnSegmentCountMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a count-mismatch warning")
	}
}

func TestSynchronizeIsDeterministic(t *testing.T) {
	doc := makeDoc([]float64{3, 2, 4}, []script.Narration{
		{StartTime: 0, EndTime: 2.5},
		{StartTime: 2.5, EndTime: 6},
		{StartTime: 6, EndTime: 9},
	})
	segments := []script.AudioSegment{{Duration: 3}, {Duration: 4}, {Duration: 2}}

	first, _, err := Synchronize(doc, segments, config.DefaultPolicy())
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	second, _, err := Synchronize(doc, segments, config.DefaultPolicy())
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	for id := range first {
		if first[id] != second[id] {
			t.Errorf("step %d: %f vs %f across identical runs", id, first[id], second[id])
		}
	}
}

func TestSynchronizeErrorsWithoutData(t *testing.T) {
	empty := &script.Document{}
	if _, _, err := Synchronize(empty, []script.AudioSegment{{Duration: 1}}, config.DefaultPolicy()); err == nil {
		t.Errorf("expected error for script without steps")
	}

	noAudio := makeDoc([]float64{3}, nil)
	if _, _, err := Synchronize(noAudio, nil, config.DefaultPolicy()); err == nil {
		t.Errorf("expected error for run without narration")
	}
}

func TestApplyRescalesAnimations(t *testing.T) {
	doc := makeDoc([]float64{2}, []script.Narration{{StartTime: 0, EndTime: 2}})
	doc.Blackboard.Steps[0].Elements = []script.Element{
		{
			Kind:      script.KindText,
			Content:   "x",
			Animation: &script.Animation{Enter: "fade_in", Duration: 1.0},
		},
	}

	out := Apply(doc, map[int]float64{1: 4.0})

	if out.Blackboard.Steps[0].Duration != 4.0 {
		t.Errorf("expected duration 4.0, got %f", out.Blackboard.Steps[0].Duration)
	}
	got := out.Blackboard.Steps[0].Elements[0].Animation.Duration
	if math.Abs(got-2.0) > 0.0001 {
		t.Errorf("expected animation duration 2.0, got %f", got)
	}

	// The input document is left untouched.
	if doc.Blackboard.Steps[0].Duration != 2.0 {
		t.Errorf("Apply mutated the input step duration")
	}
	if doc.Blackboard.Steps[0].Elements[0].Animation.Duration != 1.0 {
		t.Errorf("Apply mutated the input animation")
	}
}
