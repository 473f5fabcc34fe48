package timing

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// WarningKind names the recoverable conditions the synchronizer can hit.
type WarningKind string

const (
	WarnCueUnmapped          WarningKind = "cue_unmapped"
	WarnZeroLengthCue        WarningKind = "zero_length_cue"
	WarnSegmentCountMismatch WarningKind = "segment_count_mismatch"
	WarnDriftExceeded        WarningKind = "drift_exceeded"
)

// Warning is one named fallback taken during synchronization. Callers
// choose whether to log, aggregate, or hard-fail on them.
type Warning struct {
	Kind     WarningKind
	CueIndex int
	StepID   int
	Seconds  float64
	Detail   string
}

// Report summarizes one synchronization run.
type Report struct {
	Original       map[int]float64
	Revised        map[int]float64
	TotalActual    float64
	TotalRevised   float64
	DroppedSeconds float64
	DriftExceeded  bool
	Warnings       []Warning
}

func (r *Report) warn(w Warning) {
	r.Warnings = append(r.Warnings, w)
}

// Log writes every warning through the standard logger.
func (r *Report) Log() {
	for _, w := range r.Warnings {
		log.Printf("[!] timing: %s: %s", w.Kind, w.Detail)
	}
}

// Summary renders a per-step comparison table for the --report flag.
func (r *Report) Summary() string {
	ids := make([]int, 0, len(r.Original))
	for id := range r.Original {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var b strings.Builder
	b.WriteString("--- [TIMING REPORT] ---\n")
	for _, id := range ids {
		orig := r.Original[id]
		rev := r.Revised[id]
		diff := rev - orig
		pct := 0.0
		if orig > 0 {
			pct = diff / orig * 100
		}
		fmt.Fprintf(&b, "Step %d: %.3fs -> %.3fs (%+.3fs, %+.1f%%)\n", id, orig, rev, diff, pct)
	}
	fmt.Fprintf(&b, "Total audio: %.3fs | Total revised: %.3fs | Dropped: %.3fs\n",
		r.TotalActual, r.TotalRevised, r.DroppedSeconds)
	b.WriteString("-----------------------\n")
	return b.String()
}
