package script

import (
	"fmt"
	"image"
)

// ElementKind discriminates the closed set of element variants.
type ElementKind string

const (
	KindText     ElementKind = "text"
	KindFormula  ElementKind = "formula"
	KindGeometry ElementKind = "geometry"
	KindQR       ElementKind = "qr"
)

// Known reports whether k is one of the supported variants.
func (k ElementKind) Known() bool {
	switch k {
	case KindText, KindFormula, KindGeometry, KindQR:
		return true
	}
	return false
}

// DefaultZIndex returns the paint-order key used when the document
// does not set one. Geometry paints above formulas, formulas above text.
func (k ElementKind) DefaultZIndex() int {
	switch k {
	case KindText:
		return 1
	case KindFormula:
		return 2
	case KindGeometry:
		return 3
	case KindQR:
		return 4
	}
	return 0
}

// Document is the full script tree as persisted on disk.
type Document struct {
	Metadata   map[string]any `json:"metadata,omitempty"`
	Blackboard Blackboard     `json:"blackboard"`
	Audio      Audio          `json:"audio"`
}

// Blackboard holds the visual half of the script.
type Blackboard struct {
	Resolution [2]int `json:"resolution"`
	Steps      []Step `json:"steps"`
}

// Audio holds the narration half of the script.
type Audio struct {
	Narration []Narration `json:"narration"`
}

// Narration is one scripted utterance with its theoretical time span.
type Narration struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Step is one titled phase of the lecture.
type Step struct {
	ID              int       `json:"step_id"`
	Title           string    `json:"title,omitempty"`
	Duration        float64   `json:"duration"`
	Layout          string    `json:"layout,omitempty"` // "vertical-stack" or empty
	SafeZone        *SafeZone `json:"safe_zone,omitempty"`
	VerticalSpacing *float64  `json:"vertical_spacing,omitempty"`
	Elements        []Element `json:"elements"`
}

// VerticalStack reports whether the step uses the auto-stack layout mode.
func (s *Step) VerticalStack() bool {
	return s.Layout == "vertical-stack"
}

// Spacing returns the declared inter-element spacing or the default.
func (s *Step) Spacing() float64 {
	if s.VerticalSpacing != nil {
		return *s.VerticalSpacing
	}
	return DefaultVerticalSpacing
}

// Element is one visual item on the board. Kind selects the variant;
// the remaining fields form the shared placement envelope.
//
// Bitmap and Size are populated by the rasterizer and layout engine at
// run time and are never persisted.
type Element struct {
	Kind      ElementKind `json:"type"`
	Content   string      `json:"content"`
	FontSize  int         `json:"font_size,omitempty"`
	Position  []float64   `json:"position,omitempty"` // [x, y] canvas fractions, nil if unset
	ZIndex    int         `json:"z_index,omitempty"`
	Start     *float64    `json:"start,omitempty"` // visible sub-range, seconds into the step
	End       *float64    `json:"end,omitempty"`
	Animation *Animation  `json:"animation,omitempty"`

	Bitmap *image.RGBA `json:"-"`
	Size   [2]float64  `json:"-"` // (w, h) as canvas fractions
}

// PaintOrder returns the effective z-index: an explicit value wins,
// otherwise the variant default applies.
func (e *Element) PaintOrder() int {
	if e.ZIndex != 0 {
		return e.ZIndex
	}
	return e.Kind.DefaultZIndex()
}

// Animation describes an element's entry/exit transition.
type Animation struct {
	Enter    string  `json:"enter,omitempty"`
	Exit     string  `json:"exit,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// SafeZone is the set of canvas-fraction margins reserved as non-content.
type SafeZone struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Script-level defaults. The bottom margin floor is reserved for subtitles
// and is enforced even when the document declares a smaller value.
const (
	DefaultSafeTop         = 0.05
	DefaultSafeBottom      = 0.15
	DefaultSafeLeft        = 0.05
	DefaultSafeRight       = 0.40
	DefaultVerticalSpacing = 0.02
)

// EffectiveSafeZone resolves the step's safe zone against defaults and
// the given bottom floor.
func (s *Step) EffectiveSafeZone(bottomFloor float64) SafeZone {
	sz := SafeZone{
		Top:    DefaultSafeTop,
		Bottom: DefaultSafeBottom,
		Left:   DefaultSafeLeft,
		Right:  DefaultSafeRight,
	}
	if s.SafeZone != nil {
		sz = *s.SafeZone
	}
	if sz.Bottom < bottomFloor {
		sz.Bottom = bottomFloor
	}
	return sz
}

// NarrationCue is the theoretical time span of one utterance, derived
// once from the script and read-only afterward.
type NarrationCue struct {
	Start float64
	End   float64
}

// AudioSegment is one measured TTS output, index-aligned with the cue
// it was synthesized from.
type AudioSegment struct {
	Start    float64
	End      float64
	Duration float64
}

// Cues derives the narration cue list from the document in order.
func (d *Document) Cues() []NarrationCue {
	cues := make([]NarrationCue, 0, len(d.Audio.Narration))
	for _, n := range d.Audio.Narration {
		cues = append(cues, NarrationCue{Start: n.StartTime, End: n.EndTime})
	}
	return cues
}

// TotalNominalDuration sums the declared step durations.
func (d *Document) TotalNominalDuration() float64 {
	total := 0.0
	for _, s := range d.Blackboard.Steps {
		total += s.Duration
	}
	return total
}

// Validate checks the structural preconditions the pipeline cannot
// recover from.
func (d *Document) Validate() error {
	if len(d.Blackboard.Steps) == 0 {
		return fmt.Errorf("script contains no steps")
	}
	for i, s := range d.Blackboard.Steps {
		if s.Duration <= 0 {
			return fmt.Errorf("step %d (id %d) has non-positive duration %.3f", i, s.ID, s.Duration)
		}
	}
	return nil
}
