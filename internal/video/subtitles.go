package video

import (
	"fmt"
	"os"
	"strings"

	"github.com/ivlev/lecture2video/internal/script"
)

// WriteSubtitles emits an SRT file pairing the scripted narration text
// with the measured segment times. Extra cues beyond the measured list
// are omitted.
func WriteSubtitles(doc *script.Document, segments []script.AudioSegment, path string) error {
	if len(doc.Audio.Narration) == 0 {
		return fmt.Errorf("subtitles: no narration text")
	}

	var b strings.Builder
	n := len(doc.Audio.Narration)
	if len(segments) < n {
		n = len(segments)
	}
	for i := 0; i < n; i++ {
		seg := segments[i]
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtTime(seg.Start), srtTime(seg.End))
		fmt.Fprintf(&b, "%s\n\n", doc.Audio.Narration[i].Text)
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}

func srtTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int(seconds*1000 + 0.5)
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
