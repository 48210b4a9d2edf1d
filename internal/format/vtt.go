package format

import (
	"fmt"
	"strings"

	"github.com/whisperd/whisperd/internal/engine"
)

// renderVTT builds WebVTT text: a WEBVTT preamble, HH:MM:SS.mmm timestamps,
// and the diarization label rendered as a <v SpeakerN> cue tag rather than
// SRT's inline "(speaker X)" prefix (spec §4.4).
func renderVTT(segments []engine.Segment, opts Options) ([]byte, error) {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")

	for _, seg := range segments {
		fmt.Fprintf(&b, "%s --> %s\n", toTimestamp(seg.T0, false), toTimestamp(seg.T1, false))

		text := seg.Text
		if opts.Speaker != nil {
			if label, ok := opts.Speaker(seg); ok {
				text = fmt.Sprintf("<v Speaker%s>%s", label, text)
			}
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return []byte(b.String()), nil
}
