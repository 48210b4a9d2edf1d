package format

import (
	"fmt"
	"strings"

	"github.com/whisperd/whisperd/internal/diarize"
	"github.com/whisperd/whisperd/internal/engine"
)

// renderSRT builds SubRip subtitle text: 1-based numbering offset by
// OffsetN, HH:MM:SS,mmm timestamps, and an optional diarization label
// prepended to each cue's text (spec §4.4).
func renderSRT(segments []engine.Segment, opts Options) ([]byte, error) {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", opts.OffsetN+i+1)
		fmt.Fprintf(&b, "%s --> %s\n", toTimestamp(seg.T0, true), toTimestamp(seg.T1, true))

		text := seg.Text
		if opts.Speaker != nil {
			if label, ok := opts.Speaker(seg); ok {
				text = diarize.Wrap(label, false) + text
			}
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return []byte(b.String()), nil
}
