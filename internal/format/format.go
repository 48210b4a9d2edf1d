// Package format converts a set of decoded segments into the wire formats
// spec §4.4 names: plain text, SRT, WebVTT, compact JSON, and verbose JSON
// with token-level metadata. Dispatch is a single switch over a tagged
// Format variant (spec §9's "Dynamic dispatch on output format" resolution)
// rather than chained string comparisons scattered through the HTTP handler.
package format

import (
	"fmt"
	"strings"

	"github.com/whisperd/whisperd/internal/diarize"
	"github.com/whisperd/whisperd/internal/engine"
)

// Format names one of the five output variants /inference supports.
type Format string

const (
	Text        Format = "text"
	JSON        Format = "json"
	SRT         Format = "srt"
	VTT         Format = "vtt"
	VerboseJSON Format = "verbose_json"
)

// Parse maps a response_format request value to a Format, defaulting to
// Text for an empty or unrecognized value (matching the source's
// fallback behavior rather than rejecting the request).
func Parse(s string) Format {
	switch Format(s) {
	case JSON, SRT, VTT, VerboseJSON:
		return Format(s)
	default:
		return Text
	}
}

// Speaker resolves a diarization label for a segment. nil when diarization
// is disabled or the audio is not two-channel.
type Speaker func(seg engine.Segment) (label string, ok bool)

// Options carries everything a formatter needs beyond the segment list
// itself.
type Options struct {
	Format Format

	Task     string // "transcribe" or "translate"
	Language string
	Duration float64 // seconds

	OffsetN int // SRT numbering base, spec §3 "offset_n"

	Temperature float32

	// NoTimestamps mirrors engine.Params.NoTimestamps: when set, verbose_json
	// omits every segment's start/end and every word's start/end/t_dtw
	// rather than reporting them as zero.
	NoTimestamps bool

	// Speaker resolves a diarization label per segment; nil disables
	// speaker annotation regardless of Format.
	Speaker Speaker
}

// ContentType returns the MIME type Render's body should be served with.
func (o Options) ContentType() string {
	switch o.Format {
	case JSON, VerboseJSON:
		return "application/json"
	case SRT, VTT:
		return "text/plain; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render converts segments into the wire format named by opts.Format.
func Render(segments []engine.Segment, opts Options) ([]byte, error) {
	switch opts.Format {
	case JSON:
		return renderJSON(segments, opts)
	case SRT:
		return renderSRT(segments, opts)
	case VTT:
		return renderVTT(segments, opts)
	case VerboseJSON:
		return renderVerboseJSON(segments, opts)
	default:
		return renderText(segments, opts)
	}
}

// joinText concatenates segment texts, optionally prefixing each with its
// diarization label, the way the source's output_str does.
func joinText(segments []engine.Segment, spk Speaker) string {
	var b strings.Builder
	for _, seg := range segments {
		if spk != nil {
			if label, ok := spk(seg); ok {
				b.WriteString(diarize.Wrap(label, false))
			}
		}
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// toTimestamp renders t (in 10ms units) as HH:MM:SS,mmm (SRT) or
// HH:MM:SS.mmm (VTT), per spec §4.4.
func toTimestamp(t int64, comma bool) string {
	msecTotal := t * 10
	if msecTotal < 0 {
		msecTotal = 0
	}
	hr := msecTotal / 3600000
	msecTotal %= 3600000
	min := msecTotal / 60000
	msecTotal %= 60000
	sec := msecTotal / 1000
	msec := msecTotal % 1000

	sep := '.'
	if comma {
		sep = ','
	}
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hr, min, sec, sep, msec)
}
