package format

import "github.com/whisperd/whisperd/internal/engine"

func renderText(segments []engine.Segment, opts Options) ([]byte, error) {
	return []byte(joinText(segments, opts.Speaker)), nil
}
