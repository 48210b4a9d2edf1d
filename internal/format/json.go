package format

import (
	"encoding/json"
	"strings"

	"github.com/whisperd/whisperd/internal/engine"
)

type compactResponse struct {
	Text string `json:"text"`
}

func renderJSON(segments []engine.Segment, opts Options) ([]byte, error) {
	text := strings.TrimRight(joinText(segments, opts.Speaker), "\n")
	return json.Marshal(compactResponse{Text: text})
}
