package format

import (
	"encoding/json"
	"strings"

	"github.com/whisperd/whisperd/internal/engine"
)

type verboseResponse struct {
	Task     string           `json:"task"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Text     string           `json:"text"`
	Segments []verboseSegment `json:"segments"`
}

type verboseSegment struct {
	ID    int      `json:"id"`
	Text  string   `json:"text"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`

	Tokens []int         `json:"tokens"`
	Words  []verboseWord `json:"words"`

	Temperature  float32  `json:"temperature"`
	AvgLogprob   float64  `json:"avg_logprob"`
	NoSpeechProb *float64 `json:"no_speech_prob,omitempty"`
}

type verboseWord struct {
	Word        string   `json:"word"`
	Start       *float64 `json:"start,omitempty"`
	End         *float64 `json:"end,omitempty"`
	TDTW        *float64 `json:"t_dtw,omitempty"`
	Probability float32  `json:"probability"`
}

// renderVerboseJSON builds the §4.4 verbose_json shape. Segments whose
// token id is at or past the end-of-text sentinel are already excluded
// from engine.Segment.Tokens by the engine layer, so no filtering is
// needed here.
func renderVerboseJSON(segments []engine.Segment, opts Options) ([]byte, error) {
	resp := verboseResponse{
		Task:     opts.Task,
		Language: opts.Language,
		Duration: opts.Duration,
		Text:     strings.TrimRight(joinText(segments, nil), "\n"),
	}
	if resp.Task == "" {
		resp.Task = "transcribe"
	}

	for i, seg := range segments {
		vs := verboseSegment{
			ID:          i,
			Text:        seg.Text,
			Temperature: opts.Temperature,
			AvgLogprob:  avgLogprob(seg.Tokens),
		}
		if !opts.NoTimestamps {
			vs.Start = seconds(seg.T0)
			vs.End = seconds(seg.T1)
		}
		if seg.HasNoSpeechProb {
			v := float64(seg.NoSpeechProb)
			vs.NoSpeechProb = &v
		}
		for _, tok := range seg.Tokens {
			vs.Tokens = append(vs.Tokens, tok.ID)
			w := verboseWord{
				Word:        strings.TrimSpace(tok.Text),
				Probability: tok.P,
			}
			if !opts.NoTimestamps {
				w.Start = seconds(tok.T0)
				w.End = seconds(tok.T1)
				if tok.HasTDTW {
					d := float64(tok.TDTW) / 100.0
					w.TDTW = &d
				}
			}
			vs.Words = append(vs.Words, w)
		}
		resp.Segments = append(resp.Segments, vs)
	}

	return json.Marshal(resp)
}

func seconds(units int64) *float64 {
	v := float64(units) / 100.0
	return &v
}

func avgLogprob(tokens []engine.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += float64(t.Plog)
	}
	return sum / float64(len(tokens))
}
