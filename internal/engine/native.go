//go:build whisper_native

package engine

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go"
)

// native adapts the real whisper.cpp CGO bindings to the Engine interface.
// It is only compiled with the whisper_native build tag, which requires the
// whisper.cpp shared library and headers to be present at build time; the
// default build compiles native_stub.go's LoadNative instead, which always
// returns an error, so `go build ./...` works without a toolchain that can
// link libwhisper.
type native struct {
	model whisper.Model
	ctx   whisper.Context

	multilingual bool
	languages    []string

	aborted atomic.Bool
}

// LoadNative opens a whisper.cpp ggml model file and creates the single
// long-lived decoding context the Domain serializes calls against.
func LoadNative(modelPath string, opts Options) (Engine, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("engine: load %q: %w", modelPath, err)
	}

	ctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return nil, fmt.Errorf("engine: new context for %q: %w", modelPath, err)
	}

	n := &native{
		model:        model,
		ctx:          ctx,
		multilingual: len(model.Languages()) > 1,
		languages:    model.Languages(),
	}
	return n, nil
}

func (n *native) Close() error {
	return n.model.Close()
}

func (n *native) IsMultilingual() bool {
	return n.multilingual
}

func (n *native) LanguageID(lang string) (int, bool) {
	if lang == "auto" {
		return -1, true
	}
	for id, tag := range n.languages {
		if tag == lang {
			return id, true
		}
	}
	return 0, false
}

func (n *native) LanguageString(id int) string {
	if id < 0 || id >= len(n.languages) {
		return "unknown"
	}
	return n.languages[id]
}

func (n *native) DefaultParams(strategy Strategy) Params {
	return DefaultParams(strategy)
}

func (n *native) EndOfText() int {
	return whisper.EndOfTextToken
}

// Full configures the single shared context from params, runs decoding, and
// drains segments via NextSegment until io.EOF, matching the teacher's own
// whisper.cpp invocation loop.
func (n *native) Full(ctx context.Context, params Params, samples []float32) ([]Segment, error) {
	n.aborted.Store(false)

	if err := n.applyParams(params); err != nil {
		return nil, err
	}

	abortFn := func() bool {
		if params.AbortFunc != nil && params.AbortFunc() {
			return true
		}
		return n.aborted.Load()
	}
	encoderBeginFn := func() bool {
		if params.EncoderBeginFunc != nil {
			return params.EncoderBeginFunc()
		}
		return true
	}

	if err := n.ctx.ProcessWithCallbacks(samples, nil, encoderBeginFn, abortFn); err != nil {
		return nil, fmt.Errorf("engine: full inference: %w", err)
	}

	var segments []Segment
	for {
		seg, err := n.ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("engine: next segment: %w", err)
		}
		segments = append(segments, convertSegment(seg, n.EndOfText()))
	}
	return segments, nil
}

func (n *native) applyParams(p Params) error {
	if p.Strategy == StrategyBeamSearch {
		n.ctx.SetBeamSize(p.BeamSize)
	}
	n.ctx.SetThreads(p.NThreads)
	n.ctx.SetSplitOnWord(p.SplitOnWord)
	n.ctx.SetTokenTimestamps(p.TokenTimestamps)
	n.ctx.SetTranslate(p.Translate)
	n.ctx.SetAudioCtx(p.AudioCtx)
	n.ctx.SetMaxSegmentLength(p.MaxLen)
	n.ctx.SetTemperature(p.Temperature)
	n.ctx.SetTemperatureFallback(p.TemperatureInc)
	n.ctx.SetEntropyThold(p.EntropyThold)
	n.ctx.SetLogProbThold(p.LogprobThold)
	n.ctx.SetNoSpeechThold(p.NoSpeechThold)
	n.ctx.SetInitialPrompt(p.InitialPrompt)
	if p.MaxTextCtx > 0 {
		n.ctx.SetMaxContext(p.MaxTextCtx)
	}
	if p.Language != "" {
		if err := n.ctx.SetLanguage(p.Language); err != nil {
			return fmt.Errorf("engine: set language %q: %w", p.Language, err)
		}
	}
	return nil
}

func convertSegment(seg whisper.Segment, endOfText int) Segment {
	out := Segment{
		T0:   int64(seg.Start.Milliseconds() / 10),
		T1:   int64(seg.End.Milliseconds() / 10),
		Text: seg.Text,
	}
	for _, tok := range seg.Tokens {
		if tok.Id >= endOfText {
			continue
		}
		out.Tokens = append(out.Tokens, Token{
			ID:   tok.Id,
			Text: tok.Text,
			P:    tok.P,
			Plog: tok.PLog,
			T0:   int64(tok.T0.Milliseconds() / 10),
			T1:   int64(tok.T1.Milliseconds() / 10),
			HasTDTW: tok.HasTDTW,
			TDTW:    int64(tok.TDTW.Milliseconds() / 10),
		})
	}
	out.HasNoSpeechProb = seg.HasNoSpeechProb
	out.NoSpeechProb = seg.NoSpeechProb
	out.SpeakerTurnNext = seg.SpeakerTurnNext
	return out
}
