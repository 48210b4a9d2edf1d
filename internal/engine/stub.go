package engine

import (
	"context"
	"fmt"
)

// Stub is a deterministic, dependency-free Engine used by tests (via
// [StubLoader] or [NewStub]). It never performs real recognition; callers
// configure its response via Respond.
type Stub struct {
	Multilingual bool
	Languages    map[string]int // tag -> id, "auto" always resolves to -1

	// Respond computes the segments for a Full call. If nil, Full returns
	// a single non-empty segment when samples carries any energy above a
	// small noise floor, and no segments for silence — enough to drive
	// the silent-WAV and non-silent-WAV scenarios in spec §8 without a
	// caller having to wire a custom function for the common case.
	Respond func(params Params, samples []float32) ([]Segment, error)

	closed bool
}

// NewStub returns a Stub with an English-only language table, matching the
// default of most quantized "hot" models in the wild.
func NewStub() *Stub {
	return &Stub{
		Languages: map[string]int{"auto": -1, "en": 0},
	}
}

func (s *Stub) Close() error {
	s.closed = true
	return nil
}

func (s *Stub) IsMultilingual() bool {
	return s.Multilingual
}

func (s *Stub) LanguageID(lang string) (int, bool) {
	id, ok := s.Languages[lang]
	return id, ok
}

func (s *Stub) LanguageString(id int) string {
	for tag, langID := range s.Languages {
		if langID == id {
			return tag
		}
	}
	return "unknown"
}

func (s *Stub) DefaultParams(strategy Strategy) Params {
	return DefaultParams(strategy)
}

func (s *Stub) EndOfText() int {
	return 50257
}

func (s *Stub) Full(ctx context.Context, params Params, samples []float32) ([]Segment, error) {
	if s.closed {
		return nil, fmt.Errorf("engine: stub is closed")
	}
	if s.Respond != nil {
		return s.Respond(params, samples)
	}
	if !hasSignal(samples) {
		return nil, nil
	}
	n := int64(len(samples))
	t1 := n / 160 // 16000Hz samples -> 10ms units
	return []Segment{{
		T0:   0,
		T1:   t1,
		Text: "stub transcription",
		Tokens: []Token{
			{ID: 1, Text: "stub", P: 0.9, Plog: -0.1, T0: 0, T1: t1},
		},
	}}, nil
}

func hasSignal(samples []float32) bool {
	var sum float32
	for _, v := range samples {
		if v < 0 {
			sum -= v
		} else {
			sum += v
		}
	}
	if len(samples) == 0 {
		return false
	}
	avg := sum / float32(len(samples))
	return avg > 1e-4
}

// StubLoader is an engine.Loader backed by Stub, for wiring into Domain in
// tests without a real model file.
func StubLoader(modelPath string, opts Options) (Engine, error) {
	return NewStub(), nil
}
