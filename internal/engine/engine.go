// Package engine defines the boundary between whisperd and the underlying
// speech-recognition model. The model itself is an external dependency
// (github.com/ggerganov/whisper.cpp/bindings/go in the native build); this
// package only fixes the shape of that boundary and the single-writer
// discipline ("serialization domain") every call against it must obey.
package engine

import (
	"context"
	"fmt"
)

// Strategy selects the decoding algorithm for a Full call.
type Strategy int

const (
	StrategyGreedy Strategy = iota
	StrategyBeamSearch
)

func (s Strategy) String() string {
	if s == StrategyBeamSearch {
		return "beam_search"
	}
	return "greedy"
}

// DTWPreset names a model-specific token-alignment configuration. The zero
// value, DTWNone, disables alignment.
type DTWPreset string

const (
	DTWNone     DTWPreset = ""
	DTWTiny     DTWPreset = "tiny"
	DTWTinyEn   DTWPreset = "tiny.en"
	DTWBase     DTWPreset = "base"
	DTWBaseEn   DTWPreset = "base.en"
	DTWSmall    DTWPreset = "small"
	DTWSmallEn  DTWPreset = "small.en"
	DTWMedium   DTWPreset = "medium"
	DTWMediumEn DTWPreset = "medium.en"
	DTWLargeV1  DTWPreset = "large.v1"
	DTWLargeV2  DTWPreset = "large.v2"
	DTWLargeV3  DTWPreset = "large.v3"
)

var validDTWPresets = map[DTWPreset]bool{
	DTWNone: true, DTWTiny: true, DTWTinyEn: true, DTWBase: true, DTWBaseEn: true,
	DTWSmall: true, DTWSmallEn: true, DTWMedium: true, DTWMediumEn: true,
	DTWLargeV1: true, DTWLargeV2: true, DTWLargeV3: true,
}

// Valid reports whether p is one of the fixed enumeration of presets.
// Any other value is a fatal startup error per the model-load contract.
func (p DTWPreset) Valid() bool {
	return validDTWPresets[p]
}

// Options configures a handle at load time.
type Options struct {
	UseGPU    bool
	FlashAttn bool
	DTW       DTWPreset
}

// Validate rejects an unrecognized DTW preset.
func (o Options) Validate() error {
	if !o.DTW.Valid() {
		return fmt.Errorf("engine: unrecognized dtw preset %q", o.DTW)
	}
	return nil
}

// Params is the full per-invocation parameter record. Field names follow
// the vocabulary of spec §3's "Engine parameters" enumeration.
type Params struct {
	Strategy Strategy

	BestOf    int
	BeamSize  int
	NThreads  int
	NProcessors int

	MaxTextCtx int
	AudioCtx   int
	InitialPrompt string

	Temperature    float32
	TemperatureInc float32

	WordThold     float32
	EntropyThold  float32
	LogprobThold  float32
	NoSpeechThold float32

	MaxLen         int
	SplitOnWord    bool
	TokenTimestamps bool
	NoTimestamps   bool

	Translate      bool
	Language       string
	DetectLanguage bool

	SuppressNST bool

	Diarize     bool
	Tinydiarize bool

	OffsetMs   int
	DurationMs int
	OffsetN    int

	PrintSpecial  bool
	PrintProgress bool
	DebugMode     bool

	TdrzSpeakerTurn string

	// EncoderBeginFunc is consulted before each encoder pass; returning
	// false aborts the call. AbortFunc is consulted frequently during
	// decode for the same purpose. Both are wired but always nil (treated
	// as "never abort") until a cancellation path is added.
	EncoderBeginFunc func() bool
	AbortFunc        func() bool
}

// DefaultParams returns the startup-default parameter block for a given
// strategy, the value every /inference call must return to afterward
// (spec §8: "the parameter block equals the startup defaults").
func DefaultParams(strategy Strategy) Params {
	p := Params{
		Strategy:      strategy,
		BestOf:        2,
		BeamSize:      -1,
		NThreads:      4,
		MaxTextCtx:    16384,
		AudioCtx:      0,
		Temperature:   0.0,
		TemperatureInc: 0.2,
		WordThold:     0.01,
		EntropyThold:  2.4,
		LogprobThold:  -1.0,
		NoSpeechThold: 0.6,
		MaxLen:        0,
		Language:      "en",
		OffsetN:       0,
	}
	if strategy == StrategyBeamSearch {
		p.BeamSize = 5
	}
	return p
}

// Validate enforces the invariants spec §3 fixes on a parameter block:
// diarize and tinydiarize are mutually exclusive, and a non-multilingual
// model forces language="en", translate=false.
func (p *Params) Validate(multilingual bool) error {
	if p.Diarize && p.Tinydiarize {
		return fmt.Errorf("engine: diarize and tinydiarize are mutually exclusive")
	}
	if !multilingual {
		p.Language = "en"
		p.Translate = false
	}
	if p.MaxLen == 0 {
		p.MaxLen = 60
	}
	return nil
}

// Token is a single decoded token within a Segment.
type Token struct {
	ID   int
	Text string
	P    float32
	Plog float32

	// T0, T1 are inclusive per-token offsets in 10ms units.
	T0, T1 int64

	HasTDTW bool
	TDTW    int64
}

// Segment is a decoded transcription span (spec §3).
type Segment struct {
	T0, T1 int64
	Text   string
	Tokens []Token

	HasNoSpeechProb bool
	NoSpeechProb    float32

	SpeakerTurnNext bool
}

// Engine is the dependency boundary spec §6.4 fixes: load-from-file, free,
// multilingual introspection, language lookups, a default-params factory,
// full inference, and the per-segment/per-token accessors needed to build
// a Segment. Implementations are not expected to be safe for concurrent
// use from more than one goroutine at a time — callers serialize access
// through a Domain.
type Engine interface {
	// Close frees the underlying model. Implements the "free" operation.
	Close() error

	// IsMultilingual reports whether the loaded model supports languages
	// other than English.
	IsMultilingual() bool

	// LanguageID resolves a BCP-47-like tag (or "auto") to the model's
	// internal language id. ok is false for an unrecognized tag.
	LanguageID(lang string) (id int, ok bool)

	// LanguageString returns the full language name for an internal id.
	LanguageString(id int) string

	// DefaultParams returns the model's own default parameter block for
	// the given strategy; whisperd overlays this with request-specific
	// and startup-configured values rather than using it directly.
	DefaultParams(strategy Strategy) Params

	// EndOfText returns the end-of-text sentinel token id; segments whose
	// token ids are at or past this value are excluded from token lists.
	EndOfText() int

	// Full runs one inference call over samples (normalized float32 mono
	// PCM at 16kHz) with the given parameters and returns the decoded
	// segments. It must not be called concurrently with any other call
	// against the same Engine; Domain enforces this.
	Full(ctx context.Context, params Params, samples []float32) ([]Segment, error)
}

// Loader constructs an Engine from a model file path. Implemented by the
// native (CGO) build and by the stub used in tests.
type Loader func(modelPath string, opts Options) (Engine, error)
