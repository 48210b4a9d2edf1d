package streaming

import (
	"sync/atomic"

	"github.com/whisperd/whisperd/internal/engine"
)

// HotParams configures the engine parameters for low-latency operation
// (spec §4.3 "Invocation"): greedy strategy, no realtime printing, a short
// text context, a raised entropy threshold and relaxed log-probability
// threshold for speed, timestamps off by default, non-speech suppression
// on, and a 2-thread cap. base supplies anything the caller wants to carry
// through unchanged (language, initial prompt, abort hooks).
func HotParams(base engine.Params) engine.Params {
	p := base
	p.Strategy = engine.StrategyGreedy
	p.PrintProgress = false
	p.MaxTextCtx = 128
	p.EntropyThold = 2.8
	p.LogprobThold = -1.5
	p.NoTimestamps = true
	p.SuppressNST = true
	p.NThreads = 2
	return p
}

// ColdStreamParams configures the cold domain for the HTTP /stream
// endpoint, which shares the hot path's low-latency posture (spec §4.3
// groups /stream with the hot-path invocation profile) but runs against
// the cold handle.
func ColdStreamParams(base engine.Params) engine.Params {
	return HotParams(base)
}

// AbortFlag is the shared atomic flag a future cancellation path flips to
// stop an inflight inference call; both of engine.Params' callback hooks
// are wired to consult it (spec §5, §9 "Callback plumbing").
type AbortFlag struct {
	flag atomic.Bool
}

// Abort requests cancellation of any call consulting this flag.
func (a *AbortFlag) Abort() {
	a.flag.Store(true)
}

// Reset clears a previously set abort request.
func (a *AbortFlag) Reset() {
	a.flag.Store(false)
}

// Wire returns EncoderBeginFunc/AbortFunc closures over this flag and
// installs them on params.
func (a *AbortFlag) Wire(params *engine.Params) {
	params.EncoderBeginFunc = func() bool { return !a.flag.Load() }
	params.AbortFunc = func() bool { return a.flag.Load() }
}
