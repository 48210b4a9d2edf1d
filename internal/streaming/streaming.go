package streaming

import (
	"context"
	"strings"
	"time"

	"github.com/whisperd/whisperd/internal/engine"
)

// SampleRate is the fixed sample rate the whole pipeline assumes (spec §3).
const SampleRate = 16000

const (
	// TriggerSamples is 1.1s at 16kHz, the trigger threshold shared by the
	// WebSocket hot path and the cold /stream endpoint (spec §4.3).
	TriggerSamples = 17600

	// WSRetainSamples is the 2s trailing window the WebSocket hot path
	// keeps after a successful invocation, and also the §5 resource bound
	// on a session's ring (≤2s of 16kHz float = 128KB).
	WSRetainSamples = 32000

	// StreamTailSamples is the 200ms tail the cold /stream endpoint keeps
	// for continuity after a successful invocation.
	StreamTailSamples = 3200
)

// Result is what one successful trigger invocation produced.
type Result struct {
	Segments []engine.Segment
	Elapsed  time.Duration
}

// TryHotWS implements Mode A's trigger predicate and invocation (spec
// §4.3): once the ring holds at least TriggerSamples, process the tail
// 1.1s against the hot domain and retain the trailing 2s. triggered is
// false if the ring hasn't reached the threshold yet, in which case ring
// is left untouched and err is always nil. On an inference error the ring
// is also left untouched, so the next frame retries naturally.
func TryHotWS(ctx context.Context, domain *engine.Domain, ring *Ring, params engine.Params) (result Result, triggered bool, err error) {
	if ring.Len() < TriggerSamples {
		return Result{}, false, nil
	}
	tail := ring.Tail(TriggerSamples)
	segs, elapsed, err := domain.Invoke(ctx, HotParams(params), tail)
	if err != nil {
		return Result{}, true, err
	}
	ring.Retain(WSRetainSamples)
	return Result{Segments: segs, Elapsed: elapsed}, true, nil
}

// TryColdStream implements the HTTP /stream trigger and invocation: once
// the ring holds at least 1.1s, process the entire ring against the cold
// domain and retain a 200ms tail.
func TryColdStream(ctx context.Context, domain *engine.Domain, ring *Ring, params engine.Params) (result Result, triggered bool, err error) {
	if ring.Len() < TriggerSamples {
		return Result{}, false, nil
	}
	segs, elapsed, err := domain.Invoke(ctx, ColdStreamParams(params), ring.Samples)
	if err != nil {
		return Result{}, true, err
	}
	ring.Retain(StreamTailSamples)
	return Result{Segments: segs, Elapsed: elapsed}, true, nil
}

// TryHotStreamHTTP implements the HTTP /hot_stream chunked trigger: once
// the ring holds at least lengthMs of audio, process the entire ring
// against the hot domain and retain a keepMs tail. Both are supplied by
// the caller (the HTTP surface passes the server configuration's
// hot_stream_length_ms/hot_stream_keep_ms), unlike the fixed thresholds
// of the other two modes.
func TryHotStreamHTTP(ctx context.Context, domain *engine.Domain, ring *Ring, params engine.Params, lengthMs, keepMs int) (result Result, triggered bool, err error) {
	trigger := lengthMs * SampleRate / 1000
	if ring.Len() < trigger {
		return Result{}, false, nil
	}
	segs, elapsed, err := domain.Invoke(ctx, HotParams(params), ring.Samples)
	if err != nil {
		return Result{}, true, err
	}
	keep := keepMs * SampleRate / 1000
	ring.Retain(keep)
	return Result{Segments: segs, Elapsed: elapsed}, true, nil
}

// WSMessage is the JSON frame the WebSocket hot path emits (spec §4.3).
type WSMessage struct {
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
	IsStreaming bool   `json:"is_streaming"`
}

// BuildWSMessage concatenates segment texts and strips surrounding
// whitespace; ok is false when the result is empty, meaning nothing
// should be sent (spec §4.3: "no emission, no error").
func BuildWSMessage(segments []engine.Segment, now time.Time) (msg WSMessage, ok bool) {
	text := strings.TrimSpace(JoinSegments(segments))
	if text == "" {
		return WSMessage{}, false
	}
	return WSMessage{Text: text, Timestamp: now.UnixMilli(), IsStreaming: true}, true
}

// JoinSegments concatenates segment texts with no separator, matching the
// source's segment-text concatenation for streaming output.
func JoinSegments(segments []engine.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// StreamSegment is one element of the HTTP streaming paths' segments array.
type StreamSegment struct {
	Text string `json:"text"`
	T0   int64  `json:"t0"`
	T1   int64  `json:"t1"`
}

// StreamResponse is the JSON body the HTTP /stream and chunked /hot_stream
// endpoints return (spec §4.3): a segments array plus the residual ring
// size after pruning.
type StreamResponse struct {
	Segments     []StreamSegment `json:"segments"`
	BufferSizeMs int             `json:"buffer_size_ms"`
}

// BuildStreamResponse assembles a StreamResponse from the segments a
// trigger invocation produced and the ring's post-prune state.
func BuildStreamResponse(segments []engine.Segment, ring *Ring) StreamResponse {
	resp := StreamResponse{BufferSizeMs: ring.SizeMs()}
	for _, s := range segments {
		resp.Segments = append(resp.Segments, StreamSegment{Text: s.Text, T0: s.T0, T1: s.T1})
	}
	return resp
}
