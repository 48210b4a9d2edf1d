package streaming

// Ring is the front-prunable sample buffer spec's glossary calls the
// sliding window. It backs both WebSocket sessions (internal/session) and
// the per-connection state the HTTP streaming endpoints keep across calls
// on the same connection.
type Ring struct {
	Samples []float32
}

// Append adds samples to the end of the ring.
func (r *Ring) Append(samples []float32) {
	r.Samples = append(r.Samples, samples...)
}

// Len reports the number of buffered samples.
func (r *Ring) Len() int {
	return len(r.Samples)
}

// Tail returns the last n samples, or the whole ring if it holds fewer
// than n.
func (r *Ring) Tail(n int) []float32 {
	if n >= len(r.Samples) {
		return r.Samples
	}
	return r.Samples[len(r.Samples)-n:]
}

// Retain prunes the ring down to its last n samples, or leaves it
// untouched if it already holds n or fewer. Spec §4.3 requires this only
// ever run after a successful inference call — on failure the caller must
// leave the ring alone so the next frame retries naturally.
func (r *Ring) Retain(n int) {
	if len(r.Samples) <= n {
		return
	}
	pruned := make([]float32, n)
	copy(pruned, r.Samples[len(r.Samples)-n:])
	r.Samples = pruned
}

// SizeMs reports the ring's buffered duration in milliseconds at 16kHz.
func (r *Ring) SizeMs() int {
	return len(r.Samples) * 1000 / SampleRate
}
