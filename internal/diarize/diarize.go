// Package diarize implements the two-channel energy heuristic (spec §4.5)
// used to guess which of two speakers a segment belongs to. It is
// deliberately not a real diarization model — spec's Non-goals exclude
// diarization quality beyond this heuristic.
package diarize

// Label compares the summed absolute sample energy of two channels over
// the sample range implied by a segment's [t0, t1] offsets (10ms units)
// and returns "0", "1", or "?" when neither channel dominates by more
// than the 1.1x margin.
func Label(left, right []float32, t0, t1 int64) string {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	if n == 0 {
		return "?"
	}

	is0 := clamp(t0*160, 0, int64(n-1))
	is1 := clamp(t1*160, 0, int64(n-1))
	if is1 < is0 {
		is0, is1 = is1, is0
	}

	var energy0, energy1 float64
	for i := is0; i < is1; i++ {
		energy0 += absF32(left[i])
		energy1 += absF32(right[i])
	}

	switch {
	case energy0 > 1.1*energy1:
		return "0"
	case energy1 > 1.1*energy0:
		return "1"
	default:
		return "?"
	}
}

// Wrap renders a diarization label as the "(speaker X)" form used by text
// and SRT output, unless idOnly is requested (used internally where only
// the bare label is needed).
func Wrap(label string, idOnly bool) string {
	if idOnly {
		return label
	}
	return "(speaker " + label + ")"
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absF32(v float32) float64 {
	f := float64(v)
	if f < 0 {
		return -f
	}
	return f
}
