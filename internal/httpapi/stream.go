package httpapi

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"net/http"

	"github.com/whisperd/whisperd/internal/engine"
	"github.com/whisperd/whisperd/internal/streaming"
)

// bytesToFloat32LE decodes a byte slice of raw little-endian float32 samples.
// A trailing partial sample (byte count not a multiple of 4) is dropped,
// mirroring the decoder's "silently skip a malformed frame" policy
// (spec §4.3 tie-breaks).
func bytesToFloat32LE(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// handleStream serves the HTTP /stream endpoint: cold-domain streaming over
// a per-connection ring (spec §4.3 Mode B, cold variant).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSONError(w, "no audio given!")
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, "failed to read audio")
		return
	}

	ring := s.ringFor(r)
	ring.Append(bytesToFloat32LE(blob))

	base := streaming.ColdStreamParams(engine.Params{})
	result, triggered, err := streaming.TryColdStream(r.Context(), s.Cold, ring, base)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordInferenceError(r.Context(), "cold")
		}
		writeJSONError(w, "failed to process audio")
		return
	}
	if triggered && s.Metrics != nil {
		s.Metrics.RecordTriggerFire(r.Context(), "cold_stream")
		s.Metrics.ColdInferenceDuration.Record(r.Context(), result.Elapsed.Seconds())
	}

	resp := streaming.BuildStreamResponse(result.Segments, ring)
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
