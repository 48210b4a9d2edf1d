package httpapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/whisperd/whisperd/internal/engine"
	"github.com/whisperd/whisperd/internal/streaming"
)

// hotStreamResponse is the "triggered with text" shape of the HTTP
// /hot_stream endpoint (spec §6.1).
type hotStreamResponse struct {
	Text             string                    `json:"text"`
	IsStreaming      bool                      `json:"is_streaming"`
	Model            string                    `json:"model"`
	Segments         []streaming.StreamSegment `json:"segments"`
	ProcessingTimeMs int64                     `json:"processing_time_ms"`
}

// handleHotStream serves the HTTP /hot_stream endpoint. It dispatches on
// which multipart field is present: "file" carries a full PCM WAV blob
// (hot batch), "audio" carries already-float-encoded chunked samples
// (spec §9's open question, resolved in favor of one consolidated route).
func (s *Server) handleHotStream(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var samples []float32
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		blob, rerr := io.ReadAll(file)
		if rerr != nil {
			writeJSONError(w, "failed to read audio file")
			return
		}
		decoded, derr := s.Decoder.Decode(r.Context(), blob)
		if derr != nil {
			s.recordDecodeError(r.Context(), derr)
			writeJSONError(w, "failed to decode audio")
			return
		}
		samples = decoded
	} else if file, _, err := r.FormFile("audio"); err == nil {
		defer file.Close()
		blob, rerr := io.ReadAll(file)
		if rerr != nil {
			writeJSONError(w, "failed to read audio")
			return
		}
		samples = bytesToFloat32LE(blob)
	} else {
		writeJSONError(w, "no audio given!")
		return
	}

	ring := s.ringFor(r)
	ring.Append(samples)

	lengthMs := s.Cfg.Server.HotStreamLengthMs
	keepMs := s.Cfg.Server.HotStreamKeepMs

	result, triggered, err := streaming.TryHotStreamHTTP(r.Context(), s.Hot, ring, streaming.HotParams(engine.Params{}), lengthMs, keepMs)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordInferenceError(r.Context(), "hot")
		}
		writeJSONError(w, "failed to process audio")
		return
	}
	if triggered && s.Metrics != nil {
		s.Metrics.RecordTriggerFire(r.Context(), "http_hot_stream")
		s.Metrics.HotInferenceDuration.Record(r.Context(), result.Elapsed.Seconds())
	}

	text := strings.TrimSpace(streaming.JoinSegments(result.Segments))
	if triggered && text != "" {
		writeJSON(w, hotStreamResponse{
			Text:             text,
			IsStreaming:      true,
			Model:            filepath.Base(s.Hot.ModelPath()),
			Segments:         streaming.BuildStreamResponse(result.Segments, ring).Segments,
			ProcessingTimeMs: result.Elapsed.Milliseconds(),
		})
		return
	}

	writeJSON(w, streaming.BuildStreamResponse(result.Segments, ring))
}
