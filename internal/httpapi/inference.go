package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/whisperd/whisperd/internal/diarize"
	"github.com/whisperd/whisperd/internal/engine"
	"github.com/whisperd/whisperd/internal/format"
)

// handleInferenceOptions answers the CORS preflight for /inference with an
// empty 200 (spec §6.1).
func (s *Server) handleInferenceOptions(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleInference serves one full audio upload on the cold domain
// (spec §4.4).
func (s *Server) handleInference(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "no audio file given!")
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, "failed to read audio file")
		return
	}

	eng := s.Cold.Engine()
	if eng == nil {
		writeJSONError(w, "model not loaded")
		return
	}

	base := eng.DefaultParams(engine.StrategyGreedy)
	params := overlayParams(r, base)
	if err := params.Validate(eng.IsMultilingual()); err != nil {
		writeJSONError(w, err.Error())
		return
	}

	var mono []float32
	var stereo [2][]float32
	if params.Diarize {
		mono, stereo, err = s.Decoder.DecodeStereo(r.Context(), blob)
		if err != nil {
			s.recordDecodeError(r.Context(), err)
			writeJSONError(w, "failed to decode audio")
			return
		}
	} else {
		mono, err = s.Decoder.Decode(r.Context(), blob)
		if err != nil {
			s.recordDecodeError(r.Context(), err)
			writeJSONError(w, "failed to decode audio")
			return
		}
	}

	segments, elapsed, err := s.Cold.Invoke(r.Context(), params, mono)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordInferenceError(r.Context(), "cold")
		}
		writeJSONError(w, "failed to process audio")
		return
	}
	if s.Metrics != nil {
		s.Metrics.ColdInferenceDuration.Record(r.Context(), elapsed.Seconds())
	}

	respFormat := format.Parse(r.FormValue("response_format"))
	opts := format.Options{
		Format:       respFormat,
		Task:         taskName(params.Translate),
		Language:     params.Language,
		Duration:     float64(len(mono)) / 16000.0,
		OffsetN:      params.OffsetN,
		Temperature:  params.Temperature,
		NoTimestamps: params.NoTimestamps,
	}
	if params.Diarize {
		opts.Speaker = diarizeSpeaker(stereo[0], stereo[1])
	}

	body, err := format.Render(segments, opts)
	if err != nil {
		writeJSONError(w, "failed to format response")
		return
	}

	w.Header().Set("Content-Type", opts.ContentType())
	w.Write(body)
}

// taskName mirrors whisper.cpp's "task" field in verbose_json.
func taskName(translate bool) string {
	if translate {
		return "translate"
	}
	return "transcribe"
}

// diarizeSpeaker closes over the two decoded channels and resolves a
// segment's speaker label via the energy heuristic (spec §4.5).
func diarizeSpeaker(left, right []float32) format.Speaker {
	return func(seg engine.Segment) (string, bool) {
		return diarize.Label(left, right, seg.T0, seg.T1), true
	}
}

func (s *Server) recordDecodeError(ctx context.Context, err error) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.RecordDecodeError(ctx, err.Error())
}
