package httpapi

import (
	"net/http"

	"github.com/whisperd/whisperd/internal/observe"
)

// handleLoad serves the /load endpoint: hot-reloads the cold model
// (spec §4.2). A missing path is a normal input error; a reload failure is
// fatal — the process exits with no fallback to the previous model.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	path := r.FormValue("model")
	if path == "" {
		writeJSONError(w, "model not found!")
		return
	}

	if err := s.Cold.Reload(path, s.ColdOptions, s.ColdLoader); err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordModelReload(r.Context(), "cold", "error")
		}
		s.Log.Error("cold model reload failed, exiting", "path", path, "err", err, "trace_id", observe.CorrelationID(r.Context()))
		s.Fatal(3)
		return
	}

	if s.Metrics != nil {
		s.Metrics.RecordModelReload(r.Context(), "cold", "ok")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Load was successful!"))
}
