// Package httpapi implements the HTTP surface: landing page, batch
// inference, HTTP streaming, and model hot-reload.
package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/whisperd/whisperd/internal/audio"
	"github.com/whisperd/whisperd/internal/config"
	"github.com/whisperd/whisperd/internal/engine"
	"github.com/whisperd/whisperd/internal/observe"
	"github.com/whisperd/whisperd/internal/session"
	"github.com/whisperd/whisperd/internal/streaming"
)

// Server holds everything the HTTP surface needs to route and serve
// requests. It owns no network listener itself — callers wrap [Server.Mux]
// in an [http.Server] with the configured timeouts.
type Server struct {
	Cfg      *config.Config
	Cold     *engine.Domain
	Hot      *engine.Domain
	Registry *session.Registry
	Decoder  *audio.Decoder
	Metrics  *observe.Metrics
	Log      *slog.Logger

	// Fatal is invoked when a cold-model reload fails (spec §4.2: "there is
	// no fallback to the previous model"). Defaults to os.Exit(3); tests
	// override it to observe the call without killing the test binary.
	Fatal func(code int)

	// ColdOptions and ColdLoader are reused by /load to reinitialize the
	// cold engine handle from a new model path.
	ColdOptions engine.Options
	ColdLoader  engine.Loader

	mu    sync.Mutex
	rings map[net.Conn]*streaming.Ring
}

// New builds a Server from its dependencies. log defaults to [slog.Default]
// when nil.
func New(cfg *config.Config, cold, hot *engine.Domain, reg *session.Registry, dec *audio.Decoder, metrics *observe.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Cfg:      cfg,
		Cold:     cold,
		Hot:      hot,
		Registry: reg,
		Decoder:  dec,
		Metrics:  metrics,
		Log:      log,
		Fatal:    os.Exit,
		rings:    make(map[net.Conn]*streaming.Ring),
	}
}

// prefix returns the configured request-path prefix, e.g. "" or "/api".
func (s *Server) prefix() string {
	return strings.TrimSuffix(s.Cfg.Server.RequestPathPrefix, "/")
}

// inferenceSuffix returns the configured /inference path suffix.
func (s *Server) inferenceSuffix() string {
	suf := s.Cfg.Server.InferencePathSuffix
	if suf == "" {
		suf = "/inference"
	}
	return suf
}

// Mux builds the full route table for the HTTP surface, wrapped with CORS
// and panic-recovery middleware (spec §4.7).
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	p := s.prefix()

	mux.HandleFunc("GET "+p+"/", s.handleIndex)
	mux.HandleFunc("OPTIONS "+p+s.inferenceSuffix(), s.handleInferenceOptions)
	mux.HandleFunc("POST "+p+s.inferenceSuffix(), s.handleInference)
	mux.HandleFunc("POST "+p+"/stream", s.handleStream)
	mux.HandleFunc("POST "+p+"/hot_stream", s.handleHotStream)
	mux.HandleFunc("POST "+p+"/load", s.handleLoad)

	return s.withMiddleware(mux)
}

// withMiddleware installs CORS headers on every response, traps panics into
// the fixed 500 body shape, and rewrites error bodies the way the original
// server's set_error_handler/set_exception_handler pair does: a 400 becomes
// "Invalid request" and any other 4xx becomes "File Not Found (<path>)" with
// the status forced to 404 (catching unmatched routes and wrong methods,
// which otherwise carry Go's stock mux bodies). Everything else, including
// http.ServeFile's 304/206/301 responses for the landing page, passes
// through untouched.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		defer func() {
			if rec := recover(); rec != nil {
				s.Log.Error("panic recovered", "panic", rec)
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, "500 Internal Server Error\n%v", rec)
			}
		}()

		rw := newStatusRewriter(w)
		next.ServeHTTP(rw, r)
		rw.flush(r)
	})
}

// statusRewriter buffers a handler's response so withMiddleware can rewrite
// the body after the status code is known, mirroring the original server's
// error handler.
type statusRewriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func newStatusRewriter(w http.ResponseWriter) *statusRewriter {
	return &statusRewriter{ResponseWriter: w}
}

func (rw *statusRewriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
}

func (rw *statusRewriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.buf.Write(b)
}

// flush emits the real response, rewriting the body when the handler ended
// in an error status other than 500 (which is left to the panic handler).
func (rw *statusRewriter) flush(r *http.Request) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}

	switch {
	case rw.status == http.StatusBadRequest:
		rw.ResponseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.ResponseWriter.WriteHeader(http.StatusBadRequest)
		io.WriteString(rw.ResponseWriter, "Invalid request")
	case rw.status >= 400 && rw.status < 500:
		// Any other client error (unmatched route, wrong method, ...) is
		// reported the same way regardless of what actually went wrong.
		// 2xx/3xx (including http.ServeFile's 304/206/301) and 5xx pass
		// through untouched.
		rw.ResponseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.ResponseWriter.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(rw.ResponseWriter, "File Not Found (%s)", r.URL.Path)
	default:
		rw.ResponseWriter.WriteHeader(rw.status)
		rw.buf.WriteTo(rw.ResponseWriter)
	}
}

// handleIndex serves the static landing page from PublicPath, or a minimal
// built-in page when none is configured.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	root := s.Cfg.Server.PublicPath
	rel := strings.TrimPrefix(r.URL.Path, s.prefix())
	if root == "" {
		if rel != "" && rel != "/" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, "File Not Found (%s)", rel)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1>whisperd</h1></body></html>")
		return
	}

	if rel == "" || rel == "/" {
		rel = "/index.html"
	}
	path := root + rel
	if _, err := os.Stat(path); err != nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "File Not Found (%s)", rel)
		return
	}
	http.ServeFile(w, r, path)
}

// ringFor returns the per-connection audio ring for the HTTP streaming
// endpoints, creating one on first use. Keying on [net.Conn] mirrors the
// original server's thread-local buffer without requiring the client to
// supply a session identifier (spec §4.3 Mode B).
func (s *Server) ringFor(r *http.Request) *streaming.Ring {
	conn := connFromContext(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ring, ok := s.rings[conn]
	if !ok {
		ring = &streaming.Ring{}
		s.rings[conn] = ring
	}
	return ring
}

// ForgetConn discards the ring associated with conn. Wired to
// [http.Server.ConnState] by the caller on [http.StateClosed]/[http.StateHijacked].
func (s *Server) ForgetConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rings, conn)
}

// writeJSONError writes a 200-status JSON error body, matching spec §7's
// "input errors ... 200 with JSON {"error":...}" policy for the batch paths.
func writeJSONError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
