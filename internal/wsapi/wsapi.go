// Package wsapi implements the WebSocket surface: handshake gating by
// path, binary/text frame dispatch, and session registry lifecycle
// (spec §4.3 Mode A, §4.7).
package wsapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/whisperd/whisperd/internal/config"
	"github.com/whisperd/whisperd/internal/engine"
	"github.com/whisperd/whisperd/internal/observe"
	"github.com/whisperd/whisperd/internal/session"
	"github.com/whisperd/whisperd/internal/streaming"
	"github.com/whisperd/whisperd/pkg/wav"
)

// Server holds everything the WebSocket surface needs to accept and drive
// hot-streaming sessions.
type Server struct {
	Cfg      *config.Config
	Hot      *engine.Domain
	Registry *session.Registry
	Metrics  *observe.Metrics
	Log      *slog.Logger
}

// New builds a Server from its dependencies. log defaults to
// [slog.Default] when nil.
func New(cfg *config.Config, hot *engine.Domain, reg *session.Registry, metrics *observe.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{Cfg: cfg, Hot: hot, Registry: reg, Metrics: metrics, Log: log}
}

// path returns the single path the handshake accepts (spec §3: "hot-path
// WebSocket only accepts the exact path <prefix>/hot_stream").
func (s *Server) path() string {
	return strings.TrimSuffix(s.Cfg.Server.RequestPathPrefix, "/") + "/hot_stream"
}

// Handler returns an [http.Handler] that gates on the exact hot_stream
// path and rejects every other path at handshake (spec §4.7).
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != s.path() {
			http.NotFound(w, r)
			return
		}
		s.handle(w, r)
	})
}

// controlMessage is the JSON shape of WebSocket text frames (spec §4.3).
type controlMessage struct {
	Type string `json:"type"`
}

// sender adapts a [*websocket.Conn] to [session.Sender].
type sender struct {
	conn *websocket.Conn
}

func (sd sender) Close(reason string) error {
	return sd.conn.Close(websocket.StatusNormalClosure, reason)
}

// handle accepts one WebSocket connection and runs its frame loop until
// the client disconnects or an error occurs. The handshake always
// completes; if the registry is at capacity the connection is then closed
// with StatusPolicyViolation.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	// InsecureSkipVerify mirrors the HTTP surface's unconditional
	// Access-Control-Allow-Origin: * (spec §4.7): whisperd trusts its
	// deployment perimeter, not browser same-origin checks.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.Log.Warn("wsapi: accept failed", "err", err)
		return
	}

	sess, err := s.Registry.Insert(sender{conn: conn})
	if err != nil {
		s.Log.Info("wsapi: rejecting connection, registry at capacity")
		conn.Close(websocket.StatusPolicyViolation, "too many sessions")
		return
	}
	if s.Metrics != nil {
		s.Metrics.ActiveSessions.Add(r.Context(), 1)
	}
	defer func() {
		s.Registry.Remove(sess.ID)
		if s.Metrics != nil {
			s.Metrics.ActiveSessions.Add(r.Context(), -1)
		}
	}()

	s.readLoop(r.Context(), conn, sess)
}

// readLoop is the single poll thread spec §5 describes for a WebSocket
// connection: frames are read and dispatched synchronously, in arrival
// order, with inference run inline.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session) {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		sess.Touch()

		switch msgType {
		case websocket.MessageBinary:
			s.handleBinary(ctx, conn, sess, data)
		case websocket.MessageText:
			s.handleText(ctx, conn, data)
		}
	}
}

// handleBinary appends one frame of raw little-endian 16-bit PCM to the
// session's ring, then runs the hot trigger predicate (spec §4.3 Mode A).
// A frame with an odd byte count silently drops its trailing byte via
// [wav.PCM16ToFloats] rather than failing the connection.
func (s *Server) handleBinary(ctx context.Context, conn *websocket.Conn, sess *session.Session, data []byte) {
	sess.Ring.Append(wav.PCM16ToFloats(data))

	result, triggered, err := streaming.TryHotWS(ctx, s.Hot, &sess.Ring, streaming.HotParams(engine.Params{}))
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordInferenceError(ctx, "hot")
		}
		s.Log.Warn("wsapi: hot inference failed", "session", sess.ID, "err", err)
		return
	}
	if !triggered {
		return
	}
	if s.Metrics != nil {
		s.Metrics.RecordTriggerFire(ctx, "ws_hot")
		s.Metrics.HotInferenceDuration.Record(ctx, result.Elapsed.Seconds())
	}

	msg, ok := streaming.BuildWSMessage(result.Segments, time.Now())
	if !ok {
		return
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = conn.Write(ctx, websocket.MessageText, body)
}

// handleText interprets a text frame as a JSON control message. Only
// {"type":"ping"} elicits a reply; every other recognized-or-not control
// message is accepted but left unanswered (spec §4.3).
func (s *Server) handleText(ctx context.Context, conn *websocket.Conn, data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Type != "ping" {
		return
	}
	_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"pong"}`))
}
