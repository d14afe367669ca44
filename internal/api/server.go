package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/poh/server/internal/config"
	"github.com/poh/server/internal/sim"
	"go.uber.org/zap"
)

// Server is the browser-facing action gateway: the client submits actions as
// JSON over a websocket and receives one reply per action. All submissions
// funnel into the Simulation, which serializes them against the bucket.
type Server struct {
	sim      *sim.Simulation
	log      *zap.Logger
	cfg      config.NetworkConfig
	upgrader websocket.Upgrader
	http     *http.Server
}

// Reply is the per-action response envelope. Class distinguishes the error
// taxonomy for the UI: "conflict" means refresh the turn and resubmit,
// "rule" is a user-facing message, "error" is a bug to report.
type Reply struct {
	Seq   int64  `json:"seq"`
	OK    bool   `json:"ok"`
	Class string `json:"class,omitempty"`
	Error string `json:"error,omitempty"`
}

type actionEnvelope struct {
	Seq    int64      `json:"seq"`
	Action sim.Action `json:"action"`
}

func NewServer(s *sim.Simulation, cfg config.NetworkConfig, log *zap.Logger) *Server {
	return &Server{
		sim: s,
		log: log,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser client is served from a different origin in dev.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ListenAndServe blocks serving websocket connections on /ws until the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.http = &http.Server{
		Addr:         s.cfg.BindAddress,
		Handler:      mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.http.Shutdown(shutdownCtx)
	}()
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	s.log.Info("client connected", zap.String("remote", conn.RemoteAddr().String()))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("client read error", zap.Error(err))
			}
			return
		}
		var env actionEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.write(conn, Reply{OK: false, Class: "error", Error: "malformed action envelope"})
			continue
		}
		s.write(conn, s.submit(env))
	}
}

func (s *Server) submit(env actionEnvelope) Reply {
	err := s.sim.Submit(env.Action)
	if err == nil {
		return Reply{Seq: env.Seq, OK: true}
	}
	reply := Reply{Seq: env.Seq, OK: false, Error: err.Error()}
	switch {
	case errors.Is(err, sim.ErrTurnConflict):
		reply.Class = "conflict"
	case sim.IsRule(err):
		reply.Class = "rule"
	default:
		reply.Class = "error"
		s.log.Error("action failed", zap.String("type", env.Action.Type), zap.Error(err))
	}
	return reply
}

func (s *Server) write(conn *websocket.Conn, reply Reply) {
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteJSON(reply); err != nil {
		s.log.Warn("client write error", zap.Error(err))
	}
}
