// Package gateway serves the WebSocket surface: upgrading connections,
// demultiplexing client messages onto the candle manager, heartbeat
// eviction and the minute-aligned broadcast loop.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/candlepulse/candle-pusher/candle"
	"github.com/candlepulse/candle-pusher/candle/types"
	pfsync "github.com/candlepulse/candle-pusher/pkg/sync"
	"github.com/candlepulse/candle-pusher/telemetry"
)

// CandleManager is the subscription registry surface the gateway drives.
type CandleManager interface {
	Listen(ctx context.Context, l candle.Listener, data types.RequestData)
	Unlisten(l candle.Listener, data types.RequestData)
	History(ctx context.Context, l candle.Listener, data types.RequestData)
	Disconnect(l candle.Listener)
	BroadcastTick(ctx context.Context)
}

// Options tunes the gateway loops.
type Options struct {
	// HeartbeatInterval is how often idle sessions are swept.
	HeartbeatInterval time.Duration
	// HeartbeatWindow is how long a session may stay silent before the
	// sweep evicts it.
	HeartbeatWindow time.Duration
}

func (o *Options) fill() {
	if o.HeartbeatInterval == 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.HeartbeatWindow == 0 {
		o.HeartbeatWindow = 60 * time.Second
	}
}

// Server owns the live session set.
type Server struct {
	logger   zerolog.Logger
	manager  CandleManager
	opts     Options
	upgrader websocket.Upgrader
	closer   *pfsync.Closer

	sessions *sessionSet
}

func NewServer(logger zerolog.Logger, manager CandleManager, opts Options) *Server {
	opts.fill()
	return &Server{
		logger:  logger.With().Str("module", "gateway").Logger(),
		manager: manager,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		closer:   pfsync.NewCloser(),
		sessions: newSessionSet(),
	}
}

// HandleWS upgrades the request and runs the session's read loop until the
// peer disconnects or the server shuts down.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	addr := ResolveAddr(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("client", addr.String()).Msg("upgrade failed")
		return
	}

	sess := newSession(s.logger, conn, addr)
	s.sessions.add(sess)
	telemetry.SetActiveSessions(s.sessions.len())
	s.logger.Info().Str("client", addr.String()).Msg("session connected")

	_ = sess.Send(types.NoticeMessage{
		Type:    types.MsgNotice,
		Message: "Connected",
		IP:      addr.IP,
		Port:    addr.Port,
	})

	s.readLoop(r.Context(), sess)
	s.drop(sess, websocket.CloseNormalClosure, "Connection Closed")
}

func (s *Server) readLoop(ctx context.Context, sess *Session) {
	sess.conn.SetReadLimit(readLimit)
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok &&
				closeErr.Code > websocket.CloseGoingAway && closeErr.Text != "" {
				sess.logger.Warn().
					Int("code", closeErr.Code).
					Str("reason", closeErr.Text).
					Msg("connection closed unexpectedly")
			}
			return
		}
		var req types.Request
		if err := json.Unmarshal(data, &req); err != nil || req.Type == "" {
			_ = sess.Send(types.ErrorMessage{Type: types.MsgError, Message: "No message type"})
			continue
		}

		switch req.Type {
		case types.MsgPing:
			// Only pings keep a session alive; other traffic does not
			// reset the heartbeat window.
			sess.touch()
			_ = sess.Send(types.PongMessage{Type: types.MsgPong})
		case types.MsgListen:
			s.manager.Listen(ctx, sess, req.Data)
		case types.MsgUnlisten:
			s.manager.Unlisten(sess, req.Data)
		case types.MsgHistory:
			s.manager.History(ctx, sess, req.Data)
		}
	}
}

// SessionCount reports the number of live sessions.
func (s *Server) SessionCount() int {
	return s.sessions.len()
}

// drop removes a session, detaches its subscriptions and closes the
// transport with the given code.
func (s *Server) drop(sess *Session, code int, reason string) {
	if !s.sessions.remove(sess) {
		return
	}
	sess.close(code, reason)
	s.manager.Disconnect(sess)
	telemetry.SetActiveSessions(s.sessions.len())
	s.logger.Info().Str("client", sess.addr.String()).Msg("session disconnected")
}

// Heartbeat sweeps the session set every interval and evicts peers silent
// for longer than the window. It blocks until ctx is done or the server
// stops.
func (s *Server) Heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closer.Done():
			return
		case <-ticker.C:
			s.sweep(time.Now().Unix())
		}
	}
}

// sweep evicts sessions whose last activity is strictly older than the
// window. A peer exactly at the boundary survives until the next pass.
func (s *Server) sweep(now int64) {
	window := int64(s.opts.HeartbeatWindow / time.Second)
	for _, sess := range s.sessions.snapshot() {
		if sess.LastActivity()+window < now {
			s.logger.Info().Str("client", sess.addr.String()).Msg("heartbeat timeout")
			telemetry.HeartbeatEviction()
			s.drop(sess, websocket.CloseAbnormalClosure, "Heartbeat Timeout")
		}
	}
}

// BroadcastLoop drives the manager's broadcast tick on the minute grid:
// after each tick it sleeps to the next minute boundary, unless the tick
// itself ran a minute or longer, in which case the next one starts
// immediately.
func (s *Server) BroadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closer.Done():
			return
		default:
		}

		started := time.Now()
		s.manager.BroadcastTick(ctx)

		if time.Since(started) >= time.Minute {
			continue
		}
		wait := time.Duration(60-time.Now().Unix()%60) * time.Second
		select {
		case <-ctx.Done():
			return
		case <-s.closer.Done():
			return
		case <-time.After(wait):
		}
	}
}

// CloseAll stops the loops and closes every live session.
func (s *Server) CloseAll() {
	s.closer.Close()
	for _, sess := range s.sessions.snapshot() {
		s.drop(sess, websocket.CloseGoingAway, "Server Shutdown")
	}
}
