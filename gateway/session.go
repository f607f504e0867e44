package gateway

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/candlepulse/candle-pusher/candle/types"
	"github.com/candlepulse/candle-pusher/telemetry"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	readLimit    = 4096
)

// Session is one WebSocket peer. All frame writes funnel through a single
// writePump goroutine so concurrent broadcast and reply sends never
// interleave on the connection.
type Session struct {
	conn   *websocket.Conn
	addr   Addr
	logger zerolog.Logger

	send chan []byte
	done chan struct{}

	closeOnce sync.Once

	// lastActivity is a unix timestamp refreshed on every inbound frame.
	lastActivity int64
}

func newSession(logger zerolog.Logger, conn *websocket.Conn, addr Addr) *Session {
	s := &Session{
		conn:         conn,
		addr:         addr,
		logger:       logger.With().Str("client", addr.String()).Logger(),
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		lastActivity: time.Now().Unix(),
	}
	go s.writePump()
	return s
}

// Addr returns the resolved client address.
func (s *Session) Addr() Addr {
	return s.addr
}

// Send marshals and queues one message. It reports ErrListenerClosed once
// the session is closed; a full queue drops the session, treating the
// peer as too slow to keep.
func (s *Session) Send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return types.ErrListenerClosed
	default:
	}
	select {
	case s.send <- data:
		telemetry.MessageSent(wireType(msg))
		return nil
	case <-s.done:
		return types.ErrListenerClosed
	default:
		s.logger.Warn().Msg("send queue full, dropping session")
		s.close(websocket.CloseGoingAway, "send queue overflow")
		return types.ErrListenerClosed
	}
}

func (s *Session) writePump() {
	defer s.conn.Close()
	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

func wireType(msg interface{}) string {
	switch m := msg.(type) {
	case types.InitMessage:
		return m.Type
	case types.UpdateMessage:
		return m.Type
	case types.HistoryMessage:
		return m.Type
	case types.NoticeMessage:
		return m.Type
	case types.ErrorMessage:
		return m.Type
	case types.PongMessage:
		return m.Type
	default:
		return "other"
	}
}

// touch refreshes the heartbeat clock.
func (s *Session) touch() {
	atomic.StoreInt64(&s.lastActivity, time.Now().Unix())
}

// LastActivity returns when the peer last sent a frame, as a unix
// timestamp.
func (s *Session) LastActivity() int64 {
	return atomic.LoadInt64(&s.lastActivity)
}

// close sends a close frame with the given code and reason, then tears
// down the transport. Safe to call more than once.
func (s *Session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(writeTimeout)
		err := s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			deadline,
		)
		if err != nil && err != websocket.ErrCloseSent {
			s.logger.Debug().Err(err).Msg("close frame write failed")
		}
		close(s.done)
	})
}
