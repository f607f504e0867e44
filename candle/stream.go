package candle

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/candlepulse/candle-pusher/candle/types"
	"github.com/candlepulse/candle-pusher/telemetry"
)

// Listener is the sink side of a subscription. Send must not block the
// caller beyond its own buffering policy and must return
// types.ErrListenerClosed once the transport is gone.
type Listener interface {
	Send(msg interface{}) error
}

// Stream couples one factory with the set of listeners subscribed to its
// tag. All listener-set mutation goes through the Manager's lock; the
// stream's own mutex only guards the set against concurrent broadcast.
type Stream struct {
	tag     string
	factory Factory
	logger  zerolog.Logger

	mtx       sync.Mutex
	listeners map[Listener]struct{}
}

// NewStream binds a factory to a tag with an empty listener set.
func NewStream(logger zerolog.Logger, tag string, factory Factory) *Stream {
	return &Stream{
		tag:       tag,
		factory:   factory,
		logger:    logger.With().Str("tag", tag).Logger(),
		listeners: make(map[Listener]struct{}),
	}
}

// Tag returns the stream's tag.
func (s *Stream) Tag() string {
	return s.tag
}

// Len returns the current listener count.
func (s *Stream) Len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.listeners)
}

// AddListener fetches the initial snapshot and, only if the fetch
// succeeds, admits the listener and delivers the init message. A failed
// fetch leaves the listener out and returns the error for the caller to
// report.
func (s *Stream) AddListener(ctx context.Context, l Listener) error {
	candles, err := s.factory.FetchLatest(ctx)
	if err != nil {
		return err
	}

	s.adopt(l)

	err = l.Send(types.InitMessage{
		Type:    types.MsgInit,
		Status:  types.StatusSuccess,
		Message: "listening to new data",
		Tag:     s.tag,
		Data:    candles,
	})
	if err != nil && !errors.Is(err, types.ErrListenerClosed) {
		s.logger.Warn().Err(err).Msg("init send failed")
	}
	return nil
}

// adopt inserts the listener without an init snapshot. It backs the
// create-or-get path where another goroutine won the registry insert after
// this one already delivered its own init.
func (s *Stream) adopt(l Listener) {
	s.mtx.Lock()
	s.listeners[l] = struct{}{}
	s.mtx.Unlock()
}

// RemoveListener drops the listener and reports whether the stream is now
// empty. An unknown listener is an error; the stream is left unchanged.
func (s *Stream) RemoveListener(l Listener) (empty bool, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.listeners[l]; !ok {
		return false, types.Validationf("listener not found in %s tag", s.tag)
	}
	delete(s.listeners, l)
	return len(s.listeners) == 0, nil
}

// PullNewest polls the factory and fans the page out to every listener.
// Closed listeners are skipped silently; any other send failure is logged
// and does not stop the fan-out.
func (s *Stream) PullNewest(ctx context.Context) error {
	candles, err := s.factory.FetchNewest(ctx)
	if err != nil {
		return err
	}

	msg := types.UpdateMessage{Type: types.MsgUpdate, Data: candles}

	s.mtx.Lock()
	targets := make([]Listener, 0, len(s.listeners))
	for l := range s.listeners {
		targets = append(targets, l)
	}
	s.mtx.Unlock()

	for _, l := range targets {
		if err := l.Send(msg); err != nil {
			if errors.Is(err, types.ErrListenerClosed) {
				continue
			}
			telemetry.SendFailure()
			s.logger.Warn().Err(err).Msg("update send failed")
		}
	}
	return nil
}

// PullHistory fetches one history page and delivers it to the requesting
// listener only. A fetch failure is reported to the same listener as an
// error message.
func (s *Stream) PullHistory(ctx context.Context, l Listener, start int64, limit int) {
	candles, err := s.factory.FetchHistory(ctx, start, limit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("history fetch failed")
		s.send(l, types.ErrorMessage{Type: types.MsgError, Message: err.Error()})
		return
	}
	s.send(l, types.HistoryMessage{Type: types.MsgHistory, Data: candles})
}

func (s *Stream) send(l Listener, msg interface{}) {
	if err := l.Send(msg); err != nil && !errors.Is(err, types.ErrListenerClosed) {
		telemetry.SendFailure()
		s.logger.Warn().Err(err).Msg("send failed")
	}
}
