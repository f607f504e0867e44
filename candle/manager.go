package candle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/candlepulse/candle-pusher/candle/types"
	"github.com/candlepulse/candle-pusher/telemetry"
)

// Manager owns the tag registry: every live stream, keyed by tag, plus the
// builders that create factories for new tags. All registry mutation
// happens under its lock; fetches run outside it.
type Manager struct {
	logger    zerolog.Logger
	factories Factories

	mtx     sync.Mutex
	streams map[string]*Stream
}

// NewManager returns an empty registry over the given builders.
func NewManager(logger zerolog.Logger, factories Factories) *Manager {
	return &Manager{
		logger:    logger.With().Str("module", "manager").Logger(),
		factories: factories,
		streams:   make(map[string]*Stream),
	}
}

// StreamCount returns the number of live streams.
func (m *Manager) StreamCount() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.streams)
}

// Listen subscribes the listener to the tag carried or synthesized from
// data. Failures are answered on the listener as an error-status init
// envelope; a nil return means only that the request was handled, not
// that it succeeded.
func (m *Manager) Listen(ctx context.Context, l Listener, data types.RequestData) {
	tag, err := data.TagFor()
	if err != nil {
		m.sendTo(l, types.NewInitError(tag, err.Error()))
		return
	}
	if err := m.listenTag(ctx, l, tag); err != nil {
		m.sendTo(l, types.NewInitError(tag, err.Error()))
	}
}

func (m *Manager) listenTag(ctx context.Context, l Listener, tag string) error {
	family, rest, _ := strings.Cut(tag, ":")

	switch family {
	case types.FamilyCEX:
		if m.factories.CEX == nil {
			return types.Validationf("CEX candle factory not set")
		}
	case types.FamilyDEX:
		if m.factories.DEX == nil {
			return types.Validationf("DEX candle factory not set")
		}
	default:
		m.sendTo(l, types.ErrorMessage{Type: types.MsgError, Message: fmt.Sprintf("invalid tag %s", tag)})
		return nil
	}

	if m.attach(ctx, l, tag) {
		return nil
	}

	if family == types.FamilyCEX && strings.Contains(rest, types.WildcardExchange) {
		resolved, err := m.resolveWildcard(ctx, rest)
		if err != nil {
			return err
		}
		tag = types.FamilyCEX + ":" + resolved
		// Another session may have created the resolved tag while the
		// probe ran.
		if m.attach(ctx, l, tag) {
			return nil
		}
		rest = resolved
	}

	factory, err := m.build(family, rest)
	if err != nil {
		return err
	}
	if !factory.Check(ctx) {
		return types.Validationf("invalid %s candle factory", strings.ToUpper(family))
	}

	stream := NewStream(m.logger, tag, factory)
	if err := stream.AddListener(ctx, l); err != nil {
		return err
	}

	m.mtx.Lock()
	existing, raced := m.streams[tag]
	if raced {
		// Lost the insert race. The listener already has its init
		// snapshot, so fold it into the winner without a second one.
		existing.adopt(l)
	} else {
		m.streams[tag] = stream
	}
	count := len(m.streams)
	m.mtx.Unlock()

	if !raced {
		telemetry.SetActiveStreams(count)
		m.logger.Info().Str("tag", tag).Msg("new listener stream")
	}
	return nil
}

// attach adds the listener to an existing stream for the tag, reporting
// whether one existed.
func (m *Manager) attach(ctx context.Context, l Listener, tag string) bool {
	m.mtx.Lock()
	stream, ok := m.streams[tag]
	m.mtx.Unlock()
	if !ok {
		return false
	}
	if err := stream.AddListener(ctx, l); err != nil {
		m.sendTo(l, types.NewInitError(tag, err.Error()))
	}
	return true
}

// resolveWildcard replaces the first "*" in a cex tag remainder with the
// first exchange able to serve the symbol and interval.
func (m *Manager) resolveWildcard(ctx context.Context, rest string) (string, error) {
	resolver, ok := m.factories.CEX.(WildcardResolver)
	if !ok {
		return "", types.Validationf("CEX candle factory does not support wildcard")
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return "", types.Validationf("invalid tag cex:%s", rest)
	}
	id, err := resolver.CheckFirst(ctx, parts[1], types.Interval(parts[2]))
	if err != nil {
		return "", err
	}
	return strings.Replace(rest, types.WildcardExchange, id, 1), nil
}

func (m *Manager) build(family, rest string) (Factory, error) {
	parts := strings.Split(rest, ":")
	switch family {
	case types.FamilyCEX:
		if len(parts) != 3 {
			return nil, types.Validationf("invalid tag cex:%s", rest)
		}
		return m.factories.CEX.New(parts[0], parts[1], types.Interval(parts[2]))
	case types.FamilyDEX:
		if len(parts) != 4 {
			return nil, types.Validationf("invalid tag dex:%s", rest)
		}
		return m.factories.DEX.New(parts[0], parts[1], parts[2], types.Interval(parts[3]))
	}
	return nil, types.Validationf("invalid tag family %s", family)
}

// Unlisten removes the listener's subscription to the tag. Outcomes are
// reported on the listener as notice messages; an unsynthesizable tag is
// reported as an error message.
func (m *Manager) Unlisten(l Listener, data types.RequestData) {
	tag, err := data.TagFor()
	if err != nil {
		m.sendTo(l, types.ErrorMessage{Type: types.MsgError, Message: err.Error()})
		return
	}

	m.mtx.Lock()
	stream, ok := m.streams[tag]
	m.mtx.Unlock()
	if !ok {
		m.sendTo(l, types.NoticeMessage{
			Type:    types.MsgNotice,
			Status:  types.StatusError,
			Message: fmt.Sprintf("no listener for %s", tag),
		})
		return
	}

	empty, err := stream.RemoveListener(l)
	if err != nil {
		m.sendTo(l, types.ErrorMessage{Type: types.MsgError, Message: err.Error()})
		return
	}
	if empty {
		m.drop(tag)
	}
	m.sendTo(l, types.NoticeMessage{
		Type:    types.MsgNotice,
		Status:  types.StatusSuccess,
		Message: "unlisten success",
		Tag:     tag,
	})
}

// History serves a history page for a tag the listener's session is
// interested in. The tag must already have a live stream; history never
// creates one.
func (m *Manager) History(ctx context.Context, l Listener, data types.RequestData) {
	tag, err := data.TagFor()
	if err != nil {
		m.sendTo(l, types.ErrorMessage{Type: types.MsgError, Message: err.Error()})
		return
	}

	m.mtx.Lock()
	stream, ok := m.streams[tag]
	m.mtx.Unlock()
	if !ok {
		m.sendTo(l, types.ErrorMessage{Type: types.MsgError, Message: fmt.Sprintf("no listener for %s", tag)})
		return
	}
	stream.PullHistory(ctx, l, data.Start, data.Limit)
}

// Disconnect detaches the listener from every stream it is in and drops
// the streams that end up empty.
func (m *Manager) Disconnect(l Listener) {
	m.mtx.Lock()
	streams := make(map[string]*Stream, len(m.streams))
	for tag, stream := range m.streams {
		streams[tag] = stream
	}
	m.mtx.Unlock()

	for tag, stream := range streams {
		empty, err := stream.RemoveListener(l)
		if err != nil {
			continue
		}
		if empty {
			m.drop(tag)
		}
	}
}

// BroadcastTick polls every stream once and fans the results out. One
// stream's upstream failure never blocks the others.
func (m *Manager) BroadcastTick(ctx context.Context) {
	m.mtx.Lock()
	streams := make([]*Stream, 0, len(m.streams))
	for _, stream := range m.streams {
		streams = append(streams, stream)
	}
	m.mtx.Unlock()

	for _, stream := range streams {
		if err := stream.PullNewest(ctx); err != nil {
			m.logger.Warn().Err(err).Str("tag", stream.Tag()).Msg("broadcast poll failed")
		}
	}
	telemetry.BroadcastTick()
}

// drop deletes an empty stream from the registry. A stream that picked up
// a listener since the empty check stays.
func (m *Manager) drop(tag string) {
	m.mtx.Lock()
	stream, ok := m.streams[tag]
	dropped := ok && stream.Len() == 0
	if dropped {
		delete(m.streams, tag)
	}
	count := len(m.streams)
	m.mtx.Unlock()

	if dropped {
		telemetry.SetActiveStreams(count)
		m.logger.Info().Str("tag", tag).Msg("listener stream removed")
	}
}

func (m *Manager) sendTo(l Listener, msg interface{}) {
	if err := l.Send(msg); err != nil && !errors.Is(err, types.ErrListenerClosed) {
		m.logger.Warn().Err(err).Msg("reply send failed")
	}
}
