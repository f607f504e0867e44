package candle

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/candlepulse/candle-pusher/candle/exchange"
	"github.com/candlepulse/candle-pusher/candle/types"
)

var symbolRE = regexp.MustCompile(`^[A-Z0-9]+-[A-Z0-9]+$`)

// HTTPCexBuilder builds CEX factories backed by the descriptor-driven HTTP
// kline adapters. It also implements wildcard resolution over the
// registered exchanges.
type HTTPCexBuilder struct {
	logger  zerolog.Logger
	timeout time.Duration
	// hosts overrides the descriptor host per exchange id, for proxying
	// and tests.
	hosts map[string]string
}

var (
	_ CexBuilder       = (*HTTPCexBuilder)(nil)
	_ WildcardResolver = (*HTTPCexBuilder)(nil)
)

// NewHTTPCexBuilder returns a builder using the given per-request timeout
// and optional per-exchange host overrides.
func NewHTTPCexBuilder(logger zerolog.Logger, timeout time.Duration, hosts map[string]string) *HTTPCexBuilder {
	return &HTTPCexBuilder{
		logger:  logger.With().Str("module", "cex").Logger(),
		timeout: timeout,
		hosts:   hosts,
	}
}

func (b *HTTPCexBuilder) client(desc exchange.Descriptor) *exchange.Client {
	if host, ok := b.hosts[desc.ID]; ok {
		desc.Host = host
	}
	return exchange.NewClient(b.logger, desc, b.timeout)
}

// New validates the exchange id, interval vocabulary membership and symbol
// grammar before any network call, then binds a factory to the pair.
func (b *HTTPCexBuilder) New(exchangeID, symbol string, interval types.Interval) (Factory, error) {
	desc, ok := exchange.Lookup(exchangeID)
	if !ok {
		return nil, types.Validationf("invalid CEX exchange %s", exchangeID)
	}
	if interval == "" {
		interval = types.IntervalSmallest
	}
	if !desc.SupportsInterval(interval) {
		return nil, types.Validationf("invalid CEX interval %s", interval)
	}
	if !symbolRE.MatchString(symbol) {
		return nil, types.Validationf("invalid CEX symbol %s", symbol)
	}
	parts := strings.SplitN(symbol, "-", 2)

	return &cexFactory{
		client:   b.client(desc),
		base:     parts[0],
		quote:    parts[1],
		interval: interval,
	}, nil
}

// CheckFirst probes the registered exchanges in ascending preference order,
// skipping any that cannot serve the interval, and returns the id of the
// first that answers with a non-empty result.
func (b *HTTPCexBuilder) CheckFirst(ctx context.Context, symbol string, interval types.Interval) (string, error) {
	if interval == "" {
		interval = types.IntervalSmallest
	}
	if !symbolRE.MatchString(symbol) {
		return "", types.Validationf("invalid CEX symbol %s", symbol)
	}
	parts := strings.SplitN(symbol, "-", 2)

	for _, desc := range exchange.ByOrder() {
		if !desc.SupportsInterval(interval) {
			continue
		}
		candles, err := b.client(desc).FetchKlines(ctx, parts[0], parts[1], exchange.FetchOptions{
			Limit:    1,
			Interval: interval,
		})
		if err != nil {
			b.logger.Debug().Err(err).Str("exchange", desc.ID).Str("symbol", symbol).
				Msg("wildcard probe failed")
			continue
		}
		if len(candles) > 0 {
			return desc.ID, nil
		}
	}
	return "", types.Validationf("no CEX can fetch the data")
}

// cexFactory serves one base/quote pair on one exchange.
type cexFactory struct {
	client   *exchange.Client
	base     string
	quote    string
	interval types.Interval
}

var _ Factory = (*cexFactory)(nil)

// Check always answers true: construction already validated the exchange,
// interval and symbol.
func (f *cexFactory) Check(context.Context) bool {
	return true
}

func (f *cexFactory) FetchLatest(ctx context.Context) ([]types.Candle, error) {
	return f.client.FetchKlines(ctx, f.base, f.quote, exchange.FetchOptions{Interval: f.interval})
}

func (f *cexFactory) FetchNewest(ctx context.Context) ([]types.Candle, error) {
	return f.client.FetchKlines(ctx, f.base, f.quote, exchange.FetchOptions{
		Limit:    newestWindow,
		Interval: f.interval,
	})
}

func (f *cexFactory) FetchHistory(ctx context.Context, start int64, limit int) ([]types.Candle, error) {
	return f.client.FetchKlines(ctx, f.base, f.quote, exchange.FetchOptions{
		Start:    historyStart(start, f.client.Descriptor().TSMillis),
		Limit:    limit,
		Interval: f.interval,
	})
}

// historyStart rescales a seconds-denominated page bound for exchanges
// that take millisecond start parameters.
func historyStart(start int64, tsMillis bool) int64 {
	if start > 0 && tsMillis {
		return start * 1000
	}
	return start
}
