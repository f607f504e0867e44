package candle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/candlepulse/candle-pusher/candle/gecko"
	"github.com/candlepulse/candle-pusher/candle/types"
)

// GeckoDexBuilder builds DEX factories backed by the GeckoTerminal pool
// OHLCV API, constrained to the networks present in the startup catalog.
type GeckoDexBuilder struct {
	logger  zerolog.Logger
	catalog gecko.Catalog
	timeout time.Duration
}

var _ DexBuilder = (*GeckoDexBuilder)(nil)

func NewGeckoDexBuilder(logger zerolog.Logger, catalog gecko.Catalog, timeout time.Duration) *GeckoDexBuilder {
	return &GeckoDexBuilder{
		logger:  logger.With().Str("module", "dex").Logger(),
		catalog: catalog,
		timeout: timeout,
	}
}

func (b *GeckoDexBuilder) New(network, token, pool string, interval types.Interval) (Factory, error) {
	if _, ok := b.catalog[network]; !ok {
		return nil, types.Validationf("invalid DEX network %s", network)
	}
	if interval == "" {
		interval = types.IntervalSmallest
	}
	viewer, err := gecko.NewViewer(b.logger, network, pool, interval, b.timeout)
	if err != nil {
		return nil, err
	}
	return &dexFactory{viewer: viewer, token: token}, nil
}

// dexFactory serves one pool on one network. The token address is carried
// for catalog reporting only; the pool address drives the queries.
type dexFactory struct {
	viewer *gecko.Viewer
	token  string
}

var _ Factory = (*dexFactory)(nil)

// Check probes the upstream with a single-row fetch so that broken pools
// are rejected before a stream is created for them.
func (f *dexFactory) Check(ctx context.Context) bool {
	_, err := f.viewer.Fetch(ctx, 0, 1)
	return err == nil
}

func (f *dexFactory) FetchLatest(ctx context.Context) ([]types.Candle, error) {
	return f.viewer.Fetch(ctx, 0, 0)
}

func (f *dexFactory) FetchNewest(ctx context.Context) ([]types.Candle, error) {
	return f.viewer.Fetch(ctx, 0, newestWindow)
}

func (f *dexFactory) FetchHistory(ctx context.Context, start int64, limit int) ([]types.Candle, error) {
	return f.viewer.Fetch(ctx, start, limit)
}

// Info reports the pool's token pair as captured during viewer setup.
func (f *dexFactory) Info() (base, quote gecko.TokenMeta) {
	return f.viewer.Base, f.viewer.Quote
}
