// Package candle implements the subscription registry and fan-out engine:
// per-tag upstream pollers multiplexing many subscribers onto one stream.
package candle

import (
	"context"

	"github.com/candlepulse/candle-pusher/candle/types"
)

// newestWindow is the page size of a broadcast poll. Three candles give a
// small recent window so a subscriber that missed the prior tick recovers
// it from the next update.
const newestWindow = 3

// Factory is the uniform capability set over one upstream candle source.
type Factory interface {
	// Check probes that the factory can actually serve data. Factories
	// whose construction already validates everything may answer true
	// without a network call.
	Check(ctx context.Context) bool

	// FetchLatest returns a page of recent candles with no bounds, used as
	// the initial snapshot.
	FetchLatest(ctx context.Context) ([]types.Candle, error)

	// FetchNewest returns the newest few candles for the periodic
	// broadcast.
	FetchNewest(ctx context.Context) ([]types.Candle, error)

	// FetchHistory returns a page ending at or before start (seconds since
	// epoch), up to limit records. Zero start or limit leaves the bound to
	// the upstream default.
	FetchHistory(ctx context.Context, start int64, limit int) ([]types.Candle, error)
}

// CexBuilder constructs factories for centralized-exchange tags.
type CexBuilder interface {
	New(exchangeID, symbol string, interval types.Interval) (Factory, error)
}

// DexBuilder constructs factories for decentralized-exchange tags.
type DexBuilder interface {
	New(network, token, pool string, interval types.Interval) (Factory, error)
}

// WildcardResolver is the optional CEX capability behind "cex:*" tags:
// pick the first exchange, in preference order, that returns at least one
// candle for the symbol and interval.
type WildcardResolver interface {
	CheckFirst(ctx context.Context, symbol string, interval types.Interval) (string, error)
}

// Factories binds one builder per stream family. It is assembled once at
// process init and injected into the Manager; it is read-only thereafter.
type Factories struct {
	CEX CexBuilder
	DEX DexBuilder
}
