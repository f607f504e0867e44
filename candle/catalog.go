package candle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/candlepulse/candle-pusher/candle/exchange"
	"github.com/candlepulse/candle-pusher/candle/types"
	"github.com/candlepulse/candle-pusher/pkg/cache"
)

// SymbolCatalog serves the tradable symbol list per exchange, with an
// optional redis cache in front of the info endpoints.
type SymbolCatalog struct {
	logger  zerolog.Logger
	timeout time.Duration
	hosts   map[string]string
	cache   *cache.Cache
}

// NewSymbolCatalog builds a catalog. A nil cache disables caching.
func NewSymbolCatalog(logger zerolog.Logger, timeout time.Duration, hosts map[string]string, c *cache.Cache) *SymbolCatalog {
	return &SymbolCatalog{
		logger:  logger.With().Str("module", "catalog").Logger(),
		timeout: timeout,
		hosts:   hosts,
		cache:   c,
	}
}

// Symbols returns the exchange's tradable BASE-QUOTE symbols, served from
// cache when fresh.
func (sc *SymbolCatalog) Symbols(ctx context.Context, exchangeID string) ([]string, error) {
	desc, ok := exchange.Lookup(exchangeID)
	if !ok {
		return nil, types.Validationf("invalid CEX exchange %s", exchangeID)
	}
	if desc.InfoURI == "" {
		return nil, types.Validationf("exchange %s has no symbol listing", exchangeID)
	}

	key := "symbols:" + desc.ID
	if sc.cache != nil {
		var symbols []string
		err := sc.cache.GetJSON(ctx, key, &symbols)
		if err == nil {
			return symbols, nil
		}
		if err != cache.ErrMiss {
			sc.logger.Warn().Err(err).Str("exchange", desc.ID).Msg("cache read failed")
		}
	}

	if host, ok := sc.hosts[desc.ID]; ok {
		desc.Host = host
	}
	symbols, err := exchange.NewClient(sc.logger, desc, sc.timeout).FetchSymbols(ctx)
	if err != nil {
		return nil, err
	}

	if sc.cache != nil {
		if err := sc.cache.SetJSON(ctx, key, symbols, 0); err != nil {
			sc.logger.Warn().Err(err).Str("exchange", desc.ID).Msg("cache write failed")
		}
	}
	return symbols, nil
}
