package gecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/candlepulse/candle-pusher/candle/exchange"
	"github.com/candlepulse/candle-pusher/candle/types"
	"github.com/candlepulse/candle-pusher/telemetry"
)

const (
	// ViewerID names the upstream in lookup errors and metrics.
	ViewerID = "geckoterminal"

	baseURL        = "https://api.geckoterminal.com/api/v2"
	startParam     = "before_timestamp"
	limitParam     = "limit"
	connectRetries = 3
	defaultTimeout = 15 * time.Second
)

// aggregation is the (aggregate, timeframe) pair GeckoTerminal expects for
// a canonical interval.
type aggregation struct {
	Aggregate int
	Timeframe string
}

var intervals = map[types.Interval]aggregation{
	types.Interval1m:       {1, "minute"},
	types.Interval5m:       {5, "minute"},
	types.Interval15m:      {15, "minute"},
	types.Interval1h:       {1, "hour"},
	types.Interval4h:       {4, "hour"},
	types.Interval1d:       {1, "day"},
	types.IntervalSmallest: {1, "minute"},
}

// SupportsInterval reports whether the viewer can serve the interval.
func SupportsInterval(interval types.Interval) bool {
	_, ok := intervals[interval]
	return ok
}

// TokenMeta is the informational token description GeckoTerminal returns
// alongside pool candles.
type TokenMeta struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Viewer fetches OHLCV pages for one pool on one network.
type Viewer struct {
	network string
	pool    string
	agg     aggregation
	url     string
	http    *http.Client
	logger  zerolog.Logger

	// Base and Quote are captured from the last successful response for
	// informational use only.
	Base  TokenMeta
	Quote TokenMeta
}

// NewViewer builds a Viewer. The interval must be in the viewer's table;
// network membership is validated by the factory layer against the startup
// catalog.
func NewViewer(logger zerolog.Logger, network, pool string, interval types.Interval, timeout time.Duration) (*Viewer, error) {
	agg, ok := intervals[interval]
	if !ok {
		return nil, types.Validationf("invalid interval %s", interval)
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Viewer{
		network: network,
		pool:    pool,
		agg:     agg,
		url:     fmt.Sprintf("%s/networks/%s/pools/%s/ohlcv/%s", baseURL, network, pool, agg.Timeframe),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("viewer", ViewerID).Str("pool", pool).Logger(),
	}, nil
}

type viewerResponse struct {
	Error json.RawMessage `json:"error"`
	Meta  struct {
		Base  TokenMeta `json:"base"`
		Quote TokenMeta `json:"quote"`
	} `json:"meta"`
	Data struct {
		Attributes struct {
			OhlcvList [][]json.Number `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
}

// Fetch retrieves an OHLCV page ending at or before start (seconds since
// epoch; zero means the newest page), up to limit records. Connect-level
// failures are retried up to three times; HTTP status and parse failures
// are not.
func (v *Viewer) Fetch(ctx context.Context, start int64, limit int) ([]types.Candle, error) {
	query := url.Values{}
	query.Set("aggregate", strconv.Itoa(v.agg.Aggregate))
	if start > 0 {
		query.Set(startParam, strconv.FormatInt(start, 10))
	}
	if limit > 0 {
		query.Set(limitParam, strconv.Itoa(limit))
	}

	body, err := v.getWithRetry(ctx, query)
	if err != nil {
		telemetry.FetchFailure(ViewerID)
		return nil, &types.LookupError{Source: ViewerID, Err: err}
	}

	var resp viewerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		telemetry.FetchFailure(ViewerID)
		return nil, &types.LookupError{Source: ViewerID, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(resp.Error) > 0 {
		telemetry.FetchFailure(ViewerID)
		return nil, &types.LookupError{Source: ViewerID, Err: fmt.Errorf("upstream error: %s", resp.Error)}
	}

	v.Base = resp.Meta.Base
	v.Quote = resp.Meta.Quote

	rows := resp.Data.Attributes.OhlcvList
	if len(rows) == 0 {
		telemetry.FetchFailure(ViewerID)
		return nil, types.Lookupf(ViewerID, "no data available for pool %s", v.pool)
	}

	candles := make([]types.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			telemetry.FetchFailure(ViewerID)
			return nil, types.Lookupf(ViewerID, "ohlcv row %d has %d fields", i, len(row))
		}
		ts, err := row[0].Int64()
		if err != nil {
			telemetry.FetchFailure(ViewerID)
			return nil, &types.LookupError{Source: ViewerID, Err: fmt.Errorf("ohlcv row %d timestamp: %w", i, err)}
		}
		var vals [5]float64
		for j := 1; j < 6; j++ {
			f, err := row[j].Float64()
			if err != nil {
				telemetry.FetchFailure(ViewerID)
				return nil, &types.LookupError{Source: ViewerID, Err: fmt.Errorf("ohlcv row %d field %d: %w", i, j, err)}
			}
			vals[j-1] = f
		}
		candles = append(candles, types.Candle{
			Timestamp: exchange.TimeFix(ts),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}

	telemetry.FetchSuccess(ViewerID)
	return candles, nil
}

func (v *Viewer) getWithRetry(ctx context.Context, query url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < connectRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = query.Encode()

		resp, err := v.http.Do(req)
		if err != nil {
			// Transport-level failure: the connection never produced a
			// response, so a retry is safe.
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return body, nil
	}
	return nil, fmt.Errorf("connect failed after %d attempts: %w", connectRetries, lastErr)
}
