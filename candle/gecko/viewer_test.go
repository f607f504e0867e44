package gecko

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/candlepulse/candle-pusher/candle/types"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestViewer(t *testing.T, interval types.Interval, rt roundTripFunc) *Viewer {
	t.Helper()
	v, err := NewViewer(zerolog.Nop(), "eth", "0xpool", interval, time.Second)
	require.NoError(t, err)
	v.http = &http.Client{Transport: rt, Timeout: time.Second}
	return v
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

const sampleBody = `{
	"meta": {
		"base": {"address": "0xaaa", "name": "Wrapped Ether", "symbol": "WETH"},
		"quote": {"address": "0xbbb", "name": "USD Coin", "symbol": "USDC"}
	},
	"data": {"attributes": {"ohlcv_list": [
		[1700000060, 1.0, 2.0, 0.5, 1.5, 1000.0],
		[1700000000, 0.9, 1.1, 0.8, 1.0, 500.0]
	]}}
}`

func TestNewViewer_InvalidInterval(t *testing.T) {
	_, err := NewViewer(zerolog.Nop(), "eth", "0xpool", "7m", time.Second)
	require.Error(t, err)
	require.IsType(t, &types.ValidationError{}, err)
}

func TestViewer_URLAndParams(t *testing.T) {
	var gotURL string
	v := newTestViewer(t, types.Interval5m, func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return jsonResponse(200, sampleBody), nil
	})

	_, err := v.Fetch(context.Background(), 1700000000, 100)
	require.NoError(t, err)

	require.Contains(t, gotURL, "/networks/eth/pools/0xpool/ohlcv/minute?")
	require.Contains(t, gotURL, "aggregate=5")
	require.Contains(t, gotURL, "before_timestamp=1700000000")
	require.Contains(t, gotURL, "limit=100")
}

func TestViewer_SmallestInterval(t *testing.T) {
	var gotURL string
	v := newTestViewer(t, types.IntervalSmallest, func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return jsonResponse(200, sampleBody), nil
	})

	_, err := v.Fetch(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Contains(t, gotURL, "/ohlcv/minute?")
	require.Contains(t, gotURL, "aggregate=1")
	require.NotContains(t, gotURL, "before_timestamp")
	require.NotContains(t, gotURL, "limit=")
}

func TestViewer_MapsCandlesAndMeta(t *testing.T) {
	v := newTestViewer(t, types.Interval1m, func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, sampleBody), nil
	})

	candles, err := v.Fetch(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	require.Equal(t, types.Candle{
		Timestamp: 1700000060000,
		Open:      1.0,
		High:      2.0,
		Low:       0.5,
		Close:     1.5,
		Volume:    1000.0,
	}, candles[0])

	require.Equal(t, "WETH", v.Base.Symbol)
	require.Equal(t, "USDC", v.Quote.Symbol)
}

func TestViewer_EmptyListIsLookupError(t *testing.T) {
	v := newTestViewer(t, types.Interval1m, func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"data":{"attributes":{"ohlcv_list":[]}}}`), nil
	})

	_, err := v.Fetch(context.Background(), 0, 0)
	var lookupErr *types.LookupError
	require.ErrorAs(t, err, &lookupErr)
	require.Equal(t, ViewerID, lookupErr.Source)
}

func TestViewer_UpstreamErrorField(t *testing.T) {
	v := newTestViewer(t, types.Interval1m, func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"error":"pool not found"}`), nil
	})

	_, err := v.Fetch(context.Background(), 0, 0)
	var lookupErr *types.LookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestViewer_ConnectRetries(t *testing.T) {
	attempts := 0
	v := newTestViewer(t, types.Interval1m, func(*http.Request) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("connect timeout")
		}
		return jsonResponse(200, sampleBody), nil
	})

	candles, err := v.Fetch(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	require.Equal(t, 3, attempts)
}

func TestViewer_ConnectRetriesExhausted(t *testing.T) {
	attempts := 0
	v := newTestViewer(t, types.Interval1m, func(*http.Request) (*http.Response, error) {
		attempts++
		return nil, fmt.Errorf("connect timeout")
	})

	_, err := v.Fetch(context.Background(), 0, 0)
	var lookupErr *types.LookupError
	require.ErrorAs(t, err, &lookupErr)
	require.Equal(t, 3, attempts)
}

func TestViewer_HTTPStatusNotRetried(t *testing.T) {
	attempts := 0
	v := newTestViewer(t, types.Interval1m, func(*http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(500, `{}`), nil
	})

	_, err := v.Fetch(context.Background(), 0, 0)
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte(`[
		{"id": "eth", "attributes": {"name": "Ethereum", "coingecko_asset_platform_id": "ethereum"}},
		{"id": "bsc", "attributes": {"name": "BNB Chain", "coingecko_asset_platform_id": "binance-smart-chain"}}
	]`))
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	require.Equal(t, "Ethereum", catalog["eth"].Name)
	require.Equal(t, "binance-smart-chain", catalog["bsc"].Slug)

	_, ok := catalog["solana"]
	require.False(t, ok)
}

func TestParseCatalog_Malformed(t *testing.T) {
	_, err := ParseCatalog([]byte(`{"not":"a list"}`))
	require.Error(t, err)
}
