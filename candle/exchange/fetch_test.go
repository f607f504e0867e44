package exchange

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

func newTestClient(desc Descriptor, rt roundTripFunc) *Client {
	return &Client{
		desc:   desc,
		http:   &http.Client{Transport: rt, Timeout: time.Second},
		logger: zerolog.Nop(),
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

var testDesc = Descriptor{
	ID:            "testex",
	Name:          "TestEx",
	Host:          "api.testex.com",
	Prefix:        "/api/v1",
	KlineURI:      "/klines",
	KlineQuery:    map[string]string{"interval": "1m"},
	SymbolParam:   "symbol",
	StartParam:    "startTime",
	LimitParam:    "limit",
	IntervalParam: "interval",
	Mapper: KlineMapper{
		Timestamp: Index(0),
		Open:      Index(1),
		High:      Index(2),
		Low:       Index(3),
		Close:     Index(4),
		Volume:    Index(5),
	},
	Intervals: map[types.Interval]string{
		types.Interval1m: "1m",
		types.Interval1h: "1h",
	},
	FormatSymbol: func(base, quote string) string { return base + quote },
}

func TestTimeFix(t *testing.T) {
	require.Equal(t, int64(1700000000000), TimeFix(1700000000))
	require.Equal(t, int64(1700000000000), TimeFix(1700000000000))

	// 32-bit boundary: at most 0xFFFFFFFF still counts as seconds.
	require.Equal(t, int64(0xFFFFFFFF)*1000, TimeFix(0xFFFFFFFF))
	require.Equal(t, int64(0x100000000), TimeFix(0x100000000))

	// Idempotent on its own output.
	require.Equal(t, TimeFix(1700000000), TimeFix(TimeFix(1700000000)))
}

func TestFetchKlines_QueryOverlay(t *testing.T) {
	var gotURL string
	client := newTestClient(testDesc, func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return jsonResponse(200, `[[1700000000,"1.0","2.0","0.5","1.5","100"]]`), nil
	})

	candles, err := client.FetchKlines(context.Background(), "BTC", "USDT", FetchOptions{
		Start:    1700000000000,
		Limit:    10,
		Interval: types.Interval1h,
	})
	require.NoError(t, err)
	require.Len(t, candles, 1)

	require.Contains(t, gotURL, "https://api.testex.com/api/v1/klines?")
	require.Contains(t, gotURL, "symbol=BTCUSDT")
	require.Contains(t, gotURL, "limit=10")
	require.Contains(t, gotURL, "startTime=1700000000000")
	require.Contains(t, gotURL, "interval=1h")
}

func TestFetchKlines_BaseQueryWhenOptionsZero(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(testDesc, func(r *http.Request) (*http.Response, error) {
		gotQuery = r.URL.Query()
		return jsonResponse(200, `[]`), nil
	})

	_, err := client.FetchKlines(context.Background(), "BTC", "USDT", FetchOptions{})
	require.NoError(t, err)

	require.Equal(t, []string{"1m"}, gotQuery["interval"])
	require.NotContains(t, gotQuery, "limit")
	require.NotContains(t, gotQuery, "startTime")
}

func TestFetchKlines_UnknownIntervalLeavesBaseQuery(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(testDesc, func(r *http.Request) (*http.Response, error) {
		gotQuery = r.URL.Query()
		return jsonResponse(200, `[]`), nil
	})

	_, err := client.FetchKlines(context.Background(), "BTC", "USDT", FetchOptions{
		Interval: types.Interval1d,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"1m"}, gotQuery["interval"])
}

func TestFetchKlines_Non2xx(t *testing.T) {
	client := newTestClient(testDesc, func(*http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"msg":"rate limited"}`), nil
	})

	_, err := client.FetchKlines(context.Background(), "BTC", "USDT", FetchOptions{})
	require.Error(t, err)

	var lookupErr *types.LookupError
	require.ErrorAs(t, err, &lookupErr)
	require.Equal(t, "TestEx", lookupErr.Source)
	require.Contains(t, err.Error(), "failed to fetch data from TestEx")
}

func TestFetchKlines_TransportError(t *testing.T) {
	client := newTestClient(testDesc, func(*http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})

	_, err := client.FetchKlines(context.Background(), "BTC", "USDT", FetchOptions{})
	var lookupErr *types.LookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestFetchKlines_NestedPath(t *testing.T) {
	desc := testDesc
	desc.KlinePath = "data->list"
	client := newTestClient(desc, func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"data":{"list":[[1700000000,"1","2","0.5","1.5","9"]]}}`), nil
	})

	candles, err := client.FetchKlines(context.Background(), "BTC", "USDT", FetchOptions{})
	require.NoError(t, err)
	require.Len(t, candles, 1)
	require.Equal(t, int64(1700000000000), candles[0].Timestamp)
}

func TestFetchKlines_MissingPath(t *testing.T) {
	desc := testDesc
	desc.KlinePath = "data->list"
	client := newTestClient(desc, func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"data":{}}`), nil
	})

	_, err := client.FetchKlines(context.Background(), "BTC", "USDT", FetchOptions{})
	var lookupErr *types.LookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestMapKline_Positional(t *testing.T) {
	candle, err := mapKline(testDesc.Mapper, []interface{}{
		float64(1700000000), "1.1", "2.2", "0.9", "1.8", "42.5",
	})
	require.NoError(t, err)
	require.Equal(t, types.Candle{
		Timestamp: 1700000000000,
		Open:      1.1,
		High:      2.2,
		Low:       0.9,
		Close:     1.8,
		Volume:    42.5,
	}, candle)
}

func TestMapKline_Keyed(t *testing.T) {
	mapper := KlineMapper{
		Timestamp: Key("t"),
		Open:      Key("o"),
		High:      Key("h"),
		Low:       Key("l"),
		Close:     Key("c"),
		Volume:    Key("v"),
	}
	candle, err := mapKline(mapper, map[string]interface{}{
		"t": "1700000000000",
		"o": float64(1),
		"h": float64(2),
		"l": float64(0.5),
		"c": "1.5",
		"v": "10",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1700000000000), candle.Timestamp)
	require.Equal(t, 1.5, candle.Close)
}

func TestMapKline_UnmappedFieldIsZero(t *testing.T) {
	mapper := testDesc.Mapper
	mapper.Volume = Path{}
	candle, err := mapKline(mapper, []interface{}{
		float64(1700000000), "1", "2", "0.5", "1.5", "ignored",
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, candle.Volume)
}

func TestMapKline_BadTimestamp(t *testing.T) {
	_, err := mapKline(testDesc.Mapper, []interface{}{
		"not-a-number", "1", "2", "0.5", "1.5", "9",
	})
	require.Error(t, err)
}

func TestMapKline_MissingField(t *testing.T) {
	_, err := mapKline(testDesc.Mapper, []interface{}{float64(1700000000), "1"})
	require.Error(t, err)
}
