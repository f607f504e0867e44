package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/candlepulse/candle-pusher/candle/types"
	"github.com/candlepulse/candle-pusher/telemetry"
)

const defaultTimeout = 15 * time.Second

// FetchOptions narrows a kline request. Zero values leave the corresponding
// query parameter unset.
type FetchOptions struct {
	// Start is in the exchange's native timestamp unit; the factory layer
	// rescales seconds-denominated callers before it reaches here.
	Start    int64
	Limit    int
	Interval types.Interval
}

// Client executes kline and catalog requests against a single exchange,
// driven entirely by its descriptor.
type Client struct {
	desc    Descriptor
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient builds a Client for the descriptor. A zero timeout applies the
// package default.
func NewClient(logger zerolog.Logger, desc Descriptor, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	var limiter *rate.Limiter
	if desc.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(desc.RequestsPerSec), 1)
	}
	return &Client{
		desc:    desc,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger.With().Str("exchange", desc.ID).Logger(),
	}
}

// Descriptor returns the descriptor the client was built from.
func (c *Client) Descriptor() Descriptor {
	return c.desc
}

// FetchKlines retrieves candles for the pair. Any transport failure,
// non-2xx status or malformed body is reported as a LookupError carrying
// the exchange name.
func (c *Client) FetchKlines(ctx context.Context, base, quote string, opts FetchOptions) ([]types.Candle, error) {
	query := url.Values{}
	for k, v := range c.desc.KlineQuery {
		query.Set(k, v)
	}
	query.Set(c.desc.SymbolParam, c.desc.Symbol(base, quote))
	if opts.Limit > 0 && c.desc.LimitParam != "" {
		query.Set(c.desc.LimitParam, strconv.Itoa(opts.Limit))
	}
	if opts.Start > 0 && c.desc.StartParam != "" {
		query.Set(c.desc.StartParam, strconv.FormatInt(opts.Start, 10))
	}
	if opts.Interval != "" && c.desc.IntervalParam != "" {
		if native, ok := c.desc.Intervals[opts.Interval]; ok {
			query.Set(c.desc.IntervalParam, native)
		}
	}

	body, err := c.get(ctx, c.desc.KlineURL(), query)
	if err != nil {
		telemetry.FetchFailure(c.desc.ID)
		return nil, &types.LookupError{Source: c.desc.Name, Err: err}
	}

	records, err := walkToList(body, c.desc.KlinePath)
	if err != nil {
		telemetry.FetchFailure(c.desc.ID)
		return nil, &types.LookupError{Source: c.desc.Name, Err: err}
	}

	candles := make([]types.Candle, 0, len(records))
	for i, rec := range records {
		candle, err := mapKline(c.desc.Mapper, rec)
		if err != nil {
			telemetry.FetchFailure(c.desc.ID)
			return nil, &types.LookupError{Source: c.desc.Name, Err: fmt.Errorf("record %d: %w", i, err)}
		}
		candles = append(candles, candle)
	}

	telemetry.FetchSuccess(c.desc.ID)
	return candles, nil
}

func (c *Client) get(ctx context.Context, rawURL string, query url.Values) (interface{}, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = query.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body, nil
}

// walkToList descends the "->"-separated path into the decoded body and
// returns the candle list found there.
func walkToList(body interface{}, path string) ([]interface{}, error) {
	node := body
	for _, seg := range splitPath(path) {
		obj, ok := node.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("path segment %q: not an object", seg)
		}
		node, ok = obj[seg]
		if !ok {
			return nil, fmt.Errorf("path segment %q: missing", seg)
		}
	}
	list, ok := node.([]interface{})
	if !ok {
		return nil, fmt.Errorf("kline list: unexpected shape %T", node)
	}
	return list, nil
}

// mapKline reads one raw record through the mapper. Non-timestamp fields
// coerce to floating point with missing paths yielding 0.0; the timestamp
// coerces to an integer and is normalized by TimeFix.
func mapKline(m KlineMapper, rec interface{}) (types.Candle, error) {
	ts, err := intAt(m.Timestamp, rec)
	if err != nil {
		return types.Candle{}, fmt.Errorf("timestamp: %w", err)
	}

	candle := types.Candle{Timestamp: TimeFix(ts)}
	for _, f := range []struct {
		name string
		path Path
		dst  *float64
	}{
		{"open", m.Open, &candle.Open},
		{"high", m.High, &candle.High},
		{"low", m.Low, &candle.Low},
		{"close", m.Close, &candle.Close},
		{"volume", m.Volume, &candle.Volume},
	} {
		v, err := floatAt(f.path, rec)
		if err != nil {
			return types.Candle{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return candle, nil
}

// TimeFix normalizes an exchange timestamp to epoch milliseconds: values
// that fit in 32 bits are taken as seconds and scaled, anything larger
// passes through. Running it on its own output is a no-op.
func TimeFix(ts int64) int64 {
	if ts <= 0xFFFFFFFF {
		return ts * 1000
	}
	return ts
}

func resolve(p Path, rec interface{}) (interface{}, bool) {
	switch p.kind {
	case pathIndex:
		arr, ok := rec.([]interface{})
		if !ok || p.index < 0 || p.index >= len(arr) {
			return nil, false
		}
		return arr[p.index], true
	case pathKey:
		obj, ok := rec.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := obj[p.key]
		return v, ok
	default:
		return nil, false
	}
}

func floatAt(p Path, rec interface{}) (float64, error) {
	if p.kind == pathNone {
		return 0.0, nil
	}
	v, ok := resolve(p, rec)
	if !ok {
		return 0, fmt.Errorf("field not present in record")
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("cannot coerce %T to float", v)
	}
}

func intAt(p Path, rec interface{}) (int64, error) {
	v, ok := resolve(p, rec)
	if !ok {
		return 0, fmt.Errorf("field not present in record")
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("cannot coerce %T to int", v)
	}
}
