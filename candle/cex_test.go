package candle

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/candlepulse/candle-pusher/candle/gecko"
	"github.com/candlepulse/candle-pusher/candle/types"
)

func newCexBuilder() *HTTPCexBuilder {
	return NewHTTPCexBuilder(zerolog.Nop(), time.Second, nil)
}

func TestHTTPCexBuilder_New(t *testing.T) {
	factory, err := newCexBuilder().New("binance", "BTC-USDT", types.Interval1m)
	require.NoError(t, err)
	require.True(t, factory.Check(context.Background()))
}

func TestHTTPCexBuilder_DefaultInterval(t *testing.T) {
	_, err := newCexBuilder().New("binance", "BTC-USDT", "")
	require.NoError(t, err)
}

func TestHTTPCexBuilder_UnknownExchange(t *testing.T) {
	_, err := newCexBuilder().New("hyperliquid", "BTC-USDT", types.Interval1m)
	require.Error(t, err)
	require.IsType(t, &types.ValidationError{}, err)
	require.Contains(t, err.Error(), "invalid CEX exchange")
}

func TestHTTPCexBuilder_UnsupportedInterval(t *testing.T) {
	_, err := newCexBuilder().New("binance", "BTC-USDT", "7m")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid CEX interval")
}

func TestHTTPCexBuilder_SymbolGrammar(t *testing.T) {
	builder := newCexBuilder()

	for _, symbol := range []string{"BTC-USDT", "1INCH-USDT", "BTC-USD"} {
		_, err := builder.New("binance", symbol, types.Interval1m)
		require.NoError(t, err, symbol)
	}
	for _, symbol := range []string{"btc-usdt", "BTCUSDT", "BTC-USDT-PERP", "BTC_USDT", "-USDT", "BTC-"} {
		_, err := builder.New("binance", symbol, types.Interval1m)
		require.Error(t, err, symbol)
	}
}

func TestHTTPCexBuilder_CheckFirstRejectsBadSymbol(t *testing.T) {
	_, err := newCexBuilder().CheckFirst(context.Background(), "btcusdt", types.Interval1m)
	require.Error(t, err)
	require.IsType(t, &types.ValidationError{}, err)
}

func TestHistoryStart(t *testing.T) {
	require.Equal(t, int64(1700000000000), historyStart(1700000000, true))
	require.Equal(t, int64(1700000000), historyStart(1700000000, false))
	require.Equal(t, int64(0), historyStart(0, true))
}

func TestGeckoDexBuilder_New(t *testing.T) {
	catalog := gecko.Catalog{"eth": {ID: "eth", Name: "Ethereum", Slug: "ethereum"}}
	builder := NewGeckoDexBuilder(zerolog.Nop(), catalog, time.Second)

	_, err := builder.New("eth", "0xdead", "0xbeef", types.Interval1m)
	require.NoError(t, err)

	_, err = builder.New("eth", "0xdead", "0xbeef", "")
	require.NoError(t, err)
}

func TestGeckoDexBuilder_UnknownNetwork(t *testing.T) {
	builder := NewGeckoDexBuilder(zerolog.Nop(), gecko.Catalog{}, time.Second)

	_, err := builder.New("notachain", "0xdead", "0xbeef", types.Interval1m)
	require.Error(t, err)
	require.IsType(t, &types.ValidationError{}, err)
	require.Contains(t, err.Error(), "invalid DEX network")
}

func TestGeckoDexBuilder_UnsupportedInterval(t *testing.T) {
	catalog := gecko.Catalog{"eth": {ID: "eth"}}
	builder := NewGeckoDexBuilder(zerolog.Nop(), catalog, time.Second)

	_, err := builder.New("eth", "0xdead", "0xbeef", "30m")
	require.Error(t, err)
	require.IsType(t, &types.ValidationError{}, err)
}
