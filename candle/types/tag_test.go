package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagFor_Explicit(t *testing.T) {
	tag, err := RequestData{Tag: "cex:binance:BTC-USDT:1m"}.TagFor()
	require.NoError(t, err)
	require.Equal(t, "cex:binance:BTC-USDT:1m", tag)
}

func TestTagFor_ExplicitWithoutColon(t *testing.T) {
	_, err := RequestData{Tag: "garbage"}.TagFor()
	require.Error(t, err)
	require.IsType(t, &ValidationError{}, err)
}

func TestTagFor_SynthesizeCex(t *testing.T) {
	tag, err := RequestData{
		Exchange: "binance",
		Symbol:   "BTC-USDT",
		Interval: "1h",
	}.TagFor()
	require.NoError(t, err)
	require.Equal(t, "cex:binance:BTC-USDT:1h", tag)
}

func TestTagFor_SynthesizeCexDefaultInterval(t *testing.T) {
	tag, err := RequestData{Exchange: "okx", Symbol: "ETH-USDT"}.TagFor()
	require.NoError(t, err)
	require.Equal(t, "cex:okx:ETH-USDT:smallest", tag)
}

func TestTagFor_SynthesizeDex(t *testing.T) {
	tag, err := RequestData{
		Chain:    "eth",
		Address:  "0xdead",
		Pool:     "0xbeef",
		Interval: "5m",
	}.TagFor()
	require.NoError(t, err)
	require.Equal(t, "dex:eth:0xdead:0xbeef:5m", tag)
}

func TestTagFor_SynthesizeDexDefaults(t *testing.T) {
	tag, err := RequestData{Chain: "eth", Address: "0xdead"}.TagFor()
	require.NoError(t, err)
	require.Equal(t, "dex:eth:0xdead:all:smallest", tag)
}

func TestTagFor_SymbolWinsOverChain(t *testing.T) {
	tag, err := RequestData{
		Exchange: "binance",
		Symbol:   "BTC-USDT",
		Chain:    "eth",
		Address:  "0xdead",
	}.TagFor()
	require.NoError(t, err)
	require.Equal(t, "cex:binance:BTC-USDT:smallest", tag)
}

func TestTagFor_Empty(t *testing.T) {
	_, err := RequestData{}.TagFor()
	require.Error(t, err)
	require.IsType(t, &ValidationError{}, err)
}
