package exchange

import (
	"sort"
	"strings"

	"github.com/candlepulse/candle-pusher/candle/types"
)

// Registered exchange ids.
const (
	ExchangeBinance = "binance"
	ExchangeOkx     = "okx"
	ExchangeKuCoin  = "kucoin"
	ExchangeBitget  = "bitget"
	ExchangeMexc    = "mexc"
	ExchangeGateio  = "gate.io"
)

// identityIntervals is the vocabulary shared by venues whose native interval
// strings match the canonical set.
func identityIntervals() map[types.Interval]string {
	return map[types.Interval]string{
		types.Interval1m:       "1m",
		types.Interval5m:       "5m",
		types.Interval15m:      "15m",
		types.Interval30m:      "30m",
		types.Interval1h:       "1h",
		types.Interval4h:       "4h",
		types.Interval1d:       "1d",
		types.IntervalSmallest: "1m",
	}
}

func concatSymbol(base, quote string) string {
	return base + quote
}

var binance = Descriptor{
	ID:     ExchangeBinance,
	Name:   "Binance",
	Order:  0,
	Host:   "api.binance.com",
	Prefix: "/api/v3",

	InfoURI:    "/exchangeInfo",
	InfoPath:   "symbols",
	BaseField:  "baseAsset",
	QuoteField: "quoteAsset",

	KlineURI:      "/klines",
	KlineQuery:    map[string]string{"interval": "1m"},
	SymbolParam:   "symbol",
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
	Intervals:      identityIntervals(),
	TSMillis:       true,
	RequestsPerSec: 2,

	FormatSymbol: concatSymbol,
	EligibleSymbol: func(rec map[string]interface{}) bool {
		base, _ := rec["baseAsset"].(string)
		if strings.HasSuffix(base, "UP") || strings.HasSuffix(base, "DOWN") {
			return false
		}
		status, _ := rec["status"].(string)
		spot, _ := rec["isSpotTradingAllowed"].(bool)
		return status == "TRADING" && spot
	},
}

var okx = Descriptor{
	ID:     ExchangeOkx,
	Name:   "Okx",
	Order:  1,
	Host:   "www.okx.com",
	Prefix: "/api/v5",

	InfoURI:    "/public/instruments",
	InfoPath:   "data",
	InfoQuery:  map[string]string{"instType": "SPOT"},
	BaseField:  "baseCcy",
	QuoteField: "quoteCcy",

	KlineURI:      "/market/index-candles",
	KlinePath:     "data",
	KlineQuery:    map[string]string{},
	SymbolParam:   "instId",
	LimitParam:    "limit",
	IntervalParam: "bar",
	Mapper: KlineMapper{
		Timestamp: Index(0),
		Open:      Index(1),
		High:      Index(2),
		Low:       Index(3),
		Close:     Index(4),
	},
	Intervals: map[types.Interval]string{
		types.Interval1m:       "1m",
		types.Interval5m:       "5m",
		types.Interval15m:      "15m",
		types.Interval30m:      "30m",
		types.Interval1h:       "1H",
		types.Interval4h:       "4H",
		types.Interval1d:       "1D",
		types.IntervalSmallest: "1m",
	},
	TSMillis:       true,
	RequestsPerSec: 5,

	EligibleSymbol: func(rec map[string]interface{}) bool {
		state, _ := rec["state"].(string)
		return state == "live"
	},
}

var kucoin = Descriptor{
	ID:    ExchangeKuCoin,
	Name:  "KuCoin",
	Order: 2,
	Host:  "api.kucoin.com",

	InfoURI:    "/api/v2/symbols",
	InfoPath:   "data",
	BaseField:  "baseCurrency",
	QuoteField: "quoteCurrency",

	KlineURI:      "/api/v1/market/candles",
	KlinePath:     "data",
	KlineQuery:    map[string]string{"type": "1min"},
	SymbolParam:   "symbol",
	StartParam:    "startAt",
	IntervalParam: "type",
	Mapper: KlineMapper{
		Timestamp: Index(0),
		Open:      Index(1),
		High:      Index(2),
		Low:       Index(3),
		Close:     Index(4),
		Volume:    Index(5),
	},
	Intervals: map[types.Interval]string{
		types.Interval1m:       "1min",
		types.Interval5m:       "5min",
		types.Interval15m:      "15min",
		types.Interval30m:      "30min",
		types.Interval1h:       "1hour",
		types.Interval4h:       "4hour",
		types.Interval1d:       "1day",
		types.IntervalSmallest: "1min",
	},
	RequestsPerSec: 5,

	EligibleSymbol: func(rec map[string]interface{}) bool {
		base, _ := rec["baseCurrency"].(string)
		if strings.HasSuffix(base, "UP") || strings.HasSuffix(base, "DOWN") {
			return false
		}
		enabled, _ := rec["enableTrading"].(bool)
		return enabled
	},
}

var bitget = Descriptor{
	ID:     ExchangeBitget,
	Name:   "Bitget",
	Order:  3,
	Host:   "api.bitget.com",
	Prefix: "/api/v2",

	InfoURI:    "/spot/public/symbols",
	InfoPath:   "data",
	BaseField:  "baseCoin",
	QuoteField: "quoteCoin",

	KlineURI:      "/spot/market/candles",
	KlinePath:     "data",
	KlineQuery:    map[string]string{"granularity": "1min"},
	SymbolParam:   "symbol",
	LimitParam:    "limit",
	IntervalParam: "granularity",
	Mapper: KlineMapper{
		Timestamp: Index(0),
		Open:      Index(1),
		High:      Index(2),
		Low:       Index(3),
		Close:     Index(4),
		Volume:    Index(5),
	},
	Intervals: map[types.Interval]string{
		types.Interval1m:       "1min",
		types.Interval5m:       "5min",
		types.Interval15m:      "15min",
		types.Interval30m:      "30min",
		types.Interval1h:       "1h",
		types.Interval4h:       "4h",
		types.Interval1d:       "1day",
		types.IntervalSmallest: "1min",
	},
	RequestsPerSec: 5,

	FormatSymbol: concatSymbol,
	EligibleSymbol: func(rec map[string]interface{}) bool {
		status, _ := rec["status"].(string)
		return status == "online"
	},
}

var mexc = Descriptor{
	ID:     ExchangeMexc,
	Name:   "MEXC",
	Order:  4,
	Host:   "api.mexc.com",
	Prefix: "/api/v3",

	InfoURI:    "/exchangeInfo",
	InfoPath:   "symbols",
	BaseField:  "baseAsset",
	QuoteField: "quoteAsset",

	KlineURI:      "/klines",
	KlineQuery:    map[string]string{"interval": "1m"},
	SymbolParam:   "symbol",
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
	Intervals:      identityIntervals(),
	TSMillis:       true,
	RequestsPerSec: 5,

	FormatSymbol: concatSymbol,
	EligibleSymbol: func(rec map[string]interface{}) bool {
		spot, _ := rec["isSpotTradingAllowed"].(bool)
		return spot
	},
}

var gateio = Descriptor{
	ID:     ExchangeGateio,
	Name:   "Gate.io",
	Order:  5,
	Host:   "api.gateio.ws",
	Prefix: "/api/v4",

	InfoURI:    "/spot/currency_pairs",
	BaseField:  "base",
	QuoteField: "quote",

	KlineURI:      "/spot/candlesticks",
	KlineQuery:    map[string]string{"interval": "1m"},
	SymbolParam:   "currency_pair",
	LimitParam:    "limit",
	IntervalParam: "interval",
	// Gate.io candlesticks are [ts, volume, close, high, low, open, turnover].
	Mapper: KlineMapper{
		Timestamp: Index(0),
		Volume:    Index(1),
		Close:     Index(2),
		High:      Index(3),
		Low:       Index(4),
		Open:      Index(5),
	},
	Intervals:      identityIntervals(),
	RequestsPerSec: 5,

	FormatSymbol: func(base, quote string) string {
		return base + "_" + quote
	},
	EligibleSymbol: func(rec map[string]interface{}) bool {
		status, _ := rec["trade_status"].(string)
		return strings.HasPrefix(status, "tra")
	},
}

var descriptors = map[string]Descriptor{
	ExchangeBinance: binance,
	ExchangeOkx:     okx,
	ExchangeKuCoin:  kucoin,
	ExchangeBitget:  bitget,
	ExchangeMexc:    mexc,
	ExchangeGateio:  gateio,
}

// Lookup returns the descriptor registered under id.
func Lookup(id string) (Descriptor, bool) {
	d, ok := descriptors[id]
	return d, ok
}

// All returns every registered descriptor keyed by id.
func All() map[string]Descriptor {
	out := make(map[string]Descriptor, len(descriptors))
	for id, d := range descriptors {
		out[id] = d
	}
	return out
}

// ByOrder returns the descriptors sorted by ascending preference order.
func ByOrder() []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
