package exchange

import (
	"strings"

	"github.com/candlepulse/candle-pusher/candle/types"
)

// Path addresses one field inside a raw kline record, either by position in
// an array record or by key in an object record. The zero value means the
// exchange does not report the field; mapping it yields 0.0.
type Path struct {
	kind  pathKind
	index int
	key   string
}

type pathKind int

const (
	pathNone pathKind = iota
	pathIndex
	pathKey
)

// Index returns a Path addressing a positional array field.
func Index(i int) Path {
	return Path{kind: pathIndex, index: i}
}

// Key returns a Path addressing a keyed object field.
func Key(k string) Path {
	return Path{kind: pathKey, key: k}
}

// KlineMapper maps a raw kline record onto the canonical candle fields.
// Turnover is collected by several venues but dropped from the wire format,
// so it has no slot here.
type KlineMapper struct {
	Timestamp Path
	Open      Path
	High      Path
	Low       Path
	Close     Path
	Volume    Path
}

// Descriptor declaratively describes one centralized exchange: endpoint
// shape, query parameter names, the JSON path to the candle list, the
// record-to-candle mapping and the symbol catalog rules. A single fetch
// engine consumes the descriptor; the variant set is closed and enumerable
// at startup.
type Descriptor struct {
	ID    string
	Name  string
	Order int

	Host   string
	Prefix string

	// Symbol catalog endpoint.
	InfoURI    string
	InfoPath   string
	InfoQuery  map[string]string
	BaseField  string
	QuoteField string

	// Kline endpoint.
	KlineURI      string
	KlinePath     string
	KlineQuery    map[string]string
	SymbolParam   string
	StartParam    string
	LimitParam    string
	IntervalParam string
	Mapper        KlineMapper

	// Intervals maps the canonical interval set onto exchange-native
	// strings. Absence means the exchange cannot serve the interval.
	Intervals map[types.Interval]string

	// TSMillis records whether the exchange reports millisecond
	// timestamps. It governs history start rescaling at the factory
	// boundary only; record timestamps are normalized by TimeFix.
	TSMillis bool

	// RequestsPerSec bounds the polling rate against the exchange.
	// Zero means unlimited.
	RequestsPerSec float64

	// FormatSymbol renders a base/quote pair in the exchange's native
	// symbol syntax. Nil falls back to "BASE-QUOTE".
	FormatSymbol func(base, quote string) string

	// EligibleSymbol is the symbol-eligibility predicate applied to raw
	// catalog records. Nil admits everything.
	EligibleSymbol func(record map[string]interface{}) bool
}

// Symbol renders the pair for this exchange.
func (d Descriptor) Symbol(base, quote string) string {
	if d.FormatSymbol != nil {
		return d.FormatSymbol(base, quote)
	}
	return base + "-" + quote
}

// KlineURL is the absolute kline endpoint URL.
func (d Descriptor) KlineURL() string {
	return "https://" + d.Host + d.Prefix + d.KlineURI
}

// InfoURL is the absolute symbol catalog endpoint URL.
func (d Descriptor) InfoURL() string {
	return "https://" + d.Host + d.Prefix + d.InfoURI
}

// SupportsInterval reports whether the exchange has a native string for the
// canonical interval.
func (d Descriptor) SupportsInterval(interval types.Interval) bool {
	_, ok := d.Intervals[interval]
	return ok
}

// splitPath breaks a "->"-separated JSON path into its segments, dropping
// empty ones so that both "data->ohlcv_list" and "" are accepted.
func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "->") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
