package types

// Candle is a fixed-interval OHLCV summary keyed by the interval's start
// timestamp in UTC epoch milliseconds. Candles are transported as the
// upstream returns them; the server does not police upstream data.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}
