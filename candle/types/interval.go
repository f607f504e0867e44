package types

// Interval identifies a canonical candle aggregation period. IntervalSmallest
// resolves to the finest period the venue offers, which is one minute on
// every supported upstream.
type Interval string

const (
	Interval1m       Interval = "1m"
	Interval5m       Interval = "5m"
	Interval15m      Interval = "15m"
	Interval30m      Interval = "30m"
	Interval1h       Interval = "1h"
	Interval4h       Interval = "4h"
	Interval1d       Interval = "1d"
	IntervalSmallest Interval = "smallest"
)

// String casts the Interval to a string.
func (i Interval) String() string {
	return string(i)
}

// Canonical reports whether i belongs to the canonical interval set.
func (i Interval) Canonical() bool {
	switch i {
	case Interval1m, Interval5m, Interval15m, Interval30m,
		Interval1h, Interval4h, Interval1d, IntervalSmallest:
		return true
	}
	return false
}
