package metric

import (
	"fmt"
	"strings"
)

// Kind identifies how a data source slot is sampled.
type Kind uint8

const (
	KindCounter  Kind = 0
	KindGauge    Kind = 1
	KindDerive   Kind = 2
	KindAbsolute Kind = 3
)

// String returns the lowercase collectd name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindDerive:
		return "derive"
	case KindAbsolute:
		return "absolute"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses a data source kind, ignoring case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "counter":
		return KindCounter, nil
	case "gauge":
		return KindGauge, nil
	case "derive":
		return KindDerive, nil
	case "absolute":
		return KindAbsolute, nil
	default:
		return 0, fmt.Errorf("unknown data source kind %q", s)
	}
}

// Value holds one observed slot value. Which field is meaningful is
// decided by the Kind of the matching DataSource.
type Value struct {
	Counter  uint64
	Gauge    float64
	Derive   int64
	Absolute uint64
}

// CounterValue returns a Value carrying a counter reading.
func CounterValue(v uint64) Value { return Value{Counter: v} }

// GaugeValue returns a Value carrying a gauge reading.
func GaugeValue(v float64) Value { return Value{Gauge: v} }

// DeriveValue returns a Value carrying a derive reading.
func DeriveValue(v int64) Value { return Value{Derive: v} }

// AbsoluteValue returns a Value carrying an absolute reading.
func AbsoluteValue(v uint64) Value { return Value{Absolute: v} }

// Float returns the value of the given kind as a float64.
func (v Value) Float(k Kind) float64 {
	switch k {
	case KindCounter:
		return float64(v.Counter)
	case KindDerive:
		return float64(v.Derive)
	case KindAbsolute:
		return float64(v.Absolute)
	default:
		return v.Gauge
	}
}
