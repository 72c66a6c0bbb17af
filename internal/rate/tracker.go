package rate

import (
	"math"
	"sync"

	"github.com/ethpandaops/syslogexporter/internal/metric"
)

// Tracker turns successive value lists into per-second rates. The store is
// read and updated under one lock per value list, so concurrent callers
// always see a consistent previous observation.
//
// A rate is NaN when it cannot be computed: the first observation of an
// identity, an observation older than the stored one, or a counter that
// went backwards (wrapped or reset).
type Tracker struct {
	mu    sync.Mutex
	store Store
}

// NewTracker creates a Tracker backed by store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Rates returns one entry per data source. Counter and derive slots hold
// a rate, gauge and absolute slots hold the raw value. Repeated calls with
// the same value list return the same rates, so every target that formats
// a sample sees identical numbers. Nil is returned when the value count
// does not match the data set.
func (t *Tracker) Rates(ds *metric.DataSet, vl *metric.ValueList) []float64 {
	if len(vl.Values) != len(ds.Sources) {
		return nil
	}

	key := vl.Identity()

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.store.Get(key)

	switch {
	case ok && vl.Time.Equal(prev.Time) && len(prev.Rates) == len(ds.Sources):
		return append([]float64(nil), prev.Rates...)
	case ok && vl.Time.Before(prev.Time):
		return undefined(ds, vl)
	}

	rates := make([]float64, len(ds.Sources))

	for i, src := range ds.Sources {
		cur := vl.Values[i]

		if !ok || len(prev.Values) != len(vl.Values) {
			rates[i] = firstRate(src.Kind, cur)

			continue
		}

		rates[i] = compute(src.Kind, prev.Values[i], cur, vl.Time.Sub(prev.Time).Seconds())
	}

	t.store.Set(key, Observation{
		Time:   vl.Time,
		Values: append([]metric.Value(nil), vl.Values...),
		Rates:  rates,
	})

	return append([]float64(nil), rates...)
}

func compute(kind metric.Kind, prev, cur metric.Value, elapsed float64) float64 {
	switch kind {
	case metric.KindCounter:
		if elapsed <= 0 || cur.Counter < prev.Counter {
			return math.NaN()
		}

		return float64(cur.Counter-prev.Counter) / elapsed
	case metric.KindDerive:
		if elapsed <= 0 {
			return math.NaN()
		}

		// Subtract as floats so extreme jumps cannot wrap around.
		return (float64(cur.Derive) - float64(prev.Derive)) / elapsed
	default:
		return cur.Float(kind)
	}
}

func firstRate(kind metric.Kind, cur metric.Value) float64 {
	if kind == metric.KindCounter || kind == metric.KindDerive {
		return math.NaN()
	}

	return cur.Float(kind)
}

func undefined(ds *metric.DataSet, vl *metric.ValueList) []float64 {
	rates := make([]float64, len(ds.Sources))
	for i, src := range ds.Sources {
		rates[i] = firstRate(src.Kind, vl.Values[i])
	}

	return rates
}
