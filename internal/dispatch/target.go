package dispatch

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/syslogexporter/internal/export"
	"github.com/ethpandaops/syslogexporter/internal/format"
	"github.com/ethpandaops/syslogexporter/internal/metric"
	"github.com/ethpandaops/syslogexporter/internal/sink"
	"github.com/ethpandaops/syslogexporter/internal/target"
)

// Writer receives every sample the host dispatches to a registered target.
type Writer interface {
	Write(ds *metric.DataSet, vl *metric.ValueList) error
}

// RateSource computes per-second rates for a sample.
type RateSource interface {
	Rates(ds *metric.DataSet, vl *metric.ValueList) []float64
}

// Target formats samples with one target's settings and hands the line to
// the sink. It holds no mutable state and is safe for concurrent use.
type Target struct {
	log      logrus.FieldLogger
	settings target.Settings
	name     string
	sink     sink.Sink
	rates    RateSource
	health   *export.HealthMetrics
}

var _ Writer = (*Target)(nil)

// NewTarget binds settings to a sink. rates may be nil when the target
// does not store rates.
func NewTarget(
	log logrus.FieldLogger,
	settings target.Settings,
	s sink.Sink,
	rates RateSource,
	health *export.HealthMetrics,
) *Target {
	name := settings.DispatchName()

	return &Target{
		log:      log.WithField("target", name),
		settings: settings,
		name:     name,
		sink:     s,
		rates:    rates,
		health:   health,
	}
}

// Name returns the dispatch name of the target.
func (t *Target) Name() string { return t.name }

// Settings returns the target's formatting policy.
func (t *Target) Settings() target.Settings { return t.settings }

// Write formats vl and writes exactly one line to the sink. On any error
// nothing is written. Retrying is left to the caller.
func (t *Target) Write(ds *metric.DataSet, vl *metric.ValueList) error {
	if err := t.write(ds, vl); err != nil {
		if t.health != nil {
			t.health.DispatchErrors.WithLabelValues(t.name, ErrorType(err)).Inc()
		}

		t.log.WithError(err).
			WithField("identity", vl.Identity()).
			Debug("Dropped sample")

		return err
	}

	return nil
}

func (t *Target) write(ds *metric.DataSet, vl *metric.ValueList) error {
	if ds.Type != vl.Type {
		return fmt.Errorf("%w: data set %q, value list %q",
			format.ErrTypeMismatch, ds.Type, vl.Type)
	}

	var rates []float64

	if t.settings.StoreRates {
		if t.rates == nil {
			return format.ErrMissingRates
		}

		rates = t.rates.Rates(ds, vl)
	}

	line, err := format.Format(ds, vl, t.settings, rates)
	if err != nil {
		return err
	}

	if err := t.sink.Write(sink.Info, line); err != nil {
		return err
	}

	if t.health != nil {
		t.health.LinesSent.WithLabelValues(t.name).Inc()
		t.health.LineBytes.WithLabelValues(t.name).Observe(float64(len(line)))
	}

	return nil
}

// ErrorType classifies a dispatch error for metrics.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, format.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, format.ErrLineTooLong):
		return "line_too_long"
	case errors.Is(err, format.ErrValueCount):
		return "value_count"
	case errors.Is(err, format.ErrMissingRates):
		return "missing_rates"
	case errors.Is(err, sink.ErrTransport):
		return "transport"
	default:
		return "other"
	}
}
