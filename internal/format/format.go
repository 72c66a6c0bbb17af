package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ethpandaops/syslogexporter/internal/metric"
	"github.com/ethpandaops/syslogexporter/internal/target"
)

// NoData is written in place of a value that has no numeric
// representation: an undefined rate, NaN or infinity.
const NoData = "nan"

// Format renders vl as a single line:
//
//	[prefix.]host.plugin[.plugin_instance].type[.type_instance] v1[ v2...][ tags]
//
// When s.StoreRates is set, rates[i] is written for counter and derive
// slots instead of the raw value. The output depends only on the inputs.
func Format(ds *metric.DataSet, vl *metric.ValueList, s target.Settings, rates []float64) (string, error) {
	if ds.Type != vl.Type {
		return "", fmt.Errorf("%w: data set %q, value list %q", ErrTypeMismatch, ds.Type, vl.Type)
	}

	if len(vl.Values) != len(ds.Sources) {
		return "", fmt.Errorf("%w: %d values, %d data sources",
			ErrValueCount, len(vl.Values), len(ds.Sources))
	}

	line := NewLine(MaxLineLength)

	if err := line.AppendString(Path(vl, s.Prefix, s.EscapeChar)); err != nil {
		return "", err
	}

	for i, src := range ds.Sources {
		v, err := renderValue(src.Kind, vl.Values[i], i, s.StoreRates, rates)
		if err != nil {
			return "", fmt.Errorf("data source %s: %w", src.Name, err)
		}

		if err := line.AppendByte(' '); err != nil {
			return "", err
		}

		if err := line.AppendString(v); err != nil {
			return "", err
		}
	}

	if s.Tags != "" {
		if err := line.AppendByte(' '); err != nil {
			return "", err
		}

		if err := line.AppendString(s.Tags); err != nil {
			return "", err
		}
	}

	return line.String(), nil
}

// Path builds the dotted identifier of vl. Empty instances are skipped.
func Path(vl *metric.ValueList, prefix string, escape rune) string {
	parts := make([]string, 0, 6)

	if prefix != "" {
		parts = append(parts, Escape(prefix, escape))
	}

	parts = append(parts, Escape(vl.Host, escape), Escape(vl.Plugin, escape))

	if vl.PluginInstance != "" {
		parts = append(parts, Escape(vl.PluginInstance, escape))
	}

	parts = append(parts, Escape(vl.Type, escape))

	if vl.TypeInstance != "" {
		parts = append(parts, Escape(vl.TypeInstance, escape))
	}

	return strings.Join(parts, ".")
}

// Escape replaces every character outside [A-Za-z0-9.-] with escape.
func Escape(s string, escape rune) string {
	return strings.Map(func(r rune) rune {
		if allowed(r) {
			return r
		}

		return escape
	}, s)
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '.':
		return true
	default:
		return false
	}
}

func renderValue(kind metric.Kind, v metric.Value, idx int, storeRates bool, rates []float64) (string, error) {
	if storeRates && (kind == metric.KindCounter || kind == metric.KindDerive) {
		if idx >= len(rates) {
			return "", ErrMissingRates
		}

		return formatFloat(rates[idx]), nil
	}

	switch kind {
	case metric.KindCounter:
		return strconv.FormatUint(v.Counter, 10), nil
	case metric.KindAbsolute:
		return strconv.FormatUint(v.Absolute, 10), nil
	case metric.KindDerive:
		return strconv.FormatInt(v.Derive, 10), nil
	case metric.KindGauge:
		return formatFloat(v.Gauge), nil
	default:
		return "", fmt.Errorf("unknown data source kind %s", kind)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NoData
	}

	return strconv.FormatFloat(f, 'g', 15, 64)
}
