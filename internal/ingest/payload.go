package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ethpandaops/syslogexporter/internal/metric"
)

// valueListJSON is one element of the collectd write_http JSON format.
type valueListJSON struct {
	Values         []json.Number `json:"values"`
	DSTypes        []string      `json:"dstypes"`
	DSNames        []string      `json:"dsnames"`
	Time           float64       `json:"time"`
	Interval       float64       `json:"interval"`
	Host           string        `json:"host"`
	Plugin         string        `json:"plugin"`
	PluginInstance string        `json:"plugin_instance"`
	Type           string        `json:"type"`
	TypeInstance   string        `json:"type_instance"`
}

// Sample is a decoded value list with the data set it is checked against.
type Sample struct {
	DataSet   metric.DataSet
	ValueList metric.ValueList
}

// Decode parses a write_http JSON array. The data set of each value list
// comes from types when it knows the type, otherwise from the sender's
// dsnames and dstypes.
func Decode(body []byte, types metric.TypesDB) ([]Sample, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw []valueListJSON
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding value lists: %w", err)
	}

	samples := make([]Sample, 0, len(raw))

	for i, r := range raw {
		s, err := r.sample(types)
		if err != nil {
			return nil, fmt.Errorf("value list %d: %w", i, err)
		}

		samples = append(samples, s)
	}

	return samples, nil
}

func (r *valueListJSON) sample(types metric.TypesDB) (Sample, error) {
	if r.Host == "" || r.Plugin == "" || r.Type == "" {
		return Sample{}, fmt.Errorf("host, plugin and type are required")
	}

	if len(r.DSTypes) != len(r.Values) {
		return Sample{}, fmt.Errorf("%d values but %d dstypes", len(r.Values), len(r.DSTypes))
	}

	kinds := make([]metric.Kind, len(r.DSTypes))

	for i, t := range r.DSTypes {
		k, err := metric.ParseKind(t)
		if err != nil {
			return Sample{}, err
		}

		kinds[i] = k
	}

	ds, ok := types.Lookup(r.Type)
	if !ok {
		ds = metric.NewDataSet(r.Type, r.DSNames, kinds)
	}

	values := make([]metric.Value, len(r.Values))

	for i, n := range r.Values {
		kind := kinds[i]
		if i < len(ds.Sources) {
			kind = ds.Sources[i].Kind
		}

		v, err := parseValue(kind, n)
		if err != nil {
			return Sample{}, fmt.Errorf("value %d: %w", i, err)
		}

		values[i] = v
	}

	return Sample{
		DataSet: ds,
		ValueList: metric.ValueList{
			Host:           r.Host,
			Plugin:         r.Plugin,
			PluginInstance: r.PluginInstance,
			Type:           r.Type,
			TypeInstance:   r.TypeInstance,
			Time:           floatTime(r.Time),
			Interval:       time.Duration(r.Interval * float64(time.Second)),
			Values:         values,
		},
	}, nil
}

func parseValue(kind metric.Kind, n json.Number) (metric.Value, error) {
	s := n.String()

	switch kind {
	case metric.KindCounter:
		v, err := strconv.ParseUint(s, 10, 64)

		return metric.CounterValue(v), err
	case metric.KindAbsolute:
		v, err := strconv.ParseUint(s, 10, 64)

		return metric.AbsoluteValue(v), err
	case metric.KindDerive:
		v, err := strconv.ParseInt(s, 10, 64)

		return metric.DeriveValue(v), err
	default:
		// write_http encodes NaN gauges as null.
		if s == "" {
			return metric.GaugeValue(math.NaN()), nil
		}

		v, err := strconv.ParseFloat(s, 64)

		return metric.GaugeValue(v), err
	}
}

func floatTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)

	return time.Unix(int64(whole), int64(frac*1e9))
}
