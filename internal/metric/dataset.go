package metric

import (
	"math"
	"time"
)

// DataSource describes one named, typed slot of a DataSet.
type DataSource struct {
	Name string
	Kind Kind
	Min  float64
	Max  float64
}

// DataSet is the schema a value list of a given type must conform to.
type DataSet struct {
	Type    string
	Sources []DataSource
}

// ValueList is one timestamped observation of a metric.
type ValueList struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string
	Time           time.Time
	Interval       time.Duration
	Values         []Value
}

// Identity returns the canonical identifier of the value list in the form
// host/plugin[-plugin_instance]/type[-type_instance].
func (vl *ValueList) Identity() string {
	id := vl.Host + "/" + vl.Plugin
	if vl.PluginInstance != "" {
		id += "-" + vl.PluginInstance
	}

	id += "/" + vl.Type
	if vl.TypeInstance != "" {
		id += "-" + vl.TypeInstance
	}

	return id
}

// NewDataSet builds a data set from parallel name and kind slices with
// unbounded min/max.
func NewDataSet(typ string, names []string, kinds []Kind) DataSet {
	ds := DataSet{Type: typ, Sources: make([]DataSource, 0, len(kinds))}

	for i, k := range kinds {
		name := "value"
		if i < len(names) && names[i] != "" {
			name = names[i]
		}

		ds.Sources = append(ds.Sources, DataSource{
			Name: name,
			Kind: k,
			Min:  math.NaN(),
			Max:  math.NaN(),
		})
	}

	return ds
}
