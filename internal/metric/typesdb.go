package metric

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// TypesDB maps type names to their data set, as read from one or more
// collectd types.db files.
type TypesDB map[string]DataSet

// LoadTypesDB reads a types.db file from disk.
func LoadTypesDB(path string) (TypesDB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening types db %s: %w", path, err)
	}
	defer f.Close()

	db, err := ParseTypesDB(f)
	if err != nil {
		return nil, fmt.Errorf("parsing types db %s: %w", path, err)
	}

	return db, nil
}

// ParseTypesDB parses the types.db line format:
//
//	if_octets  rx:DERIVE:0:U, tx:DERIVE:0:U
func ParseTypesDB(r io.Reader) (TypesDB, error) {
	db := make(TypesDB)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected type name and data sources", lineNo)
		}

		ds := DataSet{Type: fields[0]}

		specs := strings.Split(strings.Join(fields[1:], ""), ",")
		for _, spec := range specs {
			if spec == "" {
				continue
			}

			src, err := parseDataSource(spec)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}

			ds.Sources = append(ds.Sources, src)
		}

		if len(ds.Sources) == 0 {
			return nil, fmt.Errorf("line %d: type %q has no data sources", lineNo, ds.Type)
		}

		db[ds.Type] = ds
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return db, nil
}

// Lookup returns the data set registered for the type.
func (db TypesDB) Lookup(typ string) (DataSet, bool) {
	ds, ok := db[typ]

	return ds, ok
}

func parseDataSource(spec string) (DataSource, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 4 {
		return DataSource{}, fmt.Errorf("malformed data source %q", spec)
	}

	kind, err := ParseKind(parts[1])
	if err != nil {
		return DataSource{}, err
	}

	lo, err := parseBound(parts[2])
	if err != nil {
		return DataSource{}, fmt.Errorf("data source %s min: %w", parts[0], err)
	}

	hi, err := parseBound(parts[3])
	if err != nil {
		return DataSource{}, fmt.Errorf("data source %s max: %w", parts[0], err)
	}

	return DataSource{Name: parts[0], Kind: kind, Min: lo, Max: hi}, nil
}

// parseBound treats "U" as unbounded.
func parseBound(s string) (float64, error) {
	if s == "U" {
		return math.NaN(), nil
	}

	return strconv.ParseFloat(s, 64)
}
