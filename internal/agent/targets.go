package agent

import (
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/syslogexporter/internal/target"
)

// ParsedTargets is the outcome of validating every target block.
type ParsedTargets struct {
	// Settings holds the valid targets keyed by dispatch name. A later
	// block with the same name replaces an earlier one.
	Settings map[string]target.Settings

	// Failed maps the dispatch name of each rejected block to its error.
	Failed map[string]error
}

// ParseTargets validates each block independently. A rejected block never
// affects its siblings.
func ParseTargets(log logrus.FieldLogger, blocks []target.Block) ParsedTargets {
	out := ParsedTargets{
		Settings: make(map[string]target.Settings, len(blocks)),
		Failed:   make(map[string]error),
	}

	for _, b := range blocks {
		s, warnings, err := target.Parse(b)

		name := target.Settings{Name: b.Name}.DispatchName()
		entry := log.WithFields(logrus.Fields{
			"target": name,
			"line":   b.Line,
		})

		for _, w := range warnings {
			entry.Warn(w)
		}

		if err != nil {
			entry.WithError(err).Error("Invalid target configuration, target not registered")

			out.Failed[name] = err

			continue
		}

		if _, dup := out.Settings[name]; dup {
			entry.Warn("Duplicate target name, last definition wins")
		}

		out.Settings[name] = s
	}

	return out
}
