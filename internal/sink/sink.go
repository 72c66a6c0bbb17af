package sink

import (
	"errors"
	"fmt"
	"strings"
)

// Priority is a syslog severity level.
type Priority int

const (
	Emergency Priority = iota
	Alert
	Critical
	Error
	Warning
	Notice
	Info
	Debug
)

// String returns the lowercase severity name.
func (p Priority) String() string {
	switch p {
	case Emergency:
		return "emerg"
	case Alert:
		return "alert"
	case Critical:
		return "crit"
	case Error:
		return "err"
	case Warning:
		return "warning"
	case Notice:
		return "notice"
	case Info:
		return "info"
	case Debug:
		return "debug"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ErrTransport wraps every failure reported by a sink's underlying facility.
var ErrTransport = errors.New("sink write failed")

// Sink delivers formatted lines to a logging facility. Writes are attempted
// once; there is no acknowledgment, ordering or durability guarantee.
type Sink interface {
	// Name returns the sink's name for logging.
	Name() string
	// Write emits one line at the given priority.
	Write(p Priority, line string) error
	// Close releases the underlying facility.
	Close() error
}

// Type constants for Config.Type.
const (
	TypeSyslog = "syslog"
	TypeLogger = "logger"
)

// Config selects and configures the sink.
type Config struct {
	// Type is either "syslog" or "logger". Defaults to "syslog".
	Type string `yaml:"type"`

	// Network and Address select a syslog daemon. Both empty means the
	// local syslog socket.
	Network string `yaml:"network"`
	Address string `yaml:"address"`

	// Tag is the syslog program name. Defaults to "collectd".
	Tag string `yaml:"tag"`

	// Facility is the syslog facility name. Defaults to "daemon".
	Facility string `yaml:"facility"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Type:     TypeSyslog,
		Tag:      "collectd",
		Facility: "daemon",
	}
}

// Validate checks the sink type and facility.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Type) {
	case TypeSyslog, TypeLogger:
	default:
		return fmt.Errorf("invalid sink type: %s", c.Type)
	}

	if _, err := ParseFacility(c.Facility); err != nil {
		return err
	}

	if (c.Network == "") != (c.Address == "") {
		return errors.New("sink network and address must be set together")
	}

	return nil
}
