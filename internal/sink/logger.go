package sink

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logger writes lines through a logrus logger. It serves hosts without a
// syslog daemon, typically containers logging to stderr.
type Logger struct {
	log *logrus.Logger
}

var _ Sink = (*Logger)(nil)

// NewLogger wraps log. Each line is emitted as the entry message with no
// additional fields.
func NewLogger(log *logrus.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Name() string { return TypeLogger }

func (l *Logger) Write(p Priority, line string) error {
	level, err := logrusLevel(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	l.log.Log(level, line)

	return nil
}

func (l *Logger) Close() error { return nil }

func logrusLevel(p Priority) (logrus.Level, error) {
	switch p {
	case Emergency, Alert, Critical, Error:
		// logrus fatal and panic levels exit or panic.
		return logrus.ErrorLevel, nil
	case Warning:
		return logrus.WarnLevel, nil
	case Notice, Info:
		return logrus.InfoLevel, nil
	case Debug:
		return logrus.DebugLevel, nil
	}

	return 0, fmt.Errorf("unsupported priority %s", p)
}
