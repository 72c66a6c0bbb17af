package sink

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the sink selected by cfg. out is used by the logger sink.
func New(cfg Config, out io.Writer) (Sink, error) {
	if strings.ToLower(cfg.Type) == TypeLogger {
		log := logrus.New()
		log.SetOutput(out)
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:  true,
			DisableQuote:   true,
			DisableSorting: true,
			DisableColors:  true,
		})

		return NewLogger(log), nil
	}

	return NewSyslog(cfg)
}
