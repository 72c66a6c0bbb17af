package sink

import (
	"fmt"
	"log/syslog"
	"strings"
)

var facilities = map[string]syslog.Priority{
	"kern":     syslog.LOG_KERN,
	"user":     syslog.LOG_USER,
	"mail":     syslog.LOG_MAIL,
	"daemon":   syslog.LOG_DAEMON,
	"auth":     syslog.LOG_AUTH,
	"syslog":   syslog.LOG_SYSLOG,
	"lpr":      syslog.LOG_LPR,
	"news":     syslog.LOG_NEWS,
	"uucp":     syslog.LOG_UUCP,
	"cron":     syslog.LOG_CRON,
	"authpriv": syslog.LOG_AUTHPRIV,
	"ftp":      syslog.LOG_FTP,
	"local0":   syslog.LOG_LOCAL0,
	"local1":   syslog.LOG_LOCAL1,
	"local2":   syslog.LOG_LOCAL2,
	"local3":   syslog.LOG_LOCAL3,
	"local4":   syslog.LOG_LOCAL4,
	"local5":   syslog.LOG_LOCAL5,
	"local6":   syslog.LOG_LOCAL6,
	"local7":   syslog.LOG_LOCAL7,
}

// ParseFacility maps a facility name to its syslog value. Empty means daemon.
func ParseFacility(name string) (syslog.Priority, error) {
	if name == "" {
		return syslog.LOG_DAEMON, nil
	}

	f, ok := facilities[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown syslog facility: %s", name)
	}

	return f, nil
}

// syslogWriter is the subset of *syslog.Writer the sink uses.
type syslogWriter interface {
	Emerg(m string) error
	Alert(m string) error
	Crit(m string) error
	Err(m string) error
	Warning(m string) error
	Notice(m string) error
	Info(m string) error
	Debug(m string) error
	Close() error
}

// Syslog writes lines to a syslog daemon. The stdlib writer serializes
// writes and reconnects on failure, so Syslog is safe for concurrent use.
type Syslog struct {
	w syslogWriter
}

var _ Sink = (*Syslog)(nil)

// NewSyslog connects to the syslog daemon described by cfg.
func NewSyslog(cfg Config) (*Syslog, error) {
	facility, err := ParseFacility(cfg.Facility)
	if err != nil {
		return nil, err
	}

	w, err := syslog.Dial(cfg.Network, cfg.Address, facility|syslog.LOG_INFO, cfg.Tag)
	if err != nil {
		return nil, fmt.Errorf("connecting to syslog: %w", err)
	}

	return &Syslog{w: w}, nil
}

func (s *Syslog) Name() string { return TypeSyslog }

func (s *Syslog) Write(p Priority, line string) error {
	if err := s.send(p, line); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	return nil
}

func (s *Syslog) send(p Priority, line string) error {
	switch p {
	case Emergency:
		return s.w.Emerg(line)
	case Alert:
		return s.w.Alert(line)
	case Critical:
		return s.w.Crit(line)
	case Error:
		return s.w.Err(line)
	case Warning:
		return s.w.Warning(line)
	case Notice:
		return s.w.Notice(line)
	case Info:
		return s.w.Info(line)
	case Debug:
		return s.w.Debug(line)
	}

	return fmt.Errorf("unsupported priority %s", p)
}

func (s *Syslog) Close() error {
	return s.w.Close()
}
