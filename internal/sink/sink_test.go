package sink

import (
	"bytes"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	calls []string
	err   error
}

func (r *recordingWriter) record(level, m string) error {
	r.calls = append(r.calls, level+":"+m)

	return r.err
}

func (r *recordingWriter) Emerg(m string) error   { return r.record("emerg", m) }
func (r *recordingWriter) Alert(m string) error   { return r.record("alert", m) }
func (r *recordingWriter) Crit(m string) error    { return r.record("crit", m) }
func (r *recordingWriter) Err(m string) error     { return r.record("err", m) }
func (r *recordingWriter) Warning(m string) error { return r.record("warning", m) }
func (r *recordingWriter) Notice(m string) error  { return r.record("notice", m) }
func (r *recordingWriter) Info(m string) error    { return r.record("info", m) }
func (r *recordingWriter) Debug(m string) error   { return r.record("debug", m) }
func (r *recordingWriter) Close() error           { return nil }

func TestSyslog_WriteDispatchesOnPriority(t *testing.T) {
	w := &recordingWriter{}
	s := &Syslog{w: w}

	for p := Emergency; p <= Debug; p++ {
		require.NoError(t, s.Write(p, "line"))
	}

	assert.Equal(t, []string{
		"emerg:line", "alert:line", "crit:line", "err:line",
		"warning:line", "notice:line", "info:line", "debug:line",
	}, w.calls)
}

func TestSyslog_WriteErrorIsTransport(t *testing.T) {
	w := &recordingWriter{err: errors.New("broken pipe")}
	s := &Syslog{w: w}

	err := s.Write(Info, "line")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "broken pipe")

	err = s.Write(Priority(99), "line")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSyslog_UnixgramDelivery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.sock")

	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	require.NoError(t, err)
	defer conn.Close()

	s, err := NewSyslog(Config{
		Network:  "unixgram",
		Address:  path,
		Tag:      "collectd",
		Facility: "daemon",
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write(Info, "collectd.web01.cpu.idle 1"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	msg := string(buf[:n])
	// daemon (3<<3) | info (6)
	assert.True(t, strings.HasPrefix(msg, "<30>"), msg)
	assert.Contains(t, msg, "collectd[")
	assert.Contains(t, msg, "collectd.web01.cpu.idle 1")
}

func TestLogger_Write(t *testing.T) {
	var buf bytes.Buffer

	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true})

	s := NewLogger(log)
	require.NoError(t, s.Write(Info, "a.b.c 1"))
	require.NoError(t, s.Write(Critical, "a.b.c 2"))

	out := buf.String()
	assert.Contains(t, out, "level=info msg=a.b.c 1")
	assert.Contains(t, out, "level=error msg=a.b.c 2")
	assert.ErrorIs(t, s.Write(Priority(-1), "x"), ErrTransport)
	assert.NoError(t, s.Close())
}

func TestNew_Logger(t *testing.T) {
	var buf bytes.Buffer

	s, err := New(Config{Type: "LOGGER"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "logger", s.Name())

	require.NoError(t, s.Write(Info, "x.y.z 3"))
	assert.Contains(t, buf.String(), "x.y.z 3")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Type = "kafka"
	assert.ErrorContains(t, cfg.Validate(), "invalid sink type")

	cfg = DefaultConfig()
	cfg.Facility = "local9"
	assert.ErrorContains(t, cfg.Validate(), "unknown syslog facility")

	cfg = DefaultConfig()
	cfg.Network = "udp"
	assert.ErrorContains(t, cfg.Validate(), "must be set together")
}

func TestPriority_String(t *testing.T) {
	assert.Equal(t, "info", Info.String())
	assert.Equal(t, "emerg", Emergency.String())
	assert.Equal(t, "unknown(12)", Priority(12).String())
}
