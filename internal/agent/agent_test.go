package agent

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/syslogexporter/internal/sink"
	"github.com/ethpandaops/syslogexporter/internal/target"
)

type memorySink struct {
	mu    sync.Mutex
	lines []string
}

func (m *memorySink) Name() string { return "memory" }

func (m *memorySink) Write(_ sink.Priority, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = append(m.lines, line)

	return nil
}

func (m *memorySink) Close() error { return nil }

func (m *memorySink) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]string(nil), m.lines...)
	sort.Strings(out)

	return out
}

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

const baseConfig = `
health:
  addr: ""
ingest:
  addr: "127.0.0.1:0"
`

func startAgent(t *testing.T, body string) (*agent, *memorySink, string) {
	t.Helper()

	path := writeConfig(t, t.TempDir(), baseConfig+body)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	a, err := newAgent(testLog(), path, cfg)
	require.NoError(t, err)

	ms := &memorySink{}
	a.newSink = func(sink.Config) (sink.Sink, error) { return ms, nil }

	require.NoError(t, a.Start(context.Background()))

	t.Cleanup(func() {
		assert.NoError(t, a.Stop())
	})

	return a, ms, path
}

func postSample(t *testing.T, a *agent, plugin string) int {
	t.Helper()

	body := fmt.Sprintf(`[{"values":[0.5],"dstypes":["gauge"],"dsnames":["value"],
		"time":1700000000,"interval":10,"host":"web01","plugin":%q,
		"plugin_instance":"My Disk","type":"percent","type_instance":""}]`, plugin)

	resp, err := http.Post(
		"http://"+a.ingest.Addr()+"/collectd",
		"application/json",
		bytes.NewReader([]byte(body)),
	)
	require.NoError(t, err)
	resp.Body.Close()

	return resp.StatusCode
}

func TestAgent_EndToEnd(t *testing.T) {
	a, ms, _ := startAgent(t, `
targets:
  - name: east
    Prefix: east
  - name: west
    Prefix: west
    Tags: env=prod
  - name: broken
    EscapeCharacter: ""
`)

	assert.Equal(t, []string{"write_syslog/east", "write_syslog/west"}, a.Targets())
	assert.Equal(t, 2.0, testutil.ToFloat64(a.health.TargetsRegistered))

	assert.Equal(t, http.StatusNoContent, postSample(t, a, "df"))
	assert.Equal(t, []string{
		"east.web01.df.My_Disk.percent 0.5",
		"west.web01.df.My_Disk.percent 0.5 env=prod",
	}, ms.Lines())
}

func TestAgent_BadTargetNameRegistersSiblings(t *testing.T) {
	a, ms, _ := startAgent(t, `
targets:
  - name: east
    Prefix: east
  - name: [oops]
    Prefix: west
`)

	assert.Equal(t, []string{"write_syslog/east"}, a.Targets())
	assert.Equal(t, http.StatusNoContent, postSample(t, a, "df"))
	assert.Equal(t, []string{"east.web01.df.My_Disk.percent 0.5"}, ms.Lines())
}

func TestAgent_SyncAfterStopRegistersNothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Health.Addr = ""
	cfg.Ingest.Addr = "127.0.0.1:0"

	a, err := newAgent(testLog(), "", cfg)
	require.NoError(t, err)

	a.stopped.Store(true)
	a.syncTargets([]target.Block{{Name: "east"}})

	assert.Empty(t, a.Targets())
	assert.Equal(t, 0.0, testutil.ToFloat64(a.health.TargetsRegistered))
}

func TestAgent_LegacyUnnamedTarget(t *testing.T) {
	a, ms, _ := startAgent(t, "")

	assert.Equal(t, []string{"write_syslog"}, a.Targets())
	assert.Equal(t, http.StatusNoContent, postSample(t, a, "df"))
	assert.Equal(t, []string{"web01.df.My_Disk.percent 0.5"}, ms.Lines())
}

func TestAgent_Reload(t *testing.T) {
	a, ms, path := startAgent(t, `
targets:
  - name: east
    Prefix: east
  - name: west
    Prefix: west
`)

	require.NoError(t, os.WriteFile(path, []byte(baseConfig+`
targets:
  - name: east
    Prefix: east2
  - name: west
    EscapeCharacter: ""
  - name: north
    Prefix: north
`), 0o644))

	require.NoError(t, a.Reload())

	// west failed validation and keeps its previous definition.
	assert.Equal(t, []string{
		"write_syslog/east", "write_syslog/north", "write_syslog/west",
	}, a.Targets())
	assert.Equal(t, 3.0, testutil.ToFloat64(a.health.TargetsRegistered))

	assert.Equal(t, http.StatusNoContent, postSample(t, a, "df"))
	assert.Equal(t, []string{
		"east2.web01.df.My_Disk.percent 0.5",
		"north.web01.df.My_Disk.percent 0.5",
		"west.web01.df.My_Disk.percent 0.5",
	}, ms.Lines())

	require.NoError(t, os.WriteFile(path, []byte(baseConfig+`
targets:
  - name: north
    Prefix: north
`), 0o644))

	require.NoError(t, a.Reload())
	assert.Equal(t, []string{"write_syslog/north"}, a.Targets())
	assert.Equal(t, 1.0, testutil.ToFloat64(a.health.TargetsRegistered))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.health.ConfigReloads.WithLabelValues("success")))
}

func TestAgent_ReloadInvalidFileKeepsTargets(t *testing.T) {
	a, _, path := startAgent(t, `
targets:
  - name: east
`)

	require.NoError(t, os.WriteFile(path, []byte("\t- bad"), 0o644))

	require.Error(t, a.Reload())
	assert.Equal(t, []string{"write_syslog/east"}, a.Targets())
	assert.Equal(t, 1.0, testutil.ToFloat64(a.health.ConfigReloads.WithLabelValues("failure")))
}

func TestAgent_WatchReloadsOnWrite(t *testing.T) {
	a, _, path := startAgent(t, `
reload: true
reload_delay: 20ms
targets:
  - name: east
`)

	require.NoError(t, os.WriteFile(path, []byte(baseConfig+`
reload: true
reload_delay: 20ms
targets:
  - name: south
`), 0o644))

	assert.Eventually(t, func() bool {
		names := a.Targets()

		return len(names) == 1 && names[0] == "write_syslog/south"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestAgent_TypesDBMismatchIsReported(t *testing.T) {
	dir := t.TempDir()
	typesPath := dir + "/types.db"
	require.NoError(t, os.WriteFile(typesPath, []byte("percent value:GAUGE:0:100, extra:GAUGE:0:U\n"), 0o644))

	a, ms, _ := startAgent(t, "types_db: "+typesPath+"\n")

	// The types db declares two values but the sample carries one.
	assert.Equal(t, http.StatusInternalServerError, postSample(t, a, "df"))
	assert.Empty(t, ms.Lines())
}

func TestNew_MissingTypesDB(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TypesDB = "/nonexistent/types.db"

	_, err := New(testLog(), "", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening types db")
}
