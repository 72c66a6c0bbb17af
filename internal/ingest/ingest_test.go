package ingest

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/syslogexporter/internal/export"
	"github.com/ethpandaops/syslogexporter/internal/metric"
)

const payload = `[
  {"values":[1901474177],"dstypes":["counter"],"dsnames":["value"],
   "time":1280959128.5,"interval":10,"host":"leeloo.octo.it","plugin":"cpu",
   "plugin_instance":"0","type":"cpu","type_instance":"idle"},
  {"values":[0.5,null],"dstypes":["gauge","gauge"],"dsnames":["shortterm","midterm"],
   "time":1280959128,"interval":10,"host":"leeloo.octo.it","plugin":"load",
   "plugin_instance":"","type":"load","type_instance":""}
]`

type recordingDispatcher struct {
	mu      sync.Mutex
	samples []Sample
	err     error
}

func (d *recordingDispatcher) Dispatch(ds *metric.DataSet, vl *metric.ValueList) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.samples = append(d.samples, Sample{DataSet: *ds, ValueList: *vl})

	return d.err
}

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func TestDecode(t *testing.T) {
	samples, err := Decode([]byte(payload), nil)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	cpu := samples[0]
	assert.Equal(t, "cpu", cpu.DataSet.Type)
	assert.Equal(t, metric.KindCounter, cpu.DataSet.Sources[0].Kind)
	assert.Equal(t, uint64(1901474177), cpu.ValueList.Values[0].Counter)
	assert.Equal(t, "leeloo.octo.it/cpu-0/cpu-idle", cpu.ValueList.Identity())
	assert.Equal(t, time.Unix(1280959128, 500000000), cpu.ValueList.Time)
	assert.Equal(t, 10*time.Second, cpu.ValueList.Interval)

	load := samples[1]
	require.Len(t, load.DataSet.Sources, 2)
	assert.Equal(t, "midterm", load.DataSet.Sources[1].Name)
	assert.Equal(t, 0.5, load.ValueList.Values[0].Gauge)
	assert.True(t, math.IsNaN(load.ValueList.Values[1].Gauge))
}

func TestDecode_UsesTypesDB(t *testing.T) {
	types, err := metric.ParseTypesDB(strings.NewReader("cpu value:DERIVE:0:U\n"))
	require.NoError(t, err)

	samples, err := Decode([]byte(payload), types)
	require.NoError(t, err)

	cpu := samples[0]
	assert.Equal(t, metric.KindDerive, cpu.DataSet.Sources[0].Kind)
	assert.Equal(t, int64(1901474177), cpu.ValueList.Values[0].Derive)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing host", `[{"values":[1],"dstypes":["gauge"],"plugin":"p","type":"t"}]`},
		{"dstypes mismatch", `[{"values":[1,2],"dstypes":["gauge"],"host":"h","plugin":"p","type":"t"}]`},
		{"bad kind", `[{"values":[1],"dstypes":["histogram"],"host":"h","plugin":"p","type":"t"}]`},
		{"negative counter", `[{"values":[-1],"dstypes":["counter"],"host":"h","plugin":"p","type":"t"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body), nil)
			require.Error(t, err)
		})
	}
}

func compress(t *testing.T, encoding string, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	switch encoding {
	case EncodingGzip:
		w := gzip.NewWriter(&buf)
		_, err := w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case EncodingDeflate:
		w := zlib.NewWriter(&buf)
		_, err := w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case EncodingZstd:
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		defer enc.Close()

		return enc.EncodeAll(data, nil)
	case EncodingSnappy:
		return snappy.Encode(nil, data)
	default:
		return data
	}

	return buf.Bytes()
}

func TestDecompressor_RoundTrip(t *testing.T) {
	d, err := NewDecompressor(1 << 20)
	require.NoError(t, err)
	defer d.Close()

	data := []byte(strings.Repeat(payload, 4))

	for _, enc := range []string{"", EncodingIdentity, EncodingGzip, EncodingDeflate, EncodingZstd, EncodingSnappy} {
		t.Run("enc="+enc, func(t *testing.T) {
			out, err := d.Decompress(enc, compress(t, enc, data))
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestDecompressor_Limits(t *testing.T) {
	d, err := NewDecompressor(64)
	require.NoError(t, err)
	defer d.Close()

	data := bytes.Repeat([]byte("a"), 1024)

	for _, enc := range []string{EncodingGzip, EncodingDeflate, EncodingZstd, EncodingSnappy} {
		_, err := d.Decompress(enc, compress(t, enc, data))
		assert.ErrorIs(t, err, errBodyTooLarge, enc)
	}

	_, err = d.Decompress("br", data)
	assert.ErrorIs(t, err, errUnsupportedEncoding)
}

func newTestServer(t *testing.T, d Dispatcher, health *export.HealthMetrics) *httptest.Server {
	t.Helper()

	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 4096

	srv, err := NewServer(testLog(), cfg, d, nil, health)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts
}

func post(t *testing.T, url, encoding string, body []byte) (int, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url+"/collectd", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(b)
}

func TestServer_DispatchesEverySample(t *testing.T) {
	d := &recordingDispatcher{}
	health := export.NewHealthMetrics(testLog(), export.HealthConfig{})
	ts := newTestServer(t, d, health)

	code, _ := post(t, ts.URL, EncodingZstd, compress(t, EncodingZstd, []byte(payload)))
	assert.Equal(t, http.StatusNoContent, code)

	require.Len(t, d.samples, 2)
	assert.Equal(t, "cpu", d.samples[0].ValueList.Plugin)
	assert.Equal(t, "load", d.samples[1].ValueList.Plugin)
	assert.Equal(t, 2.0, testutil.ToFloat64(health.SamplesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(health.IngestRequests.WithLabelValues("204")))
}

func TestServer_DispatchFailure(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("write_syslog: sink write failed")}
	ts := newTestServer(t, d, nil)

	code, body := post(t, ts.URL, "", []byte(payload))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body, "leeloo.octo.it/cpu-0/cpu-idle")
	assert.Len(t, d.samples, 2)
}

func TestServer_RejectsBadRequests(t *testing.T) {
	d := &recordingDispatcher{}
	ts := newTestServer(t, d, nil)

	code, _ := post(t, ts.URL, "", []byte("not json"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(t, ts.URL, "br", []byte(payload))
	assert.Equal(t, http.StatusUnsupportedMediaType, code)

	code, _ = post(t, ts.URL, "", bytes.Repeat([]byte(" "), 8192))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)

	resp, err := http.Get(ts.URL + "/collectd")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "syslogexporter/dev", resp.Header.Get("Server"))

	assert.Empty(t, d.samples)
}
