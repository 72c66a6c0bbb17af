package export

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// HealthConfig configures the Prometheus health metrics server.
type HealthConfig struct {
	// Addr is the listen address for the health metrics server.
	// Defaults to ":9090". Set to "" to disable.
	Addr string `yaml:"addr"`
}

// HealthMetrics exposes Prometheus metrics for exporter health.
type HealthMetrics struct {
	log      logrus.FieldLogger
	addr     string
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry

	// Ingest
	SamplesReceived prometheus.Counter
	IngestRequests  *prometheus.CounterVec // code

	// Dispatch
	LinesSent      *prometheus.CounterVec   // target
	DispatchErrors *prometheus.CounterVec   // target, error_type
	LineBytes      *prometheus.HistogramVec // target

	// Configuration
	TargetsRegistered prometheus.Gauge
	ConfigReloads     *prometheus.CounterVec // result

	running atomic.Bool
}

// NewHealthMetrics creates a new health metrics server.
func NewHealthMetrics(
	log logrus.FieldLogger,
	cfg HealthConfig,
) *HealthMetrics {
	reg := prometheus.NewRegistry()

	h := &HealthMetrics{
		log:      log.WithField("component", "health"),
		addr:     cfg.Addr,
		registry: reg,

		SamplesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "syslogexporter",
			Name:      "samples_received_total",
			Help:      "Total metric samples received for dispatch.",
		}),
		IngestRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "syslogexporter",
				Name:      "ingest_requests_total",
				Help:      "Total ingest HTTP requests by response code.",
			},
			[]string{"code"},
		),
		LinesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "syslogexporter",
				Name:      "lines_sent_total",
				Help:      "Total lines handed to the sink by target.",
			},
			[]string{"target"},
		),
		DispatchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "syslogexporter",
				Name:      "dispatch_errors_total",
				Help:      "Total samples dropped by target and error type.",
			},
			[]string{"target", "error_type"},
		),
		LineBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "syslogexporter",
				Name:      "line_bytes",
				Help:      "Length of emitted lines in bytes by target.",
				Buckets:   []float64{32, 64, 128, 256, 512, 1024, 1428},
			},
			[]string{"target"},
		),
		TargetsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "syslogexporter",
			Name:      "targets_registered",
			Help:      "Number of export targets currently registered.",
		}),
		ConfigReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "syslogexporter",
				Name:      "config_reloads_total",
				Help:      "Total configuration reloads by result.",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		h.SamplesReceived,
		h.IngestRequests,
		h.LinesSent,
		h.DispatchErrors,
		h.LineBytes,
		h.TargetsRegistered,
		h.ConfigReloads,
	)

	return h
}

// Start begins serving the /metrics endpoint.
func (h *HealthMetrics) Start(_ context.Context) error {
	if h.addr == "" {
		h.log.Info("Health metrics server disabled")

		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		h.registry,
		promhttp.HandlerOpts{},
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	// pprof endpoints for CPU/memory profiling.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}

	h.listener = ln

	h.server = &http.Server{
		Handler: mux,
	}

	h.running.Store(true)

	go func() {
		h.log.WithField("addr", ln.Addr().String()).
			Info("Health metrics server started")

		if err := h.server.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			h.log.WithError(err).
				Error("Health metrics server error")
		}

		h.running.Store(false)
	}()

	return nil
}

// Addr returns the actual listener address. Useful when started
// with ":0" to get the OS-assigned port.
func (h *HealthMetrics) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}

	return h.addr
}

// Stop gracefully shuts down the health metrics server.
func (h *HealthMetrics) Stop() error {
	if h.server == nil {
		return nil
	}

	return h.server.Close()
}
