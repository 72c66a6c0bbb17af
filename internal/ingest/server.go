package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/syslogexporter/internal/export"
	"github.com/ethpandaops/syslogexporter/internal/metric"
	"github.com/ethpandaops/syslogexporter/internal/version"
)

// Config configures the ingest HTTP server.
type Config struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string `yaml:"addr"`

	// Path is the endpoint accepting write_http JSON. Defaults to "/collectd".
	Path string `yaml:"path"`

	// MaxBodyBytes caps both the raw and the decompressed request body.
	// Defaults to 1MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		Path:         "/collectd",
		MaxBodyBytes: 1 << 20,
	}
}

// Dispatcher receives every decoded sample.
type Dispatcher interface {
	Dispatch(ds *metric.DataSet, vl *metric.ValueList) error
}

// Server accepts value lists over HTTP and hands them to a Dispatcher,
// one call per value list. It takes the place of the collection daemon's
// write callback.
type Server struct {
	log        logrus.FieldLogger
	cfg        Config
	dispatcher Dispatcher
	types      metric.TypesDB
	health     *export.HealthMetrics
	decomp     *Decompressor

	server   *http.Server
	listener net.Listener
}

// NewServer creates an ingest server. types may be nil.
func NewServer(
	log logrus.FieldLogger,
	cfg Config,
	dispatcher Dispatcher,
	types metric.TypesDB,
	health *export.HealthMetrics,
) (*Server, error) {
	defaults := DefaultConfig()

	if cfg.Path == "" {
		cfg.Path = defaults.Path
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}

	decomp, err := NewDecompressor(cfg.MaxBodyBytes)
	if err != nil {
		return nil, err
	}

	return &Server{
		log:        log.WithField("component", "ingest"),
		cfg:        cfg,
		dispatcher: dispatcher,
		types:      types,
		health:     health,
		decomp:     decomp,
	}, nil
}

// Handler returns the HTTP handler serving the ingest path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handle)

	return mux
}

// Start begins listening on the configured address.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	s.listener = ln
	s.server = &http.Server{Handler: s.Handler()}

	go func() {
		s.log.WithFields(logrus.Fields{
			"addr": ln.Addr().String(),
			"path": s.cfg.Path,
		}).Info("Ingest server started")

		if err := s.server.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("Ingest server error")
		}
	}()

	return nil
}

// Addr returns the actual listener address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.cfg.Addr
}

// Stop shuts down the server and waits for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	defer s.decomp.Close()

	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Server", version.Get().Product())

	code, msg := s.process(w, r)

	if s.health != nil {
		s.health.IngestRequests.WithLabelValues(strconv.Itoa(code)).Inc()
	}

	if code == http.StatusNoContent {
		w.WriteHeader(code)

		return
	}

	http.Error(w, msg, code)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) (int, string) {
	if r.Method != http.MethodPost {
		return http.StatusMethodNotAllowed, "method not allowed"
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, errBodyTooLarge.Error()
		}

		return http.StatusBadRequest, err.Error()
	}

	body, err := s.decomp.Decompress(r.Header.Get("Content-Encoding"), raw)
	if err != nil {
		switch {
		case errors.Is(err, errUnsupportedEncoding):
			return http.StatusUnsupportedMediaType, err.Error()
		case errors.Is(err, errBodyTooLarge):
			return http.StatusRequestEntityTooLarge, err.Error()
		default:
			return http.StatusBadRequest, err.Error()
		}
	}

	samples, err := Decode(body, s.types)
	if err != nil {
		s.log.WithError(err).Debug("Rejected ingest payload")

		return http.StatusBadRequest, err.Error()
	}

	var errs []error

	for i := range samples {
		if s.health != nil {
			s.health.SamplesReceived.Inc()
		}

		if err := s.dispatcher.Dispatch(&samples[i].DataSet, &samples[i].ValueList); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", samples[i].ValueList.Identity(), err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.log.WithError(err).
			WithField("failed", len(errs)).
			Warn("Failed to dispatch samples")

		return http.StatusInternalServerError, err.Error()
	}

	return http.StatusNoContent, ""
}
