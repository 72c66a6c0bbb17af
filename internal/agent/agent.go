package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/syslogexporter/internal/dispatch"
	"github.com/ethpandaops/syslogexporter/internal/export"
	"github.com/ethpandaops/syslogexporter/internal/ingest"
	"github.com/ethpandaops/syslogexporter/internal/metric"
	"github.com/ethpandaops/syslogexporter/internal/rate"
	"github.com/ethpandaops/syslogexporter/internal/sink"
	"github.com/ethpandaops/syslogexporter/internal/target"
)

// Agent is the top-level orchestrator for the exporter.
type Agent interface {
	// Start initializes all components and begins accepting samples.
	Start(ctx context.Context) error
	// Stop shuts down all components gracefully.
	Stop() error
	// Reload re-reads the config file and re-syncs the registered targets.
	Reload() error
	// Targets returns the registered dispatch names.
	Targets() []string
}

type agent struct {
	log      logrus.FieldLogger
	cfgPath  string
	cfg      *Config
	health   *export.HealthMetrics
	types    metric.TypesDB
	tracker  *rate.Tracker
	registry *dispatch.Registry
	sink     sink.Sink
	ingest   *ingest.Server
	watcher  *configWatcher

	// newSink is replaced in tests.
	newSink func(sink.Config) (sink.Sink, error)

	// reloadMu serializes target syncs; current mirrors the registry.
	reloadMu sync.Mutex
	current  map[string]target.Settings

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// New creates a new Agent. cfgPath is re-read on Reload.
func New(log logrus.FieldLogger, cfgPath string, cfg *Config) (Agent, error) {
	return newAgent(log, cfgPath, cfg)
}

func newAgent(log logrus.FieldLogger, cfgPath string, cfg *Config) (*agent, error) {
	a := &agent{
		log:      log.WithField("component", "agent"),
		cfgPath:  cfgPath,
		cfg:      cfg,
		health:   export.NewHealthMetrics(log, cfg.Health),
		tracker:  rate.NewTracker(rate.NewCache(cfg.Rates)),
		registry: dispatch.NewRegistry(),
		current:  make(map[string]target.Settings, len(cfg.Targets)),
		newSink: func(c sink.Config) (sink.Sink, error) {
			return sink.New(c, os.Stderr)
		},
	}

	if cfg.TypesDB != "" {
		types, err := metric.LoadTypesDB(cfg.TypesDB)
		if err != nil {
			return nil, err
		}

		a.types = types

		a.log.WithField("types", len(types)).Info("Loaded types db")
	}

	srv, err := ingest.NewServer(log, cfg.Ingest, a.registry, a.types, a.health)
	if err != nil {
		return nil, fmt.Errorf("creating ingest server: %w", err)
	}

	a.ingest = srv

	return a, nil
}

func (a *agent) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	// 1. Start health metrics server.
	if err := a.health.Start(ctx); err != nil {
		return fmt.Errorf("starting health metrics: %w", err)
	}

	// 2. Open the sink shared by all targets.
	s, err := a.newSink(a.cfg.Sink)
	if err != nil {
		return fmt.Errorf("opening sink: %w", err)
	}

	a.sink = s

	a.log.WithField("sink", s.Name()).Info("Sink opened")

	// 3. Register targets.
	a.syncTargets(a.cfg.TargetBlocks())

	if a.registry.Len() == 0 {
		a.log.Warn("No valid targets registered, samples will be dropped")
	}

	// 4. Accept samples.
	if err := a.ingest.Start(ctx); err != nil {
		return fmt.Errorf("starting ingest server: %w", err)
	}

	// 5. Watch the config file.
	if a.cfg.Reload && a.cfgPath != "" {
		w, err := newConfigWatcher(a.log, a.cfgPath, a.cfg.ReloadDelay, func() {
			if err := a.Reload(); err != nil {
				a.log.WithError(err).Error("Config reload failed")
			}
		})
		if err != nil {
			return fmt.Errorf("starting config watcher: %w", err)
		}

		a.watcher = w

		a.wg.Add(1)

		go func() {
			defer a.wg.Done()

			w.run(ctx)
		}()

		a.log.WithField("path", a.cfgPath).Info("Watching config for changes")
	}

	return nil
}

func (a *agent) Stop() error {
	a.stopped.Store(true)

	if a.cancel != nil {
		a.cancel()
	}

	var errs []error

	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing watcher: %w", err))
		}
	}

	a.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.ingest.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping ingest server: %w", err))
	}

	a.reloadMu.Lock()
	a.registry.Close()
	a.current = make(map[string]target.Settings)
	a.reloadMu.Unlock()

	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing sink: %w", err))
		}
	}

	if err := a.health.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping health metrics: %w", err))
	}

	return errors.Join(errs...)
}

func (a *agent) Reload() error {
	if a.stopped.Load() {
		return errors.New("agent is stopped")
	}

	cfg, err := LoadConfig(a.cfgPath)
	if err != nil {
		a.health.ConfigReloads.WithLabelValues("failure").Inc()

		return err
	}

	a.syncTargets(cfg.TargetBlocks())
	a.health.ConfigReloads.WithLabelValues("success").Inc()

	a.log.WithField("targets", a.registry.Names()).Info("Config reloaded")

	return nil
}

func (a *agent) Targets() []string {
	return a.registry.Names()
}

// syncTargets makes the registry match blocks. Unchanged targets are left
// alone, changed and new ones are (re)registered, removed ones released.
// A block that fails validation keeps whatever was registered under its
// name before.
func (a *agent) syncTargets(blocks []target.Block) {
	parsed := ParseTargets(a.log, blocks)

	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	// Stop may have closed the registry and sink since Reload checked.
	if a.stopped.Load() {
		return
	}

	for name, s := range parsed.Settings {
		if old, ok := a.current[name]; ok && old == s {
			continue
		}

		a.register(s)
		a.current[name] = s
	}

	for name := range a.current {
		if _, ok := parsed.Settings[name]; ok {
			continue
		}

		if _, failed := parsed.Failed[name]; failed {
			continue
		}

		a.registry.Unregister(name)
		delete(a.current, name)
	}
}

func (a *agent) register(s target.Settings) {
	var rates dispatch.RateSource
	if s.StoreRates {
		rates = a.tracker
	}

	t := dispatch.NewTarget(a.log, s, a.sink, rates, a.health)
	name := t.Name()

	a.health.TargetsRegistered.Inc()
	a.registry.Register(name, t, func() {
		a.health.TargetsRegistered.Dec()
		a.log.WithField("target", name).Debug("Target released")
	})

	a.log.WithFields(logrus.Fields{
		"target":      name,
		"prefix":      s.Prefix,
		"tags":        s.Tags,
		"store_rates": s.StoreRates,
		"escape":      string(s.EscapeChar),
	}).Info("Target registered")
}
