package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethpandaops/syslogexporter/internal/metric"
)

type entry struct {
	writer Writer
	free   func()
}

func (e entry) release() {
	if e.free != nil {
		e.free()
	}
}

// Registry owns the registered targets by dispatch name. Registering an
// existing name replaces the previous writer (last registration wins) and
// releases it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry, 4)}
}

// Register stores w under name. free, if not nil, is called exactly once
// when the entry is replaced, unregistered or the registry is closed.
func (r *Registry) Register(name string, w Writer, free func()) {
	r.mu.Lock()
	old, ok := r.entries[name]
	r.entries[name] = entry{writer: w, free: free}
	r.mu.Unlock()

	if ok {
		old.release()
	}
}

// Unregister removes and releases name. It reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	old, ok := r.entries[name]
	delete(r.entries, name)
	r.mu.Unlock()

	if ok {
		old.release()
	}

	return ok
}

// Lookup returns the writer registered under name.
func (r *Registry) Lookup(name string) (Writer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]

	return e.writer, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))

	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)

	return names
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Dispatch hands the sample to every registered target. A failing target
// does not prevent the others from writing; all failures are joined.
func (r *Registry) Dispatch(ds *metric.DataSet, vl *metric.ValueList) error {
	r.mu.RLock()
	writers := make(map[string]Writer, len(r.entries))

	for name, e := range r.entries {
		writers[name] = e.writer
	}
	r.mu.RUnlock()

	var errs []error

	for name, w := range writers {
		if err := w.Write(ds, vl); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// Close unregisters and releases every target.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.release()
	}
}
