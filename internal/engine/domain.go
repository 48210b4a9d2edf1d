package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Domain is a serialization domain (spec §4.2, §5): a critical section held
// for the entire duration of one inference call against the Engine handle it
// owns exclusively. whisperd runs exactly two domains, "cold" and "hot",
// which never contend with each other.
type Domain struct {
	name string
	log  *slog.Logger

	mu     sync.Mutex
	engine Engine
	path   string
	opts   Options
}

// NewDomain wraps an already-loaded Engine in a named serialization domain.
func NewDomain(name string, eng Engine, modelPath string, opts Options, log *slog.Logger) *Domain {
	if log == nil {
		log = slog.Default()
	}
	return &Domain{name: name, engine: eng, path: modelPath, opts: opts, log: log}
}

// Name reports the domain's name ("cold" or "hot"), used in logging and
// metrics labels.
func (d *Domain) Name() string {
	return d.name
}

// Engine returns the currently loaded handle for read-only introspection
// (IsMultilingual, language lookups). Callers must not call Full on the
// returned value directly; use Invoke so the call is serialized.
func (d *Domain) Engine() Engine {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine
}

// Invoke acquires the domain's exclusion scope for the duration of one Full
// call and returns the segments plus the wall-clock duration of the call,
// so callers can populate a processing_time_ms field.
func (d *Domain) Invoke(ctx context.Context, params Params, samples []float32) ([]Segment, time.Duration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine == nil {
		return nil, 0, fmt.Errorf("engine: %s domain has no loaded model", d.name)
	}

	start := time.Now()
	segments, err := d.engine.Full(ctx, params, samples)
	elapsed := time.Since(start)
	return segments, elapsed, err
}

// Reload frees the current handle and loads a new one from modelPath while
// holding the domain's exclusion scope, implementing the cold model's
// hot-reload semantics (§4.2). If loading the replacement fails, the old
// handle has already been closed and the domain is left with no engine;
// the caller (the /load handler) is expected to treat this as fatal per
// spec §7, since there is no fallback to the previous model.
func (d *Domain) Reload(modelPath string, opts Options, load Loader) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine != nil {
		if err := d.engine.Close(); err != nil {
			d.log.Warn("engine: error closing previous handle", "domain", d.name, "err", err)
		}
		d.engine = nil
	}

	eng, err := load(modelPath, opts)
	if err != nil {
		return fmt.Errorf("engine: %s domain reload from %q failed: %w", d.name, modelPath, err)
	}

	d.engine = eng
	d.path = modelPath
	d.opts = opts
	return nil
}

// ModelPath returns the path the currently loaded model was loaded from.
func (d *Domain) ModelPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Ready reports whether a model is currently loaded, used by health checks.
func (d *Domain) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine != nil
}

// Load is a package-level convenience that validates opts and loads an
// engine via the given Loader, used at startup before a Domain exists.
func Load(modelPath string, opts Options, load Loader) (Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return load(modelPath, opts)
}
