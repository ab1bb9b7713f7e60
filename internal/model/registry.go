package model

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Registry is the process-wide, read-mostly model-config cache (spec.md §5
// "Model-config cache"). It is populated lazily under a one-shot initializer
// and exposes immutable snapshots; Config and Strategy values are plain
// structs copied out of the cache, so callers can never mutate the shared
// state.
type Registry struct {
	once  sync.Once
	cache *gocache.Cache
}

// defaultRegistry is the process-wide singleton used by package-level
// helpers. It is never mutated after first use and is safe to read
// concurrently (spec.md §9 "Global singletons ... allowed as process-wide
// services with explicit init/shutdown lifecycle").
var defaultRegistry = NewRegistry()

// NewRegistry constructs an empty Registry. Most callers should use the
// package-level Get/Strategy helpers, which share defaultRegistry; NewRegistry
// is exposed for tests that want isolation from the process-wide singleton.
func NewRegistry() *Registry {
	return &Registry{cache: gocache.New(gocache.NoExpiration, 0)}
}

func (r *Registry) ensureLoaded() {
	r.once.Do(func() {
		for id, cfg := range defaultConfigs {
			r.cache.Set("config:"+string(id), cfg, gocache.NoExpiration)
		}
		for id, strat := range defaultCleaningStrategies {
			r.cache.Set("strategy:"+string(id), strat, gocache.NoExpiration)
		}
	})
}

// Config returns the immutable Config for id, or an error listing known ids
// if id is not recognized (spec.md §6 "Unknown model ids fail with a
// descriptive error listing known ids").
func (r *Registry) Config(id ID) (Config, error) {
	r.ensureLoaded()
	v, ok := r.cache.Get("config:" + string(id))
	if !ok {
		return Config{}, unknownModelError{id: id}
	}
	return v.(Config), nil
}

// Strategy returns the immutable CleaningStrategy for id.
func (r *Registry) Strategy(id ID) (CleaningStrategy, error) {
	r.ensureLoaded()
	v, ok := r.cache.Get("strategy:" + string(id))
	if !ok {
		return CleaningStrategy{}, unknownModelError{id: id}
	}
	return v.(CleaningStrategy), nil
}

// Override replaces the cached Config for id, e.g. to apply a CLI-supplied
// concurrency override. Intended for startup wiring only; Override is not
// safe to call once requests are in flight against the registry.
func (r *Registry) Override(id ID, cfg Config) {
	r.ensureLoaded()
	r.cache.Set("config:"+string(id), cfg, gocache.NoExpiration)
}

// ValidateAll compiles every regex embedded in every known model's cleaning
// strategy, failing fast at startup (spec.md §9).
func (r *Registry) ValidateAll() error {
	r.ensureLoaded()
	for _, id := range All() {
		strat, err := r.Strategy(id)
		if err != nil {
			return err
		}
		var patterns []string
		patterns = append(patterns,
			strat.HallucinationPatterns.Japanese...)
		patterns = append(patterns, strat.HallucinationPatterns.English...)
		patterns = append(patterns, strat.HallucinationPatterns.Chinese...)
		patterns = append(patterns, strat.HallucinationPatterns.Korean...)
		patterns = append(patterns, strat.ContextPatterns...)
		for _, g := range strat.ContaminationPatterns {
			patterns = append(patterns, g.Patterns...)
		}
		if err := ValidateRegexes(patterns...); err != nil {
			return fmt.Errorf("model %s: %w", id, err)
		}
	}
	return nil
}

// Get returns the Config for id from the process-wide default registry.
func Get(id ID) (Config, error) { return defaultRegistry.Config(id) }

// GetStrategy returns the CleaningStrategy for id from the process-wide
// default registry.
func GetStrategy(id ID) (CleaningStrategy, error) { return defaultRegistry.Strategy(id) }

// ValidateAll validates every pattern in the process-wide default registry.
func ValidateAll() error { return defaultRegistry.ValidateAll() }

// cacheRefreshInterval documents that configs never expire; kept as a named
// constant so a future TTL-based override policy has an obvious place to
// plug in rather than a magic NoExpiration sprinkled at call sites.
const cacheRefreshInterval = time.Duration(gocache.NoExpiration)
