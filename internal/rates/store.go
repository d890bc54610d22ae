package rates

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Persister saves and loads the rate configuration so the last administrative
// update survives restarts. Implemented by the database store; may be nil for
// a purely in-memory store.
type Persister interface {
	// SaveRateConfig persists the configuration as the single current row
	SaveRateConfig(ctx context.Context, cfg Config) error
	// LoadRateConfig returns the persisted configuration, or nil if none was
	// ever saved
	LoadRateConfig(ctx context.Context) (*Config, error)
}

// Store is the process-wide rate configuration holder. Reads are lock-free
// pointer loads; updates validate, persist, then swap the pointer, so a
// reader sees either the old or the new configuration in full.
type Store struct {
	current atomic.Pointer[Config]
	persist Persister

	// serializes updates; readers never take it
	mu sync.Mutex
}

// NewStore creates a store primed with the default configuration.
func NewStore(persist Persister) *Store {
	s := &Store{persist: persist}
	cfg := DefaultConfig()
	s.current.Store(&cfg)
	return s
}

// Restore replaces the defaults with the persisted configuration, if any.
// Called once at process start, before the store is shared.
func (s *Store) Restore(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	cfg, err := s.persist.LoadRateConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rate configuration: %w", err)
	}
	if cfg == nil {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("persisted rate configuration is invalid: %w", err)
	}
	s.current.Store(cfg)
	return nil
}

// Get returns the current configuration. The returned value must be treated
// as read-only; it may be shared with concurrent readers.
func (s *Store) Get() Config {
	return *s.current.Load()
}

// Update validates and atomically installs a new configuration. The update is
// written through to the persister before the swap so a crash between the two
// never loses an acknowledged update.
func (s *Store) Update(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	next := cfg.clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.SaveRateConfig(ctx, next); err != nil {
			return fmt.Errorf("failed to persist rate configuration: %w", err)
		}
	}
	s.current.Store(&next)
	return nil
}
