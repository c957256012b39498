package image

import (
	"fmt"
	"slices"
	"sync"

	"plankton/pkg/config"
	"plankton/pkg/errs"
	"plankton/pkg/log"
	"plankton/pkg/objectstore"
	"plankton/pkg/objectstore/sqlite"
)

// Constructor builds a Provider from configuration.
type Constructor func(cfg *config.Config) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{
		config.BackendPithos: newStoreProvider,
	}
)

// Register makes a backend available under key. It panics on a duplicate key.
func Register(key string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[key]; dup {
		panic("image: Register called twice for backend " + key)
	}
	registry[key] = ctor
}

// Backends returns the registered backend keys, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Open resolves the configured backend and constructs its Provider.
func Open(cfg *config.Config) (Provider, error) {
	registryMu.RLock()
	ctor, ok := registry[cfg.Backend]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", errs.ErrUnknownBackend, cfg.Backend, Backends())
	}

	provider, err := ctor(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", cfg.Backend).Msg("Image backend ready")
	return provider, nil
}

// storeProvider lends pooled store connections to per-user StoreBackends.
type storeProvider struct {
	cfg   *config.Config
	store *sqlite.Store
	pool  *objectstore.Pool
}

func newStoreProvider(cfg *config.Config) (Provider, error) {
	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	return &storeProvider{
		cfg:   cfg,
		store: store,
		pool:  store.Pool(cfg.PoolSize),
	}, nil
}

func (p *storeProvider) Open(user string) (Backend, error) {
	conn, err := p.pool.Get()
	if err != nil {
		return nil, err
	}
	return NewStoreBackend(user, conn, p.cfg), nil
}

func (p *storeProvider) Close() error {
	if err := p.pool.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close store connections")
	}
	return p.store.Close()
}
