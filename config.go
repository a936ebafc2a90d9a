package pokedex

import (
	"github.com/denismitr/pokedex/kv"
	"github.com/denismitr/pokedex/ledger"
	"github.com/denismitr/pokedex/pokeapi"
	"io"
	"log/slog"
	"time"
)

const (
	defaultCacheShards = 16
	defaultCacheCeil   = 16 << 20
)

type Config struct {
	// StorageKey is the key the scanned items are persisted under.
	StorageKey     string
	APIBaseURL     string
	RequestTimeout time.Duration
	// CacheMaxBytes bounds the response cache, defaults to a share of
	// the system memory.
	CacheMaxBytes uint64
	CacheShards   int
	Persistence   kv.PersistenceStrategy
	Logger        *slog.Logger
}

func (cfg *Config) applyDefaults() {
	if cfg.StorageKey == "" {
		cfg.StorageKey = ledger.DefaultKey
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = pokeapi.DefaultBaseURL
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = pokeapi.DefaultTimeout
	}

	if cfg.CacheShards == 0 {
		cfg.CacheShards = defaultCacheShards
	}

	if cfg.Persistence == "" {
		cfg.Persistence = kv.Sync
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func resolveConfig(cfgs []*Config) *Config {
	cfg := &Config{}
	if len(cfgs) > 0 && cfgs[0] != nil {
		cp := *cfgs[0]
		cfg = &cp
	}
	cfg.applyDefaults()

	return cfg
}
