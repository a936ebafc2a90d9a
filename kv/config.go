package kv

import "time"

type PersistenceStrategy string

const (
	Async PersistenceStrategy = "async"
	Sync  PersistenceStrategy = "sync"
)

const defaultAutoVacuumMinSize uint64 = 1000

var defaultAutoVacuumIntervals = 10 * time.Minute
var defaultPersistenceIntervals = 1 * time.Second

type Config struct {
	PersistenceStrategy       PersistenceStrategy
	TruncateFileWhenOpen      bool
	AsyncPersistenceIntervals time.Duration
	DisableAutoVacuum         bool
	AutoVacuumOnlyOnClose     bool
	AutoVacuumMinSize         uint64
	AutoVacuumIntervals       time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.PersistenceStrategy == "" {
		cfg.PersistenceStrategy = Sync
	}

	if cfg.AsyncPersistenceIntervals <= 0 {
		cfg.AsyncPersistenceIntervals = defaultPersistenceIntervals
	}

	if cfg.AutoVacuumIntervals <= 0 {
		cfg.AutoVacuumIntervals = defaultAutoVacuumIntervals
	}

	if cfg.AutoVacuumMinSize == 0 {
		cfg.AutoVacuumMinSize = defaultAutoVacuumMinSize
	}
}
