// Package kv is a small embedded key/value database. Every committed
// transaction is appended to a RESP encoded log which is replayed on open
// and compacted by vacuum.
package kv

import (
	"context"
	"github.com/pkg/errors"
	"sync"
)

// InMemory opens a database that never touches the disk.
const InMemory = ":memory:"

type DB struct {
	e      *engine
	mu     sync.RWMutex
	closed bool
}

type UserCallback func(tx *Tx) error

type Closer func() error

func NullCloser() error { return nil }

func Open(path string, cfgs ...*Config) (*DB, Closer, error) {
	cfg := &Config{}
	if len(cfgs) > 0 && cfgs[0] != nil {
		cp := *cfgs[0]
		cfg = &cp
	}
	cfg.applyDefaults()

	e := newEngine(path, cfg)
	if err := e.init(); err != nil {
		return nil, NullCloser, err
	}

	db := &DB{e: e}

	return db, db.close, nil
}

func (db *DB) close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseAlreadyClosed
	}

	db.closed = true
	return db.e.close()
}

func (db *DB) begin(ctx context.Context, readOnly bool) (*Tx, error) {
	if db.closed {
		return nil, ErrDatabaseAlreadyClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx := Tx{
		e:        db.e,
		ctx:      ctx,
		readOnly: readOnly,
	}

	if !readOnly {
		tx.writes = make(map[string]*entry)
	}

	return &tx, nil
}

func (db *DB) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.e.count()
}

// Get is a shorthand for a single read inside View.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := db.View(ctx, func(tx *Tx) error {
		var err error
		v, err = tx.Get(key)
		return err
	})

	return v, err
}

func (db *DB) View(ctx context.Context, cb UserCallback) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tx, err := db.begin(ctx, true)
	if err != nil {
		return err
	}

	return runTx(tx, cb, "db read failed. rolled back")
}

func (db *DB) Update(ctx context.Context, cb UserCallback) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.begin(ctx, false)
	if err != nil {
		return err
	}

	return runTx(tx, cb, "db write failed. rolled back")
}

func runTx(tx *Tx, cb UserCallback, failure string) error {
	if err := cb(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, ErrTxAlreadyClosed) {
			return errors.Wrap(err, rbErr.Error())
		}

		return errors.Wrap(err, failure)
	}

	if err := tx.Commit(); err != nil && !errors.Is(err, ErrTxAlreadyClosed) {
		return err
	}

	return nil
}
