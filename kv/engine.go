package kv

import (
	"bytes"
	"github.com/pkg/errors"
	"github.com/tidwall/btree"
	"sync"
	"time"
)

var ErrDatabaseAlreadyClosed = errors.New("database already closed")

const castPanic = "how could primary keys item not be of type *entry"

type engine struct {
	dbFile       string
	cfg          *Config
	persistence  *persistence
	pks          *btree.BTree
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.RWMutex
	staleEntries uint64
	closed       bool
}

func newEngine(dbFile string, cfg *Config) *engine {
	return &engine{
		dbFile: dbFile,
		pks:    btree.NewNonConcurrent(byKeys),
		stopCh: make(chan struct{}),
		cfg:    cfg,
	}
}

func (e *engine) init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dbFile == InMemory {
		return nil
	}

	p, err := newPersistence(e.dbFile, e.cfg.PersistenceStrategy, e.cfg.TruncateFileWhenOpen)
	if err != nil {
		return err
	}
	e.persistence = p

	if err := e.persistence.load(func(cmd command) error {
		cmd.apply(e)
		return nil
	}); err != nil {
		_ = e.persistence.close()
		return errors.Wrapf(err, "could not load %s", e.dbFile)
	}

	if e.cfg.PersistenceStrategy == Async {
		e.wg.Add(1)
		go e.asyncFlush(e.cfg.AsyncPersistenceIntervals)
	}

	if !e.cfg.DisableAutoVacuum && !e.cfg.AutoVacuumOnlyOnClose {
		e.wg.Add(1)
		go e.scheduleVacuum(e.cfg.AutoVacuumIntervals)
	}

	return nil
}

func (e *engine) asyncFlush(d time.Duration) {
	defer e.wg.Done()
	t := time.NewTicker(d)
	defer t.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-t.C:
			// a failed flush is retried on the next tick and on close
			_ = e.persistence.sync()
		}
	}
}

func (e *engine) scheduleVacuum(d time.Duration) {
	defer e.wg.Done()
	t := time.NewTicker(d)
	defer t.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-t.C:
			e.mu.Lock()
			if e.staleEntries >= e.cfg.AutoVacuumMinSize {
				if err := e.runVacuumUnderLock(); err == nil {
					e.staleEntries = 0
				}
			}
			e.mu.Unlock()
		}
	}
}

func (e *engine) runVacuumUnderLock() error {
	buf := &bytes.Buffer{}

	e.pks.Ascend(nil, func(i interface{}) bool {
		(&setCmd{ent: mustEntry(i)}).serialize(buf)
		return true
	})

	return e.persistence.writeAndSwap(buf)
}

func (e *engine) close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrDatabaseAlreadyClosed
	}
	e.closed = true
	e.mu.Unlock()

	close(e.stopCh)
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.persistence == nil {
		return nil
	}

	if !e.cfg.DisableAutoVacuum {
		if err := e.runVacuumUnderLock(); err != nil {
			_ = e.persistence.close()
			return err
		}
	}

	return e.persistence.close()
}

// commit writes cmds to the log and only then applies them to the index,
// so a failed write leaves the index untouched.
func (e *engine) commit(cmds []command) error {
	if len(cmds) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrDatabaseAlreadyClosed
	}

	if e.persistence != nil {
		if err := e.persistence.save(cmds); err != nil {
			return err
		}
	}

	for _, cmd := range cmds {
		cmd.apply(e)
	}

	return nil
}

func (e *engine) findByKey(key string) (*entry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	found := e.pks.Get(&entry{Key: key})
	if found == nil {
		return nil, false
	}

	return mustEntry(found), true
}

// a replaced entry leaves a dead record in the log, same as a removed one
func (e *engine) putUnderLock(ent *entry) {
	if prev := e.pks.Set(ent); prev != nil {
		e.staleEntries++
	}
}

func (e *engine) removeUnderLock(key string) {
	if prev := e.pks.Delete(&entry{Key: key}); prev != nil {
		e.staleEntries++
	}
}

func (e *engine) count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.pks.Len()
}

func mustEntry(i interface{}) *entry {
	ent, ok := i.(*entry)
	if !ok {
		panic(castPanic)
	}

	return ent
}
