package kv

import (
	"context"
	"github.com/pkg/errors"
)

var ErrKeyDoesNotExist = errors.New("key does not exist in DB")
var ErrKeyAlreadyExists = errors.New("key already exists")
var ErrEmptyKey = errors.New("key cannot be empty")
var ErrTxIsReadOnly = errors.New("transaction is read only")
var ErrTxAlreadyClosed = errors.New("transaction already committed or rolled back")
var ErrValueTooLarge = errors.New("key or value too large")

// Tx buffers its writes and hands them to the engine on Commit.
// Reads inside a transaction observe its own pending writes.
type Tx struct {
	e        *engine
	ctx      context.Context
	readOnly bool
	done     bool
	cmds     []command
	writes   map[string]*entry // nil marks a pending delete
}

func (x *Tx) Get(key string) ([]byte, error) {
	if err := x.ctx.Err(); err != nil {
		return nil, err
	}

	ent, ok := x.lookup(key)
	if !ok {
		return nil, errors.Wrapf(ErrKeyDoesNotExist, "%s", key)
	}

	return ent.clone().Value, nil
}

func (x *Tx) Has(key string) bool {
	_, ok := x.lookup(key)
	return ok
}

func (x *Tx) Insert(key string, data interface{}) error {
	if err := x.writable(); err != nil {
		return err
	}

	if _, ok := x.lookup(key); ok {
		return errors.Wrapf(ErrKeyAlreadyExists, "%s", key)
	}

	return x.put(key, data)
}

func (x *Tx) InsertOrReplace(key string, data interface{}) error {
	if err := x.writable(); err != nil {
		return err
	}

	return x.put(key, data)
}

func (x *Tx) Remove(keys ...string) error {
	if err := x.writable(); err != nil {
		return err
	}

	for _, k := range keys {
		if _, ok := x.lookup(k); !ok {
			return errors.Wrapf(ErrKeyDoesNotExist, "%s", k)
		}
	}

	for _, k := range keys {
		x.writes[k] = nil
		x.cmds = append(x.cmds, &deleteCmd{key: k})
	}

	return nil
}

// Count returns the number of keys visible to this transaction.
func (x *Tx) Count() int {
	count := x.e.count()
	for k, ent := range x.writes {
		_, committed := x.e.findByKey(k)
		switch {
		case ent == nil && committed:
			count--
		case ent != nil && !committed:
			count++
		}
	}

	return count
}

func (x *Tx) Commit() error {
	if x.done {
		return ErrTxAlreadyClosed
	}

	x.done = true
	if x.readOnly {
		return nil
	}

	if err := x.ctx.Err(); err != nil {
		return err
	}

	return x.e.commit(x.cmds)
}

func (x *Tx) Rollback() error {
	if x.done {
		return ErrTxAlreadyClosed
	}

	x.done = true
	x.cmds = nil
	x.writes = nil

	return nil
}

func (x *Tx) writable() error {
	if x.readOnly {
		return ErrTxIsReadOnly
	}

	if x.done {
		return ErrTxAlreadyClosed
	}

	return x.ctx.Err()
}

func (x *Tx) lookup(key string) (*entry, bool) {
	if ent, ok := x.writes[key]; ok {
		return ent, ent != nil
	}

	return x.e.findByKey(key)
}

func (x *Tx) put(key string, data interface{}) error {
	if key == "" {
		return ErrEmptyKey
	}

	v, err := serializeToValue(data)
	if err != nil {
		return err
	}

	if len(key) > maxBlobSize || len(v) > maxBlobSize {
		return errors.Wrapf(ErrValueTooLarge, "%s", key)
	}

	ent := newEntry(key, v).clone()
	x.writes[key] = ent
	x.cmds = append(x.cmds, &setCmd{ent: ent})

	return nil
}
