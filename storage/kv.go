package storage

import (
	"context"
	"github.com/denismitr/pokedex/kv"
	"github.com/pkg/errors"
)

// KV persists values in the embedded log structured database.
type KV struct {
	db    *kv.DB
	close kv.Closer
}

func OpenKV(path string, cfg *kv.Config) (*KV, error) {
	db, closer, err := kv.Open(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open kv storage at %s", path)
	}

	return &KV{db: db, close: closer}, nil
}

func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.db.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyDoesNotExist) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return v, nil
}

func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	return s.db.Update(ctx, func(tx *kv.Tx) error {
		return tx.InsertOrReplace(key, value)
	})
}

func (s *KV) Close() error {
	return s.close()
}
