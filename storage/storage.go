// Package storage defines the key/value capability the scan ledger
// persists through, together with its implementations.
package storage

import (
	"context"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("key not found")
var ErrInvalidKey = errors.New("invalid storage key")

type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
