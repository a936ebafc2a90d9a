// Package ledger keeps the append-only list of scanned payloads.
//
// The whole list lives under a single storage key and is rewritten on
// every append. Failures never reach the caller: a list that cannot be
// read is treated as empty and a failed save is only logged.
package ledger

import (
	"context"
	"encoding/json"
	"github.com/denismitr/pokedex/storage"
	"github.com/pkg/errors"
	"io"
	"log/slog"
	"unicode/utf8"
)

const DefaultKey = "scannedData"

type ScannedItem struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

type Ledger struct {
	s      storage.Storage
	key    string
	logger *slog.Logger
}

type Option func(*Ledger)

func WithKey(key string) Option {
	return func(l *Ledger) {
		l.key = key
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(s storage.Storage, opts ...Option) *Ledger {
	l := &Ledger{
		s:      s,
		key:    DefaultKey,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Append stores value as the newest item. Its id is the length of the
// list before the append plus one.
// Invalid UTF-8 bytes in value are stored as U+FFFD.
func (l *Ledger) Append(ctx context.Context, value string) {
	if !utf8.ValidString(value) {
		l.logger.Warn("scanned value is not valid UTF-8, invalid bytes are replaced", "key", l.key, "value", value)
	}

	items := l.ReadAll(ctx)
	items = append(items, ScannedItem{ID: len(items) + 1, Value: value})

	b, err := json.Marshal(items)
	if err != nil {
		l.logger.Error("could not encode scanned items", "key", l.key, "error", err)
		return
	}

	if err := l.s.Set(ctx, l.key, b); err != nil {
		l.logger.Error("could not save scanned item", "key", l.key, "value", value, "error", err)
	}
}

// ReadAll never returns nil.
func (l *Ledger) ReadAll(ctx context.Context) []ScannedItem {
	items, err := l.load(ctx)
	if err != nil {
		l.logger.Warn("could not read scanned items", "key", l.key, "error", err)
		return []ScannedItem{}
	}

	return items
}

func (l *Ledger) Last(ctx context.Context) (ScannedItem, bool) {
	items := l.ReadAll(ctx)
	if len(items) == 0 {
		return ScannedItem{}, false
	}

	return items[len(items)-1], true
}

func (l *Ledger) load(ctx context.Context) ([]ScannedItem, error) {
	b, err := l.s.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []ScannedItem{}, nil
		}

		return nil, err
	}

	items := []ScannedItem{}
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, errors.Wrapf(err, "could not decode %s", l.key)
	}

	// a stored JSON null decodes to a nil slice
	if items == nil {
		items = []ScannedItem{}
	}

	return items, nil
}
