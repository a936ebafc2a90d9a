package ledger_test

import (
	"bytes"
	"context"
	"github.com/denismitr/pokedex/ledger"
	"github.com/denismitr/pokedex/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"strconv"
	"testing"
)

type failingStorage struct {
	getErr error
	setErr error
	sets   int
}

func (f *failingStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return nil, storage.ErrNotFound
}

func (f *failingStorage) Set(ctx context.Context, key string, value []byte) error {
	f.sets++
	return f.setErr
}

func TestLedger_Append(t *testing.T) {
	t.Run("ids follow insertion order", func(t *testing.T) {
		ctx := context.Background()
		l := ledger.New(storage.NewMemory())

		for i := 0; i < 5; i++ {
			l.Append(ctx, strconv.Itoa(i*10))
		}

		items := l.ReadAll(ctx)
		require.Len(t, items, 5)
		for i, item := range items {
			assert.Equal(t, i+1, item.ID)
			assert.Equal(t, strconv.Itoa(i*10), item.Value)
		}
	})

	t.Run("duplicates are kept", func(t *testing.T) {
		ctx := context.Background()
		l := ledger.New(storage.NewMemory())

		l.Append(ctx, "25")
		l.Append(ctx, "25")

		assert.Equal(t, []ledger.ScannedItem{{ID: 1, Value: "25"}, {ID: 2, Value: "25"}}, l.ReadAll(ctx))
	})

	t.Run("persisted format", func(t *testing.T) {
		ctx := context.Background()
		s := storage.NewMemory()
		l := ledger.New(s)

		l.Append(ctx, "25")
		l.Append(ctx, "abc")

		b, err := s.Get(ctx, ledger.DefaultKey)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":1,"value":"25"},{"id":2,"value":"abc"}]`, string(b))
	})

	t.Run("custom key", func(t *testing.T) {
		ctx := context.Background()
		s := storage.NewMemory()
		l := ledger.New(s, ledger.WithKey("other"))

		l.Append(ctx, "7")

		_, err := s.Get(ctx, ledger.DefaultKey)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.Get(ctx, "other")
		assert.NoError(t, err)
	})

	t.Run("save failure is logged not returned", func(t *testing.T) {
		var buf bytes.Buffer
		s := &failingStorage{setErr: errors.New("disk full")}
		l := ledger.New(s, ledger.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

		l.Append(context.Background(), "25")

		assert.Equal(t, 1, s.sets)
		assert.Contains(t, buf.String(), "disk full")
	})

	t.Run("invalid utf8 is replaced and logged", func(t *testing.T) {
		ctx := context.Background()
		var buf bytes.Buffer
		l := ledger.New(storage.NewMemory(), ledger.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

		l.Append(ctx, "\xff\xfe25")

		assert.Equal(t, []ledger.ScannedItem{{ID: 1, Value: "\uFFFD\uFFFD25"}}, l.ReadAll(ctx))
		assert.Contains(t, buf.String(), "not valid UTF-8")
	})

	t.Run("unreadable ledger restarts from one", func(t *testing.T) {
		ctx := context.Background()
		s := storage.NewMemory()
		require.NoError(t, s.Set(ctx, ledger.DefaultKey, []byte("{not json")))
		l := ledger.New(s)

		l.Append(ctx, "4")

		assert.Equal(t, []ledger.ScannedItem{{ID: 1, Value: "4"}}, l.ReadAll(ctx))
	})
}

func TestLedger_ReadAll(t *testing.T) {
	t.Run("empty storage", func(t *testing.T) {
		items := ledger.New(storage.NewMemory()).ReadAll(context.Background())
		require.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("read failure", func(t *testing.T) {
		l := ledger.New(&failingStorage{getErr: errors.New("io error")})
		items := l.ReadAll(context.Background())
		require.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("stored null", func(t *testing.T) {
		ctx := context.Background()
		s := storage.NewMemory()
		require.NoError(t, s.Set(ctx, ledger.DefaultKey, []byte("null")))

		items := ledger.New(s).ReadAll(ctx)
		require.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("round trip", func(t *testing.T) {
		ctx := context.Background()
		s := storage.NewMemory()
		l := ledger.New(s)
		values := []string{"132", "1", "hello", "25"}

		for _, v := range values {
			l.Append(ctx, v)
		}

		items := ledger.New(s).ReadAll(ctx)
		require.Len(t, items, len(values))
		for i, v := range values {
			assert.Equal(t, ledger.ScannedItem{ID: i + 1, Value: v}, items[i])
		}
	})
}

func TestLedger_Last(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(storage.NewMemory())

	_, ok := l.Last(ctx)
	assert.False(t, ok)

	l.Append(ctx, "1")
	l.Append(ctx, "4")

	last, ok := l.Last(ctx)
	require.True(t, ok)
	assert.Equal(t, ledger.ScannedItem{ID: 2, Value: "4"}, last)
}
