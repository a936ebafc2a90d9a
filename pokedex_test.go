package pokedex_test

import (
	"context"
	"fmt"
	"github.com/denismitr/pokedex"
	"github.com/denismitr/pokedex/kv"
	"github.com/denismitr/pokedex/ledger"
	"github.com/denismitr/pokedex/pokeapi"
	"github.com/denismitr/pokedex/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

type fakeFetcher map[int]*pokeapi.Record

func (f fakeFetcher) FetchByID(ctx context.Context, id int) (*pokeapi.Record, error) {
	if r, ok := f[id]; ok {
		return r, nil
	}
	return nil, errors.Wrapf(pokeapi.ErrNotFound, "%d", id)
}

func fixtures() fakeFetcher {
	return fakeFetcher{
		1:   {ID: 1, Name: "bulbasaur", Stats: []pokeapi.Stat{{Name: "hp", BaseStat: 45}}},
		25:  {ID: 25, Name: "pikachu", Stats: []pokeapi.Stat{{Name: "hp", BaseStat: 35}}},
		132: {ID: 132, Name: "ditto", Stats: []pokeapi.Stat{{Name: "hp", BaseStat: 48}}},
	}
}

func TestPokedex_Scan(t *testing.T) {
	t.Run("valid code", func(t *testing.T) {
		p := pokedex.New(storage.NewMemory(), fixtures())

		id, err := p.Scan(context.Background(), "25")
		require.NoError(t, err)
		assert.Equal(t, 25, id)
		assert.Equal(t, []ledger.ScannedItem{{ID: 1, Value: "25"}}, p.Scanned(context.Background()))
	})

	t.Run("invalid code is still recorded", func(t *testing.T) {
		p := pokedex.New(storage.NewMemory(), fixtures())

		_, err := p.Scan(context.Background(), "hello")
		assert.ErrorIs(t, err, pokedex.ErrInvalidCode)
		assert.Equal(t, []ledger.ScannedItem{{ID: 1, Value: "hello"}}, p.Scanned(context.Background()))
	})

	t.Run("custom storage key", func(t *testing.T) {
		ctx := context.Background()
		s := storage.NewMemory()
		p := pokedex.New(s, fixtures(), &pokedex.Config{StorageKey: "scans"})

		_, err := p.Scan(ctx, "1")
		require.NoError(t, err)

		_, err = s.Get(ctx, "scans")
		assert.NoError(t, err)
	})
}

func TestPokedex_LastScanned(t *testing.T) {
	ctx := context.Background()
	p := pokedex.New(storage.NewMemory(), fixtures())

	_, err := p.LastScanned(ctx)
	assert.ErrorIs(t, err, pokedex.ErrNothingScanned)

	_, _ = p.Scan(ctx, "132")
	r, err := p.LastScanned(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ditto", r.Name)

	_, _ = p.Scan(ctx, "garbage")
	_, err = p.LastScanned(ctx)
	assert.ErrorIs(t, err, pokedex.ErrInvalidCode)

	_, _ = p.Scan(ctx, "999")
	_, err = p.LastScanned(ctx)
	assert.ErrorIs(t, err, pokeapi.ErrNotFound)
}

func TestPokedex_Details(t *testing.T) {
	p := pokedex.New(storage.NewMemory(), fixtures())

	st := p.Details(context.Background(), 0)
	require.NotNil(t, st.Data)
	assert.Equal(t, "ditto", st.Data.Name)
	assert.Equal(t, st, p.DetailsState())

	st = p.Details(context.Background(), 404)
	assert.Equal(t, "could not load pokemon data", st.Error)
}

func TestPokedex_Trainer(t *testing.T) {
	ctx := context.Background()
	p := pokedex.New(storage.NewMemory(), fixtures())

	sum := p.Trainer(ctx)
	assert.Equal(t, 0.0, sum.Average)
	assert.Equal(t, 0, sum.Resolved)

	for _, code := range []string{"25", "abc", "1", "25"} {
		_, _ = p.Scan(ctx, code)
	}

	sum = p.Trainer(ctx)
	assert.Equal(t, 2, sum.Resolved)
	assert.Equal(t, 40.0, sum.Average)
	assert.Equal(t, []string{"abc"}, sum.Skipped)
}

func TestPokedex_Catalog(t *testing.T) {
	p := pokedex.New(storage.NewMemory(), fixtures())
	assert.Len(t, p.Catalog(), 5)
}

func TestOpen(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		id := strings.TrimPrefix(r.URL.Path, "/pokemon/")
		if id != "25" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, `{"id":25,"name":"pikachu","stats":[{"base_stat":35,"stat":{"name":"hp"}},{"base_stat":55,"stat":{"name":"attack"}}]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pokedex.db")
	cfg := &pokedex.Config{APIBaseURL: srv.URL, CacheMaxBytes: 1 << 16}

	p, closer, err := pokedex.Open(path, cfg)
	require.NoError(t, err)

	_, err = p.Scan(ctx, "25")
	require.NoError(t, err)

	sum := p.Trainer(ctx)
	assert.Equal(t, 45.0, sum.Average)

	r, err := p.LastScanned(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pikachu", r.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second lookup is cached")

	require.NoError(t, closer())

	p, closer, err = pokedex.Open(path, cfg)
	require.NoError(t, err)
	defer closer()

	assert.Equal(t, []ledger.ScannedItem{{ID: 1, Value: "25"}}, p.Scanned(ctx))
}

func TestOpen_InMemory(t *testing.T) {
	p, closer, err := pokedex.Open(kv.InMemory, &pokedex.Config{Persistence: kv.Async})
	require.NoError(t, err)
	defer closer()

	_, err = p.Scan(context.Background(), "7")
	require.NoError(t, err)
	assert.Len(t, p.Scanned(context.Background()), 1)
}
