// Package pokedex ties the scan ledger, the PokeAPI client, the details
// store and the trainer summary together behind one handle.
package pokedex

import (
	"context"
	"github.com/denismitr/pokedex/catalog"
	"github.com/denismitr/pokedex/internal/lru"
	"github.com/denismitr/pokedex/kv"
	"github.com/denismitr/pokedex/ledger"
	"github.com/denismitr/pokedex/pokeapi"
	"github.com/denismitr/pokedex/pokemon"
	"github.com/denismitr/pokedex/storage"
	"github.com/denismitr/pokedex/trainer"
	"github.com/pkg/errors"
)

var (
	ErrInvalidCode    = errors.New("scanned code is not a valid pokemon id")
	ErrNothingScanned = errors.New("nothing has been scanned yet")
)

type Fetcher interface {
	FetchByID(ctx context.Context, id int) (*pokeapi.Record, error)
}

type Closer func() error

func NullCloser() error { return nil }

type Pokedex struct {
	ledger  *ledger.Ledger
	f       Fetcher
	details *pokemon.Store
	trainer *trainer.Aggregator
}

// Open keeps scanned items in the kv database at path (kv.InMemory for a
// throwaway one) and fetches records from PokeAPI.
func Open(path string, cfgs ...*Config) (*Pokedex, Closer, error) {
	cfg := resolveConfig(cfgs)

	s, err := storage.OpenKV(path, &kv.Config{PersistenceStrategy: cfg.Persistence})
	if err != nil {
		return nil, NullCloser, err
	}

	maxBytes := cfg.CacheMaxBytes
	if maxBytes == 0 {
		maxBytes = lru.Budget(64, defaultCacheCeil)
	}

	cache, err := lru.NewCache(cfg.CacheShards, maxBytes, nil)
	if err != nil {
		_ = s.Close()
		return nil, NullCloser, errors.Wrap(err, "could not create response cache")
	}

	client := pokeapi.New(
		pokeapi.WithBaseURL(cfg.APIBaseURL),
		pokeapi.WithTimeout(cfg.RequestTimeout),
		pokeapi.WithCache(cache),
		pokeapi.WithLogger(cfg.Logger),
	)

	return New(s, client, cfg), s.Close, nil
}

func New(s storage.Storage, f Fetcher, cfgs ...*Config) *Pokedex {
	cfg := resolveConfig(cfgs)

	return &Pokedex{
		ledger:  ledger.New(s, ledger.WithKey(cfg.StorageKey), ledger.WithLogger(cfg.Logger)),
		f:       f,
		details: pokemon.NewStore(f, pokemon.WithLogger(cfg.Logger)),
		trainer: trainer.New(f, trainer.WithLogger(cfg.Logger)),
	}
}

// Scan records the payload, valid or not, and returns the id it encodes.
func (p *Pokedex) Scan(ctx context.Context, payload string) (int, error) {
	p.ledger.Append(ctx, payload)

	id, err := trainer.ParseID(payload)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidCode, "%q", payload)
	}

	return id, nil
}

func (p *Pokedex) Scanned(ctx context.Context) []ledger.ScannedItem {
	return p.ledger.ReadAll(ctx)
}

func (p *Pokedex) LastScanned(ctx context.Context) (*pokeapi.Record, error) {
	last, ok := p.ledger.Last(ctx)
	if !ok {
		return nil, ErrNothingScanned
	}

	id, err := trainer.ParseID(last.Value)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidCode, "%q", last.Value)
	}

	return p.f.FetchByID(ctx, id)
}

// Details loads id into the details store, 0 means pokemon.DefaultID.
func (p *Pokedex) Details(ctx context.Context, id int) pokemon.State {
	return p.details.Fetch(ctx, id)
}

func (p *Pokedex) DetailsState() pokemon.State {
	return p.details.State()
}

func (p *Pokedex) Trainer(ctx context.Context) trainer.Summary {
	return p.trainer.Summarize(ctx, p.ledger.ReadAll(ctx))
}

func (p *Pokedex) Catalog() []catalog.Entry {
	return catalog.All()
}
