// Package pokemon holds the state of the creature currently shown in
// detail: loading, the loaded record, or a failure message.
package pokemon

import (
	"context"
	"github.com/denismitr/pokedex/pokeapi"
	"io"
	"log/slog"
	"sync"
)

// DefaultID is fetched when no id is given.
const DefaultID = 132

const FailureMessage = "could not load pokemon data"

type Fetcher interface {
	FetchByID(ctx context.Context, id int) (*pokeapi.Record, error)
}

type State struct {
	ID      int
	Loading bool
	Data    *pokeapi.Record
	Error   string
}

type Store struct {
	f      Fetcher
	logger *slog.Logger

	mu    sync.RWMutex
	state State
	seq   uint64
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(f Fetcher, opts ...Option) *Store {
	s := &Store{
		f:      f,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Fetch loads the record for id and returns the resulting state. When a
// newer Fetch started in the meantime its outcome wins and the state
// returned here is the current one, not this call's result.
func (s *Store) Fetch(ctx context.Context, id int) State {
	if id == 0 {
		id = DefaultID
	}

	seq := s.start(id)

	r, err := s.f.FetchByID(ctx, id)
	if err != nil {
		s.logger.Warn("could not load pokemon", "id", id, "error", err)
		return s.failure(seq)
	}

	return s.success(seq, r)
}

func (s *Store) start(id int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.state = State{ID: id, Loading: true, Data: s.state.Data}

	return s.seq
}

func (s *Store) success(seq uint64, r *pokeapi.Record) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq == s.seq {
		s.state.Loading = false
		s.state.Data = r
		s.state.Error = ""
	}

	return s.state
}

func (s *Store) failure(seq uint64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq == s.seq {
		s.state.Loading = false
		s.state.Error = FailureMessage
	}

	return s.state
}
