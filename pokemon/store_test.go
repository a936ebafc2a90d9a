package pokemon_test

import (
	"context"
	"github.com/denismitr/pokedex/pokeapi"
	"github.com/denismitr/pokedex/pokemon"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

type fetchFunc func(ctx context.Context, id int) (*pokeapi.Record, error)

func (f fetchFunc) FetchByID(ctx context.Context, id int) (*pokeapi.Record, error) {
	return f(ctx, id)
}

func TestStore_Fetch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := pokemon.NewStore(fetchFunc(func(ctx context.Context, id int) (*pokeapi.Record, error) {
			return &pokeapi.Record{ID: id, Name: "pikachu"}, nil
		}))

		st := s.Fetch(context.Background(), 25)

		assert.False(t, st.Loading)
		assert.Empty(t, st.Error)
		require.NotNil(t, st.Data)
		assert.Equal(t, "pikachu", st.Data.Name)
		assert.Equal(t, st, s.State())
	})

	t.Run("zero id loads the default", func(t *testing.T) {
		var requested int
		s := pokemon.NewStore(fetchFunc(func(ctx context.Context, id int) (*pokeapi.Record, error) {
			requested = id
			return &pokeapi.Record{ID: id, Name: "ditto"}, nil
		}))

		st := s.Fetch(context.Background(), 0)

		assert.Equal(t, pokemon.DefaultID, requested)
		assert.Equal(t, pokemon.DefaultID, st.ID)
	})

	t.Run("failure", func(t *testing.T) {
		s := pokemon.NewStore(fetchFunc(func(ctx context.Context, id int) (*pokeapi.Record, error) {
			return nil, errors.New("network down")
		}))

		st := s.Fetch(context.Background(), 4)

		assert.False(t, st.Loading)
		assert.Equal(t, pokemon.FailureMessage, st.Error)
		assert.Nil(t, st.Data)
	})

	t.Run("state is loading while the request is in flight", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		s := pokemon.NewStore(fetchFunc(func(ctx context.Context, id int) (*pokeapi.Record, error) {
			close(started)
			<-release
			return &pokeapi.Record{ID: id}, nil
		}))

		done := make(chan pokemon.State)
		go func() { done <- s.Fetch(context.Background(), 1) }()

		<-started
		st := s.State()
		assert.True(t, st.Loading)
		assert.Equal(t, 1, st.ID)

		close(release)
		assert.False(t, (<-done).Loading)
	})

	t.Run("stale result is discarded", func(t *testing.T) {
		slowStarted := make(chan struct{})
		releaseSlow := make(chan struct{})
		s := pokemon.NewStore(fetchFunc(func(ctx context.Context, id int) (*pokeapi.Record, error) {
			if id == 1 {
				close(slowStarted)
				<-releaseSlow
				return &pokeapi.Record{ID: 1, Name: "bulbasaur"}, nil
			}
			return &pokeapi.Record{ID: id, Name: "squirtle"}, nil
		}))

		slow := make(chan pokemon.State)
		go func() { slow <- s.Fetch(context.Background(), 1) }()
		<-slowStarted

		latest := s.Fetch(context.Background(), 7)
		require.NotNil(t, latest.Data)
		assert.Equal(t, "squirtle", latest.Data.Name)

		close(releaseSlow)
		stale := <-slow

		assert.Equal(t, 7, stale.ID)
		assert.Equal(t, "squirtle", stale.Data.Name)
		assert.Equal(t, "squirtle", s.State().Data.Name)
	})

	t.Run("failure after success keeps the previous record", func(t *testing.T) {
		fail := false
		s := pokemon.NewStore(fetchFunc(func(ctx context.Context, id int) (*pokeapi.Record, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return &pokeapi.Record{ID: id, Name: "charmander"}, nil
		}))

		s.Fetch(context.Background(), 4)
		fail = true
		st := s.Fetch(context.Background(), 5)

		assert.Equal(t, pokemon.FailureMessage, st.Error)
		require.NotNil(t, st.Data)
		assert.Equal(t, "charmander", st.Data.Name)
	})
}
