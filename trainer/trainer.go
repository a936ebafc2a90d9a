// Package trainer summarizes the stats of every scanned creature.
package trainer

import (
	"context"
	"github.com/denismitr/pokedex/ledger"
	"github.com/denismitr/pokedex/pokeapi"
	"github.com/pkg/errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
)

var ErrInvalidPayload = errors.New("scanned payload is not a pokemon id")

type Fetcher interface {
	FetchByID(ctx context.Context, id int) (*pokeapi.Record, error)
}

type Summary struct {
	// Average of every base stat of every resolved record, one decimal.
	Average      float64
	Resolved     int
	Records      []*pokeapi.Record
	StatAverages map[string]float64
	Skipped      []string
}

type Aggregator struct {
	f      Fetcher
	logger *slog.Logger
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func New(f Fetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		f:      f,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// ParseID accepts decimal positive integers only, surrounding blanks are
// ignored.
func ParseID(payload string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(ErrInvalidPayload, "%q", payload)
	}

	return id, nil
}

type lookup struct {
	value  string
	id     int
	record *pokeapi.Record
	err    error
}

// Summarize resolves every distinct scanned value concurrently and waits
// for all lookups before computing the averages. Payloads that are not
// ids or whose lookup fails are reported in Skipped.
func (a *Aggregator) Summarize(ctx context.Context, items []ledger.ScannedItem) Summary {
	sum := Summary{
		Records:      []*pokeapi.Record{},
		StatAverages: map[string]float64{},
		Skipped:      []string{},
	}

	seen := make(map[string]struct{}, len(items))
	var lookups []*lookup
	for _, item := range items {
		if _, ok := seen[item.Value]; ok {
			continue
		}
		seen[item.Value] = struct{}{}

		id, err := ParseID(item.Value)
		if err != nil {
			a.logger.Debug("skipping scanned payload", "value", item.Value)
			sum.Skipped = append(sum.Skipped, item.Value)
			continue
		}

		lookups = append(lookups, &lookup{value: item.Value, id: id})
	}

	var wg sync.WaitGroup
	wg.Add(len(lookups))
	for _, l := range lookups {
		go func(l *lookup) {
			defer wg.Done()
			l.record, l.err = a.f.FetchByID(ctx, l.id)
		}(l)
	}
	wg.Wait()

	var total, count int
	statTotals := map[string]int{}
	statCounts := map[string]int{}
	for _, l := range lookups {
		if l.err != nil || l.record == nil {
			a.logger.Warn("pokemon lookup failed", "id", l.id, "error", l.err)
			sum.Skipped = append(sum.Skipped, l.value)
			continue
		}

		sum.Records = append(sum.Records, l.record)
		for _, s := range l.record.Stats {
			total += s.BaseStat
			count++
			statTotals[s.Name] += s.BaseStat
			statCounts[s.Name]++
		}
	}

	sum.Resolved = len(sum.Records)
	sum.Average = mean(total, count)
	for name, t := range statTotals {
		sum.StatAverages[name] = mean(t, statCounts[name])
	}

	return sum
}

func mean(total, count int) float64 {
	if count == 0 {
		return 0
	}

	return math.Round(float64(total)/float64(count)*10) / 10
}
