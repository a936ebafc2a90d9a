// Package lru is a byte-bounded, sharded least-recently-used cache for
// encoded records keyed by their numeric id.
package lru

import (
	"encoding/binary"
	"github.com/cespare/xxhash/v2"
	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
	"sync"
)

var ErrIllegalCapacity = errors.New("illegal lru cache capacity")
var ErrInvalidSharding = errors.New("invalid sharding")

type OnEvict func(k uint64, v []byte)

type Cache struct {
	maxBytes uint64
	capacity uint64
	shards   []*lruShard
}

func NewCache(shards int, maxTotalBytes uint64, onEvict OnEvict) (*Cache, error) {
	if shards < 1 {
		return nil, ErrInvalidSharding
	}

	if maxTotalBytes < uint64(shards)*2 {
		return nil, errors.Wrapf(ErrIllegalCapacity, "%d bytes for %d shards", maxTotalBytes, shards)
	}

	c := Cache{
		maxBytes: maxTotalBytes,
		capacity: uint64(shards),
		shards:   make([]*lruShard, shards),
	}

	shardMaxBytes := maxTotalBytes / c.capacity
	for i := range c.shards {
		c.shards[i] = newLruShard(shardMaxBytes, onEvict)
	}

	return &c, nil
}

// Add value to cache under key and returns true if eviction happened
func (c *Cache) Add(key uint64, value []byte) bool {
	return c.getShard(key).add(key, value)
}

func (c *Cache) Get(key uint64) ([]byte, bool) {
	return c.getShard(key).get(key)
}

func (c *Cache) Remove(key uint64) {
	c.getShard(key).remove(key)
}

func (c *Cache) Purge() {
	var wg sync.WaitGroup

	wg.Add(len(c.shards))
	for i := range c.shards {
		go func(i int) {
			defer wg.Done()
			c.shards[i].purge()
		}(i)
	}

	wg.Wait()
}

func (c *Cache) Count() int {
	var count int
	for i := range c.shards {
		count += c.shards[i].len()
	}
	return count
}

func (c *Cache) Bytes() uint64 {
	var total uint64
	for i := range c.shards {
		total += c.shards[i].bytes()
	}
	return total
}

func (c *Cache) getShard(key uint64) *lruShard {
	bs := make([]byte, 8)
	binary.LittleEndian.PutUint64(bs, key)
	hash := xxhash.Sum64(bs)
	return c.shards[hash%c.capacity]
}

// Budget returns 1/divisor of the physical memory, capped at ceiling.
// When the amount of memory cannot be determined the ceiling is used.
func Budget(divisor, ceiling uint64) uint64 {
	total := memory.TotalMemory()
	if total == 0 || divisor == 0 {
		return ceiling
	}

	if b := total / divisor; b < ceiling {
		return b
	}

	return ceiling
}
