// Package headercache caches block headers by height for the persistent
// blockchain stores.
//
// Heights are reused after a rollback, so every mutation of the main chain
// invalidates the whole cache. Lookups that raced with an invalidation must
// not write their result back, which is what the generation counter guards:
//
//	op := cache.Begin(height)
//	if header := op.Get(); header != nil {
//	    return header
//	}
//	header := readFromDisk(height)
//	op.Set(header)
package headercache

import (
	"sync/atomic"
	"time"

	"github.com/bsv-blockchain/chainsync/model"
	"github.com/jellydator/ttlcache/v3"
)

type Cache struct {
	ttlCache   *ttlcache.Cache[uint32, *model.BlockHeader]
	ttl        time.Duration
	generation atomic.Uint64
	stopped    atomic.Bool
}

// New creates a started cache. A ttl of 0 disables caching.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		ttlCache: ttlcache.New[uint32, *model.BlockHeader](
			ttlcache.WithTTL[uint32, *model.BlockHeader](ttl),
			ttlcache.WithDisableTouchOnHit[uint32, *model.BlockHeader](),
		),
		ttl: ttl,
	}

	go c.ttlCache.Start()

	return c
}

func (c *Cache) Begin(height uint32) *Operation {
	return &Operation{
		cache:      c,
		height:     height,
		generation: c.generation.Load(),
	}
}

// DeleteAll clears the cache and invalidates in-flight operations.
func (c *Cache) DeleteAll() {
	c.ttlCache.DeleteAll()
	c.generation.Add(1)
}

func (c *Cache) Len() int {
	return c.ttlCache.Len()
}

// Stop halts the expiry goroutine, it is safe to call more than once.
func (c *Cache) Stop() {
	if c.stopped.CompareAndSwap(false, true) {
		c.ttlCache.Stop()
	}
}

type Operation struct {
	cache      *Cache
	height     uint32
	generation uint64
}

func (o *Operation) Get() *model.BlockHeader {
	if o.cache.ttl <= 0 {
		return nil
	}

	item := o.cache.ttlCache.Get(o.height)
	if item == nil {
		return nil
	}

	return item.Value()
}

// Set caches header unless the cache was invalidated since Begin.
func (o *Operation) Set(header *model.BlockHeader) bool {
	if o.cache.ttl <= 0 || header == nil {
		return false
	}

	if o.generation != o.cache.generation.Load() {
		return false
	}

	o.cache.ttlCache.Set(o.height, header, ttlcache.DefaultTTL)

	return true
}
