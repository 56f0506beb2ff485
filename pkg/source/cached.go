package source

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
)

// Cached keeps recently fetched checkpoints so pipelines working the same range share one fetch.
// Latest is never cached.
type Cached struct {
	Source
	cache *ttlcache.Cache[uint64, *checkpoint.Checkpoint]
}

// CacheOptions sizes the checkpoint cache. A zero TTL disables it; a zero Capacity leaves it unbounded.
type CacheOptions struct {
	TTL      time.Duration
	Capacity uint64
}

func NewCached(src Source, opts CacheOptions) *Cached {
	options := []ttlcache.Option[uint64, *checkpoint.Checkpoint]{
		ttlcache.WithTTL[uint64, *checkpoint.Checkpoint](opts.TTL),
		ttlcache.WithDisableTouchOnHit[uint64, *checkpoint.Checkpoint](),
	}
	if opts.Capacity > 0 {
		options = append(options, ttlcache.WithCapacity[uint64, *checkpoint.Checkpoint](opts.Capacity))
	}
	cache := ttlcache.New[uint64, *checkpoint.Checkpoint](options...)
	go cache.Start()
	return &Cached{Source: src, cache: cache}
}

func (c *Cached) Checkpoint(ctx context.Context, seq uint64) (*checkpoint.Checkpoint, error) {
	if item := c.cache.Get(seq); item != nil {
		return item.Value(), nil
	}
	cp, err := c.Source.Checkpoint(ctx, seq)
	if err != nil {
		return nil, err
	}
	c.cache.Set(seq, cp, ttlcache.DefaultTTL)
	return cp, nil
}

// Len reports the number of cached checkpoints.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Close stops the expiration loop.
func (c *Cached) Close() {
	c.cache.Stop()
}
