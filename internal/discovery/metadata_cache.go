package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/riftline/predictarb/pkg/cache"
)

// tokenMetadata holds cached per-token CLOB metadata.
type tokenMetadata struct {
	TickSize  float64
	FetchedAt time.Time
}

// CachedMetadataClient wraps Client's tick-size fetch with a TTL cache, and
// exposes an in-place update for tick_size_change streaming events so a
// live change doesn't require a refetch.
type CachedMetadataClient struct {
	client *Client
	cache  cache.Cache
	ttl    time.Duration
}

// NewCachedMetadataClient constructs a CachedMetadataClient with a 24h TTL.
func NewCachedMetadataClient(client *Client, c cache.Cache) *CachedMetadataClient {
	return &CachedMetadataClient{client: client, cache: c, ttl: 24 * time.Hour}
}

// GetTickSize returns tokenID's tick size, serving from cache when fresh.
func (c *CachedMetadataClient) GetTickSize(ctx context.Context, tokenID string) (float64, error) {
	key := fmt.Sprintf("tick-size:%s", tokenID)
	if c.cache != nil {
		if cached, found := c.cache.Get(key); found {
			if meta, ok := cached.(*tokenMetadata); ok {
				MetadataCacheHitsTotal.Inc()
				return meta.TickSize, nil
			}
		}
		MetadataCacheMissesTotal.Inc()
	}

	start := time.Now()
	tickSize, err := c.client.FetchTickSize(ctx, tokenID)
	MetadataFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		MetadataFetchErrorsTotal.Inc()
		return 0, err
	}

	if c.cache != nil {
		c.cache.Set(key, &tokenMetadata{TickSize: tickSize, FetchedAt: time.Now()}, c.ttl)
	}
	return tickSize, nil
}

// UpdateTickSize overwrites tokenID's cached tick size in place. Called
// when a tick_size_change event arrives over the streaming connection; a
// cache miss is a no-op, the next GetTickSize call will fetch fresh.
func (c *CachedMetadataClient) UpdateTickSize(tokenID string, newTickSize float64) {
	if c.cache == nil {
		return
	}
	key := fmt.Sprintf("tick-size:%s", tokenID)
	if _, found := c.cache.Get(key); !found {
		return
	}
	c.cache.Set(key, &tokenMetadata{TickSize: newTickSize, FetchedAt: time.Now()}, c.ttl)
}
