package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"tradepilot/internal/model"
)

// Cache keeps the last good candle series per symbol in redis so a cycle
// can keep evaluating while the provider is circuit-broken. Entries expire
// after two bar intervals: older data is worse than no data.
type Cache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewCache creates a candle cache. rdb may be nil, in which case every
// operation is a no-op miss (the cache is optional infrastructure).
func NewCache(rdb *goredis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(symbol, timeframe string) string {
	return fmt.Sprintf("tradepilot:candles:%s:%s", symbol, timeframe)
}

// Put stores a freshly fetched series. Failures are logged and swallowed:
// caching is best-effort and must never fail a cycle step.
func (c *Cache) Put(ctx context.Context, symbol, timeframe string, series model.Series) {
	if c.rdb == nil || len(series) == 0 {
		return
	}
	raw, err := json.Marshal(series)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(symbol, timeframe), raw, c.ttl).Err(); err != nil {
		log.Printf("[cache] put %s failed: %v", symbol, err)
	}
}

// Get returns the cached series for a symbol, or nil on a miss.
func (c *Cache) Get(ctx context.Context, symbol, timeframe string) model.Series {
	if c.rdb == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, cacheKey(symbol, timeframe)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Printf("[cache] get %s failed: %v", symbol, err)
		}
		return nil
	}
	var series model.Series
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil
	}
	return series
}
