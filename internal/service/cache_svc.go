package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/pkg/hash"
)

const (
	UploadsCacheTTL = 10 * time.Minute
	TrendCacheTTL   = 30 * time.Minute
)

// CacheService provides a Redis cache-aside layer for YouTube responses and transcripts.
type CacheService struct {
	rdb *redis.Client

	// OnHit and OnMiss, when set, observe lookups.
	OnHit  func()
	OnMiss func()
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		return &CacheService{}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// NewCacheServiceWithClient wraps an existing client. A nil client disables caching.
func NewCacheServiceWithClient(rdb *redis.Client) *CacheService {
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// Get decodes the cached value for key into dst. It reports false on a miss
// or when caching is disabled.
func (c *CacheService) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.rdb == nil {
		return false, nil
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.miss()
		return false, nil
	}
	if err != nil {
		c.miss()
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.miss()
		return false, err
	}
	if c.OnHit != nil {
		c.OnHit()
	}
	return true, nil
}

// Set stores v under key for ttl.
func (c *CacheService) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *CacheService) miss() {
	if c.OnMiss != nil {
		c.OnMiss()
	}
}

func uploadsKey(channelID string, perChannel int) string {
	return fmt.Sprintf("uploads:%s:%d", channelID, perChannel)
}

func trendKey(parts ...string) string {
	return "trend:" + hash.Key(parts...)
}

func transcriptKey(videoID string, langs []string) string {
	return "transcript:" + videoID + ":" + hash.Key(langs...)
}

func languagesKey(videoID string) string {
	return "languages:" + videoID
}
