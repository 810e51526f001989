package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"musicapi/model"

	"github.com/redis/go-redis/v9"
)

// Report names used as cache keys.
const (
	ReportHighDanceability = "high-danceability"
	ReportLowEnergy        = "low-energy"
)

const (
	keyPrefix = "musicapi:tracks:report:"
	genKey    = keyPrefix + "gen"
)

// RankingCache stores the ranking reports as JSON strings in Redis.
//
// Reports live under a generation number. Invalidate bumps the generation,
// so a fill computed before a write lands under a key nobody reads.
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRankingCache returns a cache whose entries expire after ttl.
func NewRankingCache(client *redis.Client, ttl time.Duration) *RankingCache {
	return &RankingCache{client: client, ttl: ttl}
}

func reportKey(report string, gen int64) string {
	return keyPrefix + report + ":" + strconv.FormatInt(gen, 10)
}

// Get returns the cached report and the generation it was looked up in.
// ok is false on a miss; pass gen back to Set when filling.
func (c *RankingCache) Get(ctx context.Context, report string) ([]*model.Track, int64, bool, error) {
	gen, err := c.client.Get(ctx, genKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("failed to read report generation from Redis: %w", err)
	}

	raw, err := c.client.Get(ctx, reportKey(report, gen)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, false, nil
		}
		return nil, gen, false, fmt.Errorf("failed to read %s report from Redis: %w", report, err)
	}

	var tracks []*model.Track
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return nil, gen, false, fmt.Errorf("failed to unmarshal %s report: %w", report, err)
	}
	return tracks, gen, true, nil
}

// Set stores a report under the generation returned by the Get that missed.
func (c *RankingCache) Set(ctx context.Context, report string, gen int64, tracks []*model.Track) error {
	raw, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("failed to marshal %s report: %w", report, err)
	}
	if err := c.client.Set(ctx, reportKey(report, gen), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s report to Redis: %w", report, err)
	}
	return nil
}

// Invalidate retires every cached report by moving to a new generation.
func (c *RankingCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, genKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate ranking reports: %w", err)
	}
	return nil
}
