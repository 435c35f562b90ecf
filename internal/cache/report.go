// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// report.go caches the rendered JSON of public report pages in Valkey,
// keyed by slug. Slugs never change once assigned, so entries only need
// invalidating when the report itself changes.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// reportKeyPrefix is the Valkey key prefix for cached report pages.
	reportKeyPrefix = "report:"

	// DefaultReportTTL is how long a rendered report stays cached.
	DefaultReportTTL = 5 * time.Minute
)

// ReportCache manages public report caching in Valkey. Errors are logged
// and treated as misses; the cache is never the source of truth.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache creates a new report cache backed by the given Valkey client.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl == 0 {
		ttl = DefaultReportTTL
	}
	return &ReportCache{client: client, ttl: ttl}
}

// Key returns the Valkey key for a report slug.
func Key(slug string) string {
	return reportKeyPrefix + slug
}

// Get retrieves the cached body for a slug. The bool is false on a miss.
func (rc *ReportCache) Get(ctx context.Context, slug string) ([]byte, bool) {
	val, err := rc.client.Get(ctx, Key(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("report cache get error", "slug", slug, "error", err)
		return nil, false
	}
	slog.Debug("report cache hit", "slug", slug)
	return val, true
}

// Set stores the rendered body for a slug with the configured TTL.
func (rc *ReportCache) Set(ctx context.Context, slug string, body []byte) {
	if err := rc.client.Set(ctx, Key(slug), body, rc.ttl).Err(); err != nil {
		slog.Warn("report cache set error", "slug", slug, "error", err)
	}
}

// Invalidate removes a single report from the cache.
func (rc *ReportCache) Invalidate(ctx context.Context, slug string) {
	if err := rc.client.Del(ctx, Key(slug)).Err(); err != nil {
		slog.Warn("report cache invalidate error", "slug", slug, "error", err)
		return
	}
	slog.Debug("report cache invalidated", "slug", slug)
}

// InvalidateAll removes every cached report by scanning for the prefix.
func (rc *ReportCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := rc.client.Scan(ctx, cursor, reportKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("report cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("report cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("report cache cleared", "deleted", deleted)
	}
}
