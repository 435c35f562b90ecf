// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// cache_log.go records evictions of public report pages from Valkey so
// support staff can see when and why a page was refreshed.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CacheLogStore handles cache invalidation log operations.
type CacheLogStore struct {
	db *sql.DB
}

// NewCacheLogStore creates a new CacheLogStore.
func NewCacheLogStore(db *sql.DB) *CacheLogStore {
	return &CacheLogStore{db: db}
}

// Log records that the cached page for slug was evicted. Failures are
// logged and otherwise ignored.
func (s *CacheLogStore) Log(ctx context.Context, reportID uuid.UUID, slug, reason string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_invalidation_log (report_id, slug, reason)
		VALUES ($1, $2, $3)
	`, reportID, slug, reason)
	if err != nil {
		slog.Warn("failed to log cache invalidation",
			"report_id", reportID,
			"slug", slug,
			"reason", reason,
			"error", err,
		)
		return
	}
	slog.Debug("cache invalidation logged", "report_id", reportID, "slug", slug, "reason", reason)
}

// ForReport returns the most recent invalidations of one report's page,
// newest first.
func (s *CacheLogStore) ForReport(ctx context.Context, reportID uuid.UUID, limit int) ([]CacheLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, slug, reason, invalidated_at
		FROM cache_invalidation_log
		WHERE report_id = $1
		ORDER BY invalidated_at DESC, id DESC
		LIMIT $2
	`, reportID, limit)
	if err != nil {
		return nil, fmt.Errorf("query cache log: %w", err)
	}
	defer rows.Close()

	var entries []CacheLogEntry
	for rows.Next() {
		var e CacheLogEntry
		if err := rows.Scan(&e.ID, &e.ReportID, &e.Slug, &e.Reason, &e.InvalidatedAt); err != nil {
			return nil, fmt.Errorf("scan cache log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CacheLogEntry is a single page eviction.
type CacheLogEntry struct {
	ID            int64     `json:"-"`
	ReportID      uuid.UUID `json:"report_id"`
	Slug          string    `json:"slug"`
	Reason        string    `json:"reason"`
	InvalidatedAt time.Time `json:"invalidated_at"`
}
