// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests: an
// in-memory report store and page cache for unit tests, and PostgreSQL and
// Valkey helpers for integration tests, which are skipped when either is
// unavailable.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"lostfound/internal/config"
	"lostfound/internal/database"
	"lostfound/internal/models"
	"lostfound/internal/publicref"
	"lostfound/internal/store"
)

// memStore is an in-memory ReportStore with the same fill-once and
// newest-wins semantics as store.ReportStore.
type memStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*models.Report
	clock   time.Time

	findErr    error // returned by FindByID when set
	slugOwnErr error // returned by SlugOwner when set
	setSlugErr error // returned by SetSlug when set
}

func newMemStore() *memStore {
	return &memStore{
		reports: make(map[uuid.UUID]*models.Report),
		clock:   time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func cloneReport(r *models.Report) *models.Report {
	c := *r
	if r.PublicCode != nil {
		v := *r.PublicCode
		c.PublicCode = &v
	}
	if r.Slug != nil {
		v := *r.Slug
		c.Slug = &v
	}
	return &c
}

// newestFirst returns the stored reports ordered by creation, newest first.
func (m *memStore) newestFirst() []*models.Report {
	all := make([]*models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all
}

func (m *memStore) Create(_ context.Context, r *models.Report) (*models.Report, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reports {
		if existing.Fingerprint == r.Fingerprint {
			return cloneReport(existing), false, nil
		}
	}
	c := cloneReport(r)
	c.ID = uuid.New()
	m.clock = m.clock.Add(time.Second)
	c.CreatedAt, c.UpdatedAt = m.clock, m.clock
	m.reports[c.ID] = c
	return cloneReport(c), true, nil
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if r, ok := m.reports[id]; ok {
		return cloneReport(r), nil
	}
	return nil, nil
}

func (m *memStore) FindBySlug(_ context.Context, s string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.Slug != nil && *r.Slug == s {
			return cloneReport(r), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByPublicCode(_ context.Context, code string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.newestFirst() {
		if r.PublicCode != nil && *r.PublicCode == code {
			return cloneReport(r), nil
		}
	}
	return nil, nil
}

func (m *memStore) SetStatus(_ context.Context, id uuid.UUID, status models.ReportStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *memStore) SlugOwner(_ context.Context, s, excludeID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugOwnErr != nil {
		return "", m.slugOwnErr
	}
	for _, r := range m.newestFirst() {
		if r.Slug != nil && *r.Slug == s && r.ID.String() != excludeID {
			return r.ID.String(), nil
		}
	}
	return "", nil
}

func (m *memStore) SetPublicCode(_ context.Context, id, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.lookup(id)
	if err != nil {
		return "", err
	}
	if r.PublicCode == nil {
		r.PublicCode = &code
	}
	return *r.PublicCode, nil
}

func (m *memStore) SetSlug(_ context.Context, id, s string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setSlugErr != nil {
		return "", m.setSlugErr
	}
	r, err := m.lookup(id)
	if err != nil {
		return "", err
	}
	if r.Slug != nil {
		return *r.Slug, nil
	}
	for _, other := range m.reports {
		if other.Slug != nil && *other.Slug == s {
			return "", store.ErrConflict
		}
	}
	r.Slug = &s
	return s, nil
}

func (m *memStore) lookup(id string) (*models.Report, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	r, ok := m.reports[rid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

// stored returns a copy of the report as the store currently holds it.
func (m *memStore) stored(t *testing.T, id uuid.UUID) *models.Report {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		t.Fatalf("report %s not in store", id)
	}
	return cloneReport(r)
}

// memCache is an in-memory PageCache that counts operations.
type memCache struct {
	mu          sync.Mutex
	pages       map[string][]byte
	hits        int
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{pages: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, s string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.pages[s]
	if ok {
		c.hits++
	}
	return b, ok
}

func (c *memCache) Set(_ context.Context, s string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[s] = body
}

func (c *memCache) Invalidate(_ context.Context, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, s)
	c.invalidated = append(c.invalidated, s)
}

// memCacheLog is an in-memory CacheLog.
type memCacheLog struct {
	mu      sync.Mutex
	entries []store.CacheLogEntry
}

func (l *memCacheLog) Log(_ context.Context, reportID uuid.UUID, s, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, store.CacheLogEntry{
		ID:            int64(len(l.entries) + 1),
		ReportID:      reportID,
		Slug:          s,
		Reason:        reason,
		InvalidatedAt: time.Now(),
	})
}

func (l *memCacheLog) ForReport(_ context.Context, reportID uuid.UUID, limit int) ([]store.CacheLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []store.CacheLogEntry
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].ReportID == reportID {
			out = append(out, l.entries[i])
		}
	}
	return out, nil
}

// testConfig returns the configuration used by handler tests.
func testConfig() *config.Config {
	return &config.Config{
		Env:           "testing",
		PublicBaseURL: "https://lostfound.example",
		QRSize:        128,
	}
}

// newTestReports wires a Reports handler group to in-memory dependencies.
func newTestReports(t *testing.T) (*Reports, *memStore, *memCache) {
	t.Helper()
	st := newMemStore()
	pages := newMemCache()
	return NewReports(st, publicref.NewService(st), pages, &memCacheLog{}, testConfig()), st, pages
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "lostfound")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "lostfound")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "report:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}
