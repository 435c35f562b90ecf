// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"lostfound/internal/models"
)

var (
	// ErrNotFound is returned by writes that target a report which does not exist.
	ErrNotFound = errors.New("store: report not found")

	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("store: unique constraint violated")
)

const (
	// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
	uniqueViolation = "23505"

	fingerprintConstraint = "reports_fingerprint_key"
)

// ReportStore handles all report-related database operations for both lost
// and found reports in the unified reports table.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore creates a new ReportStore with the given database connection.
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

const reportColumns = `id, kind, status, title, description, city, state_code,
	transport_type, transport_type_other, place_type, place_type_other,
	contact_email, event_date, public_code, slug, fingerprint, created_at, updated_at`

// scanReport scans a row into a Report struct.
func scanReport(scanner interface{ Scan(...any) error }) (*models.Report, error) {
	var r models.Report
	err := scanner.Scan(
		&r.ID, &r.Kind, &r.Status, &r.Title, &r.Description, &r.City, &r.StateCode,
		&r.TransportType, &r.TransportTypeOther, &r.PlaceType, &r.PlaceTypeOther,
		&r.ContactEmail, &r.EventDate, &r.PublicCode, &r.Slug, &r.Fingerprint,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// findOne runs a single-row report query. Returns nil if no row matches.
func (s *ReportStore) findOne(ctx context.Context, op, query string, args ...any) (*models.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// Create inserts a new report. If a report with the same fingerprint already
// exists (a resubmitted form, or two requests racing), the existing report is
// returned instead and created is false.
func (s *ReportStore) Create(ctx context.Context, r *models.Report) (*models.Report, bool, error) {
	if r.Status == "" {
		r.Status = models.ReportStatusOpen
	}

	created, err := scanReport(s.db.QueryRowContext(ctx, `
		INSERT INTO reports (kind, status, title, description, city, state_code,
		                     transport_type, transport_type_other, place_type, place_type_other,
		                     contact_email, event_date, public_code, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+reportColumns,
		r.Kind, r.Status, r.Title, r.Description, r.City, r.StateCode,
		r.TransportType, r.TransportTypeOther, r.PlaceType, r.PlaceTypeOther,
		r.ContactEmail, r.EventDate, r.PublicCode, r.Fingerprint,
	))
	if err == nil {
		return created, true, nil
	}

	if isUniqueViolation(err, fingerprintConstraint) {
		existing, findErr := s.FindByFingerprint(ctx, r.Fingerprint)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	return nil, false, fmt.Errorf("create report: %w", err)
}

// FindByID retrieves a report by its UUID. Returns nil if not found.
func (s *ReportStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return s.findOne(ctx, "find report by id",
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
}

// FindBySlug retrieves a report by its public slug. Returns nil if not found.
func (s *ReportStore) FindBySlug(ctx context.Context, slug string) (*models.Report, error) {
	return s.findOne(ctx, "find report by slug",
		`SELECT `+reportColumns+` FROM reports WHERE slug = $1`, slug)
}

// FindByPublicCode retrieves the most recently created report carrying the
// given public code. Codes are not unique, so older reports sharing a code
// are only reachable by id or slug.
func (s *ReportStore) FindByPublicCode(ctx context.Context, code string) (*models.Report, error) {
	return s.findOne(ctx, "find report by public code",
		`SELECT `+reportColumns+` FROM reports WHERE public_code = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, code)
}

// FindByFingerprint retrieves a report by its submission fingerprint.
func (s *ReportStore) FindByFingerprint(ctx context.Context, fingerprint string) (*models.Report, error) {
	return s.findOne(ctx, "find report by fingerprint",
		`SELECT `+reportColumns+` FROM reports WHERE fingerprint = $1`, fingerprint)
}

// SlugOwner returns the id of the most recently created report other than
// excludeID that owns slug, or "" if no other report does.
// An excludeID that is not a UUID matches no report, so nothing is excluded.
func (s *ReportStore) SlugOwner(ctx context.Context, slug, excludeID string) (string, error) {
	exclude, err := uuid.Parse(excludeID)
	if err != nil {
		exclude = uuid.Nil
	}

	var id uuid.UUID
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM reports
		WHERE slug = $1 AND id <> $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, slug, exclude).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("slug owner: %w", err)
	}
	return id.String(), nil
}

// SetPublicCode stores code on the report if it has none yet and returns the
// code the report now holds. An existing code is never overwritten.
func (s *ReportStore) SetPublicCode(ctx context.Context, id, code string) (string, error) {
	return s.fillOnce(ctx, "public_code", id, code)
}

// SetSlug stores slug on the report if it has none yet and returns the slug
// the report now holds. Returns ErrConflict if another report owns the slug.
func (s *ReportStore) SetSlug(ctx context.Context, id, slug string) (string, error) {
	return s.fillOnce(ctx, "slug", id, slug)
}

// fillOnce sets a nullable column only while it is still NULL. When the
// column is already set, the stored value is returned unchanged.
func (s *ReportStore) fillOnce(ctx context.Context, column, id, value string) (string, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return "", ErrNotFound
	}

	var stored string
	err = s.db.QueryRowContext(ctx, `
		UPDATE reports SET `+column+` = $1, updated_at = NOW()
		WHERE id = $2 AND `+column+` IS NULL
		RETURNING `+column,
		value, rid,
	).Scan(&stored)
	if err == nil {
		return stored, nil
	}
	if isUniqueViolation(err, "") {
		return "", fmt.Errorf("set %s %q: %w", column, value, ErrConflict)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("set %s: %w", column, err)
	}

	// Nothing updated: either the report is gone or the column is set.
	var current sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT `+column+` FROM reports WHERE id = $1`, rid,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", column, err)
	}
	if !current.Valid {
		return "", fmt.Errorf("set %s: column still empty after update", column)
	}
	return current.String, nil
}

// SetStatus updates the status of a report.
func (s *ReportStore) SetStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("set report status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set report status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
