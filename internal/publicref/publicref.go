// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package publicref assigns the public-facing identifiers of a report: the
// 5-digit reference code and the slug of its public page. Both are computed
// lazily, persisted once, and never recomputed while a stored value exists.
//
// Every request handler that needs either value goes through Service so the
// single-write behavior holds everywhere.
package publicref

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"lostfound/internal/models"
	"lostfound/internal/refcode"
	"lostfound/internal/slug"
)

var (
	// ErrInvalidID is returned when a record has no internal identifier.
	ErrInvalidID = errors.New("publicref: empty internal id")

	// ErrLookup wraps failures of the slug collision check. No slug is
	// persisted when the check fails.
	ErrLookup = errors.New("publicref: slug lookup failed")

	// ErrPersist wraps failures of the final store write.
	ErrPersist = errors.New("publicref: persist failed")
)

// shortIDLength is the length of the identifier-derived disambiguator.
const shortIDLength = 8

// Store is the slice of the report store that publicref reads and writes.
type Store interface {
	// SlugOwner returns the id of the most recently created record other
	// than excludeID whose slug equals s, or "" if there is none.
	SlugOwner(ctx context.Context, s, excludeID string) (string, error)

	// SetPublicCode stores code for the record unless one is already
	// stored, and returns the value the store now holds.
	SetPublicCode(ctx context.Context, id, code string) (string, error)

	// SetSlug stores s for the record unless one is already stored, and
	// returns the value the store now holds.
	SetSlug(ctx context.Context, id, s string) (string, error)
}

// Record is the snapshot of a report that publicref needs. It may be
// slightly stale; the store is the arbiter of what is actually saved.
type Record struct {
	InternalID string
	PublicCode string
	Slug       string
	Fields     slug.Fields
}

// RecordFromReport builds a Record from a stored report.
func RecordFromReport(r *models.Report) Record {
	rec := Record{
		InternalID: r.ID.String(),
		Fields: slug.Fields{
			Title:              r.Title,
			City:               r.City,
			StateCode:          r.StateCode,
			TransportType:      r.TransportType,
			TransportTypeOther: r.TransportTypeOther,
			PlaceType:          r.PlaceType,
			PlaceTypeOther:     r.PlaceTypeOther,
		},
	}
	if r.PublicCode != nil {
		rec.PublicCode = *r.PublicCode
	}
	if r.Slug != nil {
		rec.Slug = *r.Slug
	}
	return rec
}

// Service ties the pure code and slug builders to the store.
type Service struct {
	store Store
}

// NewService creates a Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// DeriveCode returns the public reference code for an internal id without
// touching the store.
func DeriveCode(internalID string) string {
	return refcode.Derive(internalID)
}

// BuildSlugCandidate returns the normalized slug for the given fields
// without touching the store.
func BuildSlugCandidate(f slug.Fields) string {
	return slug.Build(f)
}

// EnsurePublicCode returns the record's public code, deriving and storing it
// first if the record does not have a valid one.
func (s *Service) EnsurePublicCode(ctx context.Context, rec Record) (string, error) {
	if refcode.Valid(rec.PublicCode) {
		return rec.PublicCode, nil
	}
	if rec.InternalID == "" {
		return "", ErrInvalidID
	}

	code := refcode.Derive(rec.InternalID)
	stored, err := s.store.SetPublicCode(ctx, rec.InternalID, code)
	if err != nil {
		return "", fmt.Errorf("%w: public code for %s: %w", ErrPersist, rec.InternalID, err)
	}
	if stored != code {
		slog.Debug("public code already stored", "id", rec.InternalID, "code", stored)
	}
	return stored, nil
}

// EnsureSlug returns the record's slug, building, disambiguating and
// storing it first if the record has none.
func (s *Service) EnsureSlug(ctx context.Context, rec Record) (string, error) {
	if rec.Slug != "" {
		return rec.Slug, nil
	}
	if rec.InternalID == "" {
		return "", ErrInvalidID
	}

	final, err := s.Resolve(ctx, slug.Build(rec.Fields), rec)
	if err != nil {
		return "", err
	}

	stored, err := s.store.SetSlug(ctx, rec.InternalID, final)
	if err != nil {
		return "", fmt.Errorf("%w: slug %q for %s: %w", ErrPersist, final, rec.InternalID, err)
	}
	slog.Debug("slug assigned", "id", rec.InternalID, "slug", stored)
	return stored, nil
}

// Resolve checks candidate against slugs owned by other records and appends
// a disambiguator when it is taken. Only one lookup is made; the suffixed
// slug is not checked again.
func (s *Service) Resolve(ctx context.Context, candidate string, rec Record) (string, error) {
	owner, err := s.store.SlugOwner(ctx, candidate, rec.InternalID)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrLookup, candidate, err)
	}
	if owner == "" || owner == rec.InternalID {
		return candidate, nil
	}

	resolved := slug.WithSuffix(candidate, Disambiguator(rec))
	slog.Debug("slug collision", "candidate", candidate, "owner", owner, "resolved", resolved)
	return resolved, nil
}

// Disambiguator returns the suffix used for a colliding slug: the record's
// public code when it has a valid one, otherwise the first eight
// alphanumerics of its internal id, lowercased. An id with no alphanumerics
// at all falls back to its derived code.
func Disambiguator(rec Record) string {
	if refcode.Valid(rec.PublicCode) {
		return rec.PublicCode
	}
	if short := ShortID(rec.InternalID); short != "" {
		return short
	}
	return refcode.Derive(rec.InternalID)
}

// ShortID strips everything but ASCII letters and digits from id and
// returns the first eight of them in lowercase.
func ShortID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		if b.Len() == shortIDLength {
			break
		}
	}
	return b.String()
}
