// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportKind distinguishes lost and found reports in the unified reports table.
type ReportKind string

const (
	ReportKindLost  ReportKind = "lost"
	ReportKindFound ReportKind = "found"
)

// ReportStatus tracks whether a report is still looking for a match.
type ReportStatus string

const (
	ReportStatusOpen     ReportStatus = "open"
	ReportStatusResolved ReportStatus = "resolved"
)

// Report is a lost or found item report. PublicCode and Slug stay nil until
// they are first needed and are never changed once set.
type Report struct {
	ID                 uuid.UUID    `json:"id"`
	Kind               ReportKind   `json:"kind"`
	Status             ReportStatus `json:"status"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	City               string       `json:"city"`
	StateCode          string       `json:"state_code"`
	TransportType      string       `json:"transport_type,omitempty"`
	TransportTypeOther string       `json:"transport_type_other,omitempty"`
	PlaceType          string       `json:"place_type,omitempty"`
	PlaceTypeOther     string       `json:"place_type_other,omitempty"`
	ContactEmail       string       `json:"-"`
	EventDate          *time.Time   `json:"event_date,omitempty"`
	PublicCode         *string      `json:"public_code,omitempty"`
	Slug               *string      `json:"slug,omitempty"`
	Fingerprint        string       `json:"-"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// IsResolved returns true once the item has been reunited with its owner.
func (r *Report) IsResolved() bool {
	return r.Status == ReportStatusResolved
}

// Fingerprint identifies a submission by its content so that a resubmitted
// form maps back to the report it already created.
func Fingerprint(kind ReportKind, title, city, stateCode, email string, eventDate *time.Time) string {
	date := ""
	if eventDate != nil {
		date = eventDate.UTC().Format("2006-01-02")
	}
	parts := []string{
		string(kind),
		strings.ToLower(strings.TrimSpace(title)),
		strings.ToLower(strings.TrimSpace(city)),
		strings.ToUpper(strings.TrimSpace(stateCode)),
		strings.ToLower(strings.TrimSpace(email)),
		date,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
