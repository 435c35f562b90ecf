package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"lostfound/internal/models"
)

// seedReport is a sample report inserted into empty development databases.
type seedReport struct {
	kind      models.ReportKind
	title     string
	city      string
	stateCode string
	transport string
	place     string
	email     string
}

var seedReports = []seedReport{
	{models.ReportKindLost, "Blue Backpack", "New York", "NY", "Subway", "", "dev-lost@lostfound.local"},
	{models.ReportKindFound, "Keys", "Chicago", "IL", "", "Park", "dev-found@lostfound.local"},
	{models.ReportKindLost, "iPhone 13", "Austin", "TX", "Bus", "", "dev-lost@lostfound.local"},
}

// Seed populates the database with sample reports for local development.
// Public codes and slugs are left empty so the lazy assignment path can be
// exercised against them.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count); err != nil {
		return fmt.Errorf("seed check reports: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	for _, r := range seedReports {
		fp := models.Fingerprint(r.kind, r.title, r.city, r.stateCode, r.email, nil)
		_, err := db.Exec(`
			INSERT INTO reports (kind, title, city, state_code, transport_type,
			                     place_type, contact_email, fingerprint)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (fingerprint) DO NOTHING
		`, r.kind, r.title, r.city, r.stateCode, r.transport, r.place, r.email, fp)
		if err != nil {
			return fmt.Errorf("seed insert report %q: %w", r.title, err)
		}
	}

	slog.Info("database seeded with sample reports", "count", len(seedReports))
	return nil
}
