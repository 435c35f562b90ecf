// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug builds URL-friendly slugs for public report pages from the
// descriptive fields of a report.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLength bounds the length of a normalized slug.
	MaxLength = 120

	// Fallback is used when no fragment yields any slug characters.
	Fallback = "report"
)

var (
	// nonAlphanumeric matches every run of characters outside [a-z0-9].
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// wellFormed matches lowercase alphanumeric words joined by single hyphens.
	wellFormed = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Fields are the descriptive report fields that feed a slug.
type Fields struct {
	Title              string
	City               string
	StateCode          string
	TransportType      string
	TransportTypeOther string
	PlaceType          string
	PlaceTypeOther     string
}

// Context returns the transport descriptor, or the place descriptor when no
// transport is set. A type of "other" is replaced by its free-text value.
func (f Fields) Context() string {
	if c := pick(f.TransportType, f.TransportTypeOther); c != "" {
		return c
	}
	return pick(f.PlaceType, f.PlaceTypeOther)
}

func pick(kind, other string) string {
	kind = strings.TrimSpace(kind)
	other = strings.TrimSpace(other)
	if kind == "" || (strings.EqualFold(kind, "other") && other != "") {
		return other
	}
	return kind
}

// Build joins title, context, city and state (skipping empty ones) and
// normalizes the result. It never returns an empty string.
// Example: {Title: "iPhone 13", City: "Austin", StateCode: "TX", TransportType: "Bus"}
// → "iphone-13-bus-austin-tx"
func Build(f Fields) string {
	var parts []string
	for _, p := range []string{f.Title, f.Context(), f.City, f.StateCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	if s := Normalize(strings.Join(parts, " ")); s != "" {
		return s
	}
	return Fallback
}

// Normalize lowercases s, strips diacritics, replaces runs of anything other
// than ASCII letters and digits with a single hyphen, trims hyphens and caps
// the length at MaxLength. The result may be empty.
// Example: "Café, Niño & Co!" → "cafe-nino-co"
func Normalize(s string) string {
	result := strings.ToLower(s)

	// The chain keeps internal buffers, so build one per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, result); err == nil {
		result = folded
	}

	result = nonAlphanumeric.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return truncate(result, MaxLength)
}

// truncate shortens s to at most max bytes, cutting at the last hyphen so a
// word is never split. A single word longer than max is cut hard.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if s[max] != '-' {
		if i := strings.LastIndexByte(cut, '-'); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, "-")
}

// WithSuffix appends a disambiguating suffix to a slug.
func WithSuffix(s, suffix string) string {
	return s + "-" + suffix
}

// Valid reports whether s is a well-formed slug.
func Valid(s string) bool {
	return len(s) > 0 && wellFormed.MatchString(s)
}
