// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package refcode derives the short numeric public reference code shown on
// emails, QR stickers and support correspondence. Codes are a pure function
// of the report's internal identifier.
package refcode

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"regexp"
)

const (
	// Length is the fixed number of digits in a public reference code.
	Length = 5

	codeBase  = 10000
	codeRange = 90000
)

var format = regexp.MustCompile(`^[0-9]{5}$`)

// Derive maps an internal identifier to a 5-digit code in [10000, 99999].
// The caller must not pass an empty string.
//
// The first four bytes of the SHA-1 digest are read as a big-endian uint32
// and reduced into the code range.
func Derive(internalID string) string {
	sum := sha1.Sum([]byte(internalID))
	n := binary.BigEndian.Uint32(sum[:4])
	return fmt.Sprintf("%05d", n%codeRange+codeBase)
}

// Valid reports whether code is a well-formed public reference code.
func Valid(code string) bool {
	return format.MatchString(code)
}
