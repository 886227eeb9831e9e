// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package security keeps owner PINs and session tokens in redacting wrappers
// so they never end up in logs, JSON output or audit records.
package security // import "github.com/hostwarden/hostwarden/internal/security"

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

const redacted = "[SECRET]"

// Secret holds sensitive material such as an owner PIN.
type Secret []byte

// FromString copies s into a new Secret.
func FromString(s string) Secret { return Secret([]byte(s)) }

// String redacts the secret for fmt.Print* convenience.
func (s Secret) String() string { return redacted }

// Format implements fmt.Formatter so every verb is redacted.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

// RuneCount returns the number of UTF-8 characters in the secret.
func (s Secret) RuneCount() int { return utf8.RuneCount(s) }

// Zero overwrites the underlying byte slice with zeros.
func (s *Secret) Zero() {
	if s == nil || *s == nil {
		return
	}
	for i := range *s {
		(*s)[i] = 0
	}
}

// Use executes fn with the underlying bytes (not a copy).
func (s Secret) Use(fn func([]byte) error) error {
	return fn([]byte(s))
}

// Equal compares s with other in constant time.
func (s Secret) Equal(other []byte) bool {
	return subtle.ConstantTimeCompare(s, other) == 1
}

// MarshalJSON redacts secrets in JSON marshaling.
func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

// MarshalText redacts secrets for text encoding.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }
