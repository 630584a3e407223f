// Package uuid generates record identifiers.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// legacyNamespace scopes content-derived ids for rows persisted before
// records carried an identifier.
var legacyNamespace = googleuuid.MustParse("6f1c2a3e-8b54-4d8e-9a57-3c0f6a1b2d40")

// New generates a time-ordered UUIDv7, falling back to a random UUIDv4 if the
// clock-sequence source fails.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}

// Derive returns a deterministic UUIDv5 for content. The same content always
// yields the same id.
func Derive(content string) string {
	return googleuuid.NewSHA1(legacyNamespace, []byte(content)).String()
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
