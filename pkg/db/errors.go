package db

import "strings"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. Covers both the postgres and sqlite driver messages
// since the catalog runs on either.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
