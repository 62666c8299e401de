package repository

// Package repository contains data access layer abstractions for vehicle
// attachments. Implementations live in subpackages (e.g., postgres).
//
// Repositories own the transaction plus the compensating file mutations that
// keep database rows and stored files consistent: the database commits first,
// superseded files are removed only after a successful commit, and a freshly
// written file is removed whenever its transaction fails.

import (
	"database/sql"
	"errors"
)

// IsNotFound reports whether err means the referenced row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
