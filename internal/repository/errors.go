// Package repository implements the persistence layer over MySQL via
// database/sql. Missing rows are reported as sql.ErrNoRows straight from
// database/sql; this file adds the sentinel values shared by more than
// one repository so higher layers can distinguish failure scenarios
// without parsing error strings.
package repository

import "errors"

// ErrEmailExists is returned when an insert would violate the unique
// email constraint on the users table. Handlers should translate this
// into an HTTP 400 response.
var ErrEmailExists = errors.New("email already exists")
