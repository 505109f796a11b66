package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database must exist but does not.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrIncompleteResult is returned when a scan result lacks its id or summary.
	ErrIncompleteResult = errors.New("incomplete scan result")
)
