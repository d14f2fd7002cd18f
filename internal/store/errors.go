package store

import "errors"

// Sentinel errors returned by storage methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrKeyNotFound is returned by Load when no value is stored under the
	// requested key.
	ErrKeyNotFound = errors.New("key not found in local storage")
)

// Low-level database operation errors. These are returned (or wrapped) by
// storage methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a query against the
	// local database fails.
	ErrExecutingQuery = errors.New("error executing sql query")
)
