// Package postgres provides the PostgreSQL implementations of the
// storage interfaces defined in internal/store and internal/task. It
// handles query execution, row scanning, and mapping database errors to
// store errors.
package postgres
