// Package logging wraps log/slog with the field names and operation helpers
// used across the benchmark (upserts, queries, phases).
package logging
