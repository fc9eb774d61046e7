package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrSourceUnavailable marks a source table that is missing or not readable.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrAggregation is returned when an aggregation pass fails outside the per-source boundaries.
	ErrAggregation = errors.New("aggregation failed")
)
