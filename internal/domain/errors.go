package domain

import "errors"

var (
	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate record id within a collection.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnknownCollection signals a collection name outside the fixed set.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrInvalidRecord signals a record that failed validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrInvalidQuery signals invalid search options.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEnrichmentUnavailable signals that the enrichment service could not answer.
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")
	// ErrRateLimited signals a local rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)
