package service

import "errors"

// Error taxonomy for the ask and search pipelines. Check with errors.Is;
// none of these are retried internally.
var (
	// ErrInvalidInput is a missing or malformed question/query, rejected
	// before any external call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized means the caller's tier does not cover the
	// generator-backed flow. Not retryable without upgrading.
	ErrUnauthorized = errors.New("pro subscription required")

	// ErrUpstreamUnavailable means the embedding or vector-search call
	// failed. The pipeline aborts with no partial result.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrGenerationFailed means the text-generation call failed or came
	// back empty after context was successfully retrieved.
	ErrGenerationFailed = errors.New("generation failed")
)
