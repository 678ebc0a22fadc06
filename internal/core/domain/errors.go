package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured indicates a required backend (embedding provider,
	// vector index, database) has no configuration. Fatal for write paths;
	// read paths degrade instead of raising.
	ErrNotConfigured = errors.New("not configured")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates a provider could not be reached or
	// timed out. Retryable by the caller.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrBackendUnavailable indicates the vector index backend is
	// unreachable. Searches degrade to empty results; writes propagate it.
	ErrBackendUnavailable = errors.New("vector backend unavailable")

	// ErrDimensionMismatch indicates a vector's dimension disagrees with
	// the collection's configured dimension. Rejected before reaching the
	// backend; no safe default exists.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
