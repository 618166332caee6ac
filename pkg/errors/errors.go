package errors

import "errors"

// Pool lifecycle errors
var (
	// ErrPoolShuttingDown is returned by Acquire when the pool is draining
	ErrPoolShuttingDown = errors.New("connection pool is shutting down")

	// ErrPoolExhausted is returned by TryAcquire when no idle connection is available
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrAcquireTimeout is returned when the configured acquire timeout elapses
	ErrAcquireTimeout = errors.New("timed out waiting for a connection")
)

// Pool construction errors
var (
	// ErrInvalidPoolSize is returned when the pool size is not positive
	ErrInvalidPoolSize = errors.New("pool size must be at least 1")

	// ErrNilConnector is returned when the pool is built without a connector
	ErrNilConnector = errors.New("connector must not be nil")
)

// Lease errors
var (
	// ErrLeaseReleased is returned when a lease is released more times than retained
	ErrLeaseReleased = errors.New("lease already released")
)

// Connector errors
var (
	// ErrUnsupportedDriver is returned for a driver name with no connector
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Configuration errors
var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")
)
