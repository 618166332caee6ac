// Package errors provides standardized error definitions for the pgpool
// library. All error definitions are centralized here to ensure consistency
// across the pool, connector and configuration packages.
package errors
