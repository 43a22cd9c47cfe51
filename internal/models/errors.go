package models

import "errors"

// Domain errors shared by services, storage backends and the HTTP layer.
// Callers test for them with errors.Is.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNotFound             = errors.New("not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrConflict             = errors.New("concurrent modification")
)

// IsDomainError reports whether err wraps one of the domain sentinels.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidArgument,
		ErrNotFound,
		ErrInsufficientQuantity,
		ErrInsufficientFunds,
		ErrUpstreamUnavailable,
		ErrStoreUnavailable,
		ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
