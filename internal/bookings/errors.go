package bookings

import "errors"

var (
	// ErrNotFound covers a missing booking, a foreign booking and a booking
	// in the wrong state alike.
	ErrNotFound            = errors.New("booking not found or already processed")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrNotCancellable      = errors.New("booking can no longer be cancelled")
	ErrNotCompleted        = errors.New("only completed bookings can be rated")
	ErrInvalidTime         = errors.New("booking_time must be an RFC 3339 timestamp")
	ErrProviderUnavailable = errors.New("provider is not available for booking")
	ErrOutsideAvailability = errors.New("provider is not available at the requested time")
	ErrInvalidPrice        = errors.New("final_price must not be negative")
)
