package users

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrProviderNotFound   = errors.New("provider not found")
	ErrReasonRequired     = errors.New("reason is required")
	ErrInvalidDuration    = errors.New("duration must be 0 (indefinite) or a positive number of days")
	ErrActiveBookings     = errors.New("account has pending or accepted bookings")
	ErrHasBookings        = errors.New("account has bookings")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already in use")
	ErrPhoneTaken         = errors.New("phone number already in use")
	ErrInvalidReset       = errors.New("invalid or expired verification code")
	ErrEmptyUpdate        = errors.New("no fields to update")
)
