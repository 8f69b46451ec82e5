package domain

import "errors"

// Store errors.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")
	ErrInvalidBalance = errors.New("balance must be a non-negative integer")
	ErrForbidden      = errors.New("access forbidden")
)

// Business errors raised while a sync event is processed downstream. Retrying
// cannot change their outcome.
var (
	ErrUnknownUser       = errors.New("unknown user")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Publish errors.
var (
	// ErrPermanentPublish marks a bus rejection that no retry can fix
	// (oversized or malformed message, authorization failure).
	ErrPermanentPublish = errors.New("permanent publish failure")
	ErrPublishQueueFull = errors.New("publish queue full")
	ErrPublisherClosed  = errors.New("publisher closed")
)
