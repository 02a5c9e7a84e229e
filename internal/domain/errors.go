package domain

import "errors"

var (
	ErrNotAuthorized       = errors.New("not authorized")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyConflict = errors.New("idempotency conflict")

	// ErrZeroAmount rejects a contribution of zero.
	ErrZeroAmount = errors.New("zero amount")
	// ErrClosed rejects a contribution at or after the deadline.
	ErrClosed = errors.New("campaign closed")
	// ErrCannotClaim rejects a claim before the target is reached or before
	// the deadline has passed.
	ErrCannotClaim = errors.New("cannot claim")
	// ErrCampaignStillActive rejects a refund while the campaign is still
	// genuinely running (deadline not passed, or target reached).
	ErrCampaignStillActive = errors.New("campaign still active")
	// ErrAlreadySettled rejects any mutation of a project that has reached
	// its terminal state through a claim or a fully drained refund.
	ErrAlreadySettled = errors.New("campaign already settled")

	// ErrInsufficientFunds propagates from the token transfer adapter when a
	// pull or push cannot be covered.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
