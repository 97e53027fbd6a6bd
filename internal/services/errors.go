package services

import "errors"

// Lifecycle precondition violations. None of them is fatal; handlers turn
// each one into a user-facing message.
var (
	ErrNotFound         = errors.New("not found")
	ErrSelfRequest      = errors.New("cannot request own item")
	ErrDuplicateRequest = errors.New("item already requested")
	ErrNotOwner         = errors.New("actor does not own the requested item")
	ErrAlreadyProcessed = errors.New("request already processed")
	ErrNotRequester     = errors.New("actor is not the requester")
	ErrNotAccepted      = errors.New("request is not accepted")
	ErrDuplicateReview  = errors.New("request already reviewed")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
)
