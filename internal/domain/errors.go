package domain

import "errors"

var (
	ErrAdventureNotFound = errors.New("adventure not found")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrExchangeInFlight  = errors.New("exchange already in flight for session")
	ErrMediaPending      = errors.New("media generation still pending for new session")
	ErrEmptyAction       = errors.New("action text is empty")
)
