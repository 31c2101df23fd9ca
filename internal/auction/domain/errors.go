package domain

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUnauthorized    = errors.New("actor is not allowed to perform this operation")
	ErrInvalidInput    = errors.New("invalid input")
	ErrAuctionClosed   = errors.New("auction is closed")
	ErrBidTooLow       = errors.New("bid must be greater than the current price")
	// ErrConflict is raised by storage when a concurrent write won the race (e.g. an equal bid price).
	ErrConflict = errors.New("conflicting concurrent write")
	ErrInternal = errors.New("internal storage failure")
)

// Kind classifies an error for callers that turn results into responses.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindUnauthorized  Kind = "unauthorized"
	KindInvalidInput  Kind = "invalid_input"
	KindAuctionClosed Kind = "auction_closed"
	KindBidTooLow     Kind = "bid_too_low"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrProductNotFound, KindNotFound},
	{ErrUserNotFound, KindNotFound},
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidInput, KindInvalidInput},
	{ErrAuctionClosed, KindAuctionClosed},
	{ErrBidTooLow, KindBidTooLow},
	{ErrConflict, KindConflict},
	{ErrInternal, KindInternal},
}

// KindOf returns the kind of the first known sentinel wrapped by err.
// ErrInternal is checked last in the table so a wrapped domain error keeps its own kind.
// Errors that wrap no sentinel are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
