package domain

import "github.com/cockroachdb/errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrInvalidInput         = errors.New("invalid input")

	ErrEventNotFound  = errors.New("event not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTokenNotFound  = errors.New("token not found")
	ErrUserNotFound   = errors.New("user not found")

	ErrEventExpired        = errors.New("event already passed")
	ErrSoldOut             = errors.New("sold out")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenAlreadyUsed    = errors.New("token already used")
	ErrAlreadyClaimed      = errors.New("ticket already claimed")

	ErrUsernameTaken = errors.New("username taken")
)

// NotFound reports whether err means an entity is absent, as opposed to a
// precondition failure or an unexpected error.
func NotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrTicketNotFound) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// PreconditionFailed reports whether err is a business-rule rejection that
// left all state unchanged.
func PreconditionFailed(err error) bool {
	return errors.Is(err, ErrEventExpired) ||
		errors.Is(err, ErrSoldOut) ||
		errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenAlreadyUsed) ||
		errors.Is(err, ErrAlreadyClaimed)
}
