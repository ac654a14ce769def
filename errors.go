package authclient

import (
	"github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_SESSION_TRANSITION"
	textCodeCallbackHandled   = "CALLBACK_ALREADY_HANDLED"
	textCodeNoAuthCode        = "NO_AUTHORIZATION_CODE"
	textCodeNoExpiryClaim     = "NO_EXPIRY_CLAIM"
)

// ErrInvalidTransition is returned when a requested session status change is
// not allowed by the transition table.
var ErrInvalidTransition = errors.New("invalid session state transition", errors.CategoryInternal).
	WithTextCode(textCodeInvalidTransition).
	WithCode(errors.CodeInternal)

// ErrCallbackAlreadyHandled is returned when a provider authorization code
// is presented a second time; the exchange runs at most once per code.
var ErrCallbackAlreadyHandled = errors.New("authorization code already exchanged", errors.CategoryConflict).
	WithTextCode(textCodeCallbackHandled).
	WithCode(errors.CodeConflict)

// ErrNoAuthorizationCode is returned when the redirect callback carries no
// provider-issued code.
var ErrNoAuthorizationCode = errors.New("no authorization code in callback", errors.CategoryBadInput).
	WithTextCode(textCodeNoAuthCode).
	WithCode(errors.CodeBadRequest)

// ErrNoExpiryClaim is returned when a token carries no exp claim to peek at.
var ErrNoExpiryClaim = errors.New("token has no expiry claim", errors.CategoryBadInput).
	WithTextCode(textCodeNoExpiryClaim).
	WithCode(errors.CodeBadRequest)

// IsInvalidTransition will check for transition table violations.
func IsInvalidTransition(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCodeInvalidTransition
}
