package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenExpiry peeks at a JWT's exp claim without verifying the signature.
// The access token is otherwise treated as an opaque bearer credential; the
// expiry is only used for logging and proactive renewal decisions.
func TokenExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, errors.Wrap(err, errors.CategoryBadInput, "failed to parse access token")
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiryClaim
	}

	return claims.ExpiresAt.Time, nil
}

// TokenExpiresWithin reports whether the token expires inside the leeway
// window. Unparseable tokens count as expiring; tokens without an exp claim
// do not.
func TokenExpiresWithin(token string, leeway time.Duration) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		var rich *errors.Error
		if errors.As(err, &rich) && rich.TextCode == textCodeNoExpiryClaim {
			return false
		}
		return true
	}

	return time.Until(exp) <= leeway
}
