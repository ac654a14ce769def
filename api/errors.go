package api

import (
	"github.com/goliatone/go-errors"
)

const (
	textCodeLoginFailed        = "LOGIN_FAILED"
	textCodeRegistrationFailed = "REGISTRATION_FAILED"
	textCodeSessionInvalid     = "SESSION_INVALID"
	textCodeRefreshFailed      = "REFRESH_FAILED"
	textCodeNoAccessToken      = "NO_ACCESS_TOKEN"
	textCodePasswordChange     = "PASSWORD_CHANGE_FAILED"
	textCodeOTPGeneration      = "OTP_GENERATION_FAILED"
	textCodeOTPValidation      = "OTP_VALIDATION_FAILED"
	textCodeResetTokenInvalid  = "RESET_TOKEN_INVALID"
	textCodePasswordReset      = "PASSWORD_RESET_FAILED"
	textCodeExchangeFailed     = "EXCHANGE_FAILED"
)

// ErrLoginFailed is returned when the login endpoint rejects the credentials.
var ErrLoginFailed = errors.New("login failed", errors.CategoryAuth).
	WithTextCode(textCodeLoginFailed).
	WithCode(errors.CodeUnauthorized)

// ErrRegistrationFailed is returned when the register endpoint does not
// answer 201.
var ErrRegistrationFailed = errors.New("registration failed", errors.CategoryOperation).
	WithTextCode(textCodeRegistrationFailed).
	WithCode(errors.CodeBadRequest)

// ErrSessionInvalid is returned when validate-session rejects the current
// credential.
var ErrSessionInvalid = errors.New("session validation failed", errors.CategoryAuth).
	WithTextCode(textCodeSessionInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrRefreshFailed is returned when the refresh endpoint does not answer 200.
// Refresh failure is terminal for the current session.
var ErrRefreshFailed = errors.New("token refresh failed", errors.CategoryAuth).
	WithTextCode(textCodeRefreshFailed).
	WithCode(errors.CodeUnauthorized)

// ErrNoAccessToken is returned when a success response is missing the access
// token the contract promises.
var ErrNoAccessToken = errors.New("no access token in response", errors.CategoryOperation).
	WithTextCode(textCodeNoAccessToken).
	WithCode(errors.CodeInternal)

// ErrPasswordChangeFailed is returned when the password endpoint rejects the
// update.
var ErrPasswordChangeFailed = errors.New("password change failed", errors.CategoryOperation).
	WithTextCode(textCodePasswordChange).
	WithCode(errors.CodeBadRequest)

// ErrOTPGenerationFailed is returned when the generate-otp endpoint fails.
var ErrOTPGenerationFailed = errors.New("failed to generate OTP", errors.CategoryOperation).
	WithTextCode(textCodeOTPGeneration).
	WithCode(errors.CodeBadRequest)

// ErrOTPValidationFailed is returned when the validate-otp endpoint rejects
// the code; the server-supplied message is attached when available.
var ErrOTPValidationFailed = errors.New("failed to validate OTP", errors.CategoryOperation).
	WithTextCode(textCodeOTPValidation).
	WithCode(errors.CodeBadRequest)

// ErrResetTokenInvalid is returned when verify-reset-token rejects the token.
var ErrResetTokenInvalid = errors.New("failed to verify reset token", errors.CategoryOperation).
	WithTextCode(textCodeResetTokenInvalid).
	WithCode(errors.CodeBadRequest)

// ErrPasswordResetFailed is returned when reset-password fails.
var ErrPasswordResetFailed = errors.New("failed to reset password", errors.CategoryOperation).
	WithTextCode(textCodePasswordReset).
	WithCode(errors.CodeBadRequest)

// ErrExchangeFailed is returned when the third-party code exchange fails.
var ErrExchangeFailed = errors.New("authorization code exchange failed", errors.CategoryAuth).
	WithTextCode(textCodeExchangeFailed).
	WithCode(errors.CodeUnauthorized)

// IsSessionInvalid reports whether err is a validate-session rejection.
func IsSessionInvalid(err error) bool {
	return hasTextCode(err, textCodeSessionInvalid)
}

// IsRefreshFailure reports whether err is a terminal refresh failure.
func IsRefreshFailure(err error) bool {
	return hasTextCode(err, textCodeRefreshFailed) || hasTextCode(err, textCodeNoAccessToken)
}

// IsAuthorizationExpired reports whether err carries the 403 status the
// renewal protocol reacts to.
func IsAuthorizationExpired(err error) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	status, ok := rich.Metadata["status"]
	if !ok {
		return false
	}
	code, ok := status.(int)
	return ok && code == 403
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}
