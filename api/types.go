package api

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// User is the validated identity returned by the server.
type User struct {
	CUID      string `json:"cuid"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Picture   string `json:"picture,omitempty"`
}

// OTPPurpose selects the flow an OTP belongs to.
type OTPPurpose string

const (
	PurposeVerifyEmail   OTPPurpose = "VERIFY_EMAIL"
	PurposeResetPassword OTPPurpose = "RESET_PASSWORD"
)

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// LoginResponse is the payload for a successful login or code exchange.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

// RegisterRequest payload
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	Password string `json:"password"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// GenerateOTPRequest payload
type GenerateOTPRequest struct {
	Email   string     `json:"email"`
	Purpose OTPPurpose `json:"purpose"`
}

func (r GenerateOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(
			&r.Purpose,
			validation.Required,
			validation.In(PurposeVerifyEmail, PurposeResetPassword),
		),
	)
}

// ValidateOTPRequest payload
type ValidateOTPRequest struct {
	Email   string     `json:"email"`
	Code    string     `json:"code"`
	Purpose OTPPurpose `json:"purpose"`
}

func (r ValidateOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required),
		validation.Field(
			&r.Purpose,
			validation.Required,
			validation.In(PurposeVerifyEmail, PurposeResetPassword),
		),
	)
}

// ValidateOTPResponse carries the server's verdict; ResetToken is only
// present for the password reset purpose.
type ValidateOTPResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
	ExpiresAt  string `json:"expiresAt,omitempty"`
	Error      string `json:"error,omitempty"`
}

// VerifyResetTokenRequest payload
type VerifyResetTokenRequest struct {
	ResetToken string `json:"resetToken"`
}

func (r VerifyResetTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ResetToken, validation.Required),
	)
}

// VerifyResetTokenResponse carries the validity verdict for a reset token.
type VerifyResetTokenResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
	Error string `json:"error,omitempty"`
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	ResetToken string `json:"resetToken"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.ResetToken, validation.Required),
	)
}

// ExchangeRequest carries the provider-issued authorization code.
type ExchangeRequest struct {
	Code string `json:"code"`
}

func (r ExchangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required),
	)
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type checkEmailResponse struct {
	Exists bool `json:"exists"`
}
