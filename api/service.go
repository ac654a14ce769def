// Package api holds the stateless request/response wrappers for the
// Insightify session endpoints. Each call maps the server's status code to a
// typed failure; no retry or refresh orchestration lives here, that is the
// session manager's responsibility.
package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goliatone/go-errors"

	"github.com/insightify/go-authclient/transport"
)

// Service issues typed calls through a transport client.
type Service struct {
	client *transport.Client
	logger transport.Logger
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithLogger overrides the fallback logger.
func WithLogger(logger transport.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service on top of client.
func NewService(client *transport.Client, opts ...ServiceOption) *Service {
	s := &Service{
		client: client,
		logger: transport.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Login exchanges credentials for an access token and user profile.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	payload := LoginRequest{Email: email, Password: password}
	if err := payload.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid login payload")
	}

	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/login",
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, ErrLoginFailed.WithMetadata(map[string]any{"status": res.StatusCode})
	}

	out := &LoginResponse{}
	if err := res.JSON(out); err != nil {
		return nil, err
	}

	if out.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	return out, nil
}

// Register creates a new account. The server answers 201 on success.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if err := req.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid registration payload")
	}

	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/register",
		Body:   req,
	})
	if err != nil {
		return err
	}

	if res.StatusCode != http.StatusCreated {
		return ErrRegistrationFailed.WithMetadata(map[string]any{"status": res.StatusCode})
	}

	return nil
}

// ValidateSession asks the server whether the attached credential still
// identifies a user.
func (s *Service) ValidateSession(ctx context.Context) (*User, error) {
	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   "/validate-session",
	})
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, ErrSessionInvalid.WithMetadata(map[string]any{"status": res.StatusCode})
	}

	user := &User{}
	if err := res.JSON(user); err != nil {
		return nil, err
	}

	return user, nil
}

// Logout tells the server to drop the session. Any status code is accepted;
// the manager performs local cleanup regardless.
func (s *Service) Logout(ctx context.Context) error {
	_, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   "/logout",
	})
	return err
}

// Refresh trades the long-lived refresh credential for a new access token.
// The request is pre-marked as retried so an authorization failure here can
// never re-enter the renewal hook.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	req := &transport.Request{
		Method: http.MethodGet,
		Path:   "/refresh",
	}
	req.MarkRetried()

	res, err := s.client.Do(ctx, req)
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		return "", ErrRefreshFailed.WithMetadata(map[string]any{"status": res.StatusCode})
	}

	out := &refreshResponse{}
	if err := res.JSON(out); err != nil {
		return "", err
	}

	if out.AccessToken == "" {
		return "", ErrNoAccessToken
	}

	return out.AccessToken, nil
}

// ChangePassword updates the authenticated user's password.
func (s *Service) ChangePassword(ctx context.Context, password string) error {
	payload := ChangePasswordRequest{Password: password}
	if err := payload.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid password payload")
	}

	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPut,
		Path:   "/password",
		Body:   payload,
	})
	if err != nil {
		return err
	}

	if res.StatusCode != http.StatusOK {
		return ErrPasswordChangeFailed.WithMetadata(map[string]any{"status": res.StatusCode})
	}

	return nil
}

// CheckEmail reports whether an account already exists for email.
func (s *Service) CheckEmail(ctx context.Context, email string) (bool, error) {
	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   "/check-email",
		Query:  url.Values{"email": []string{email}},
	})
	if err != nil {
		return false, err
	}

	out := &checkEmailResponse{}
	if err := res.JSON(out); err != nil {
		return false, err
	}

	return out.Exists, nil
}

// GenerateOTP requests a one-time code for the given purpose.
func (s *Service) GenerateOTP(ctx context.Context, email string, purpose OTPPurpose) error {
	payload := GenerateOTPRequest{Email: email, Purpose: purpose}
	if err := payload.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid OTP payload")
	}

	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/generate-otp",
		Body:   payload,
	})
	if err != nil {
		return err
	}

	if res.StatusCode != http.StatusOK {
		return ErrOTPGenerationFailed.WithMetadata(map[string]any{"status": res.StatusCode})
	}

	return nil
}

// ValidateOTP checks a one-time code. Failures carry the server-supplied
// message when one is present so consumers can display it verbatim.
func (s *Service) ValidateOTP(ctx context.Context, email, code string, purpose OTPPurpose) (*ValidateOTPResponse, error) {
	payload := ValidateOTPRequest{Email: email, Code: code, Purpose: purpose}
	if err := payload.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid OTP payload")
	}

	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/validate-otp",
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}

	out := &ValidateOTPResponse{}
	if decodeErr := res.JSON(out); decodeErr != nil && res.StatusCode == http.StatusOK {
		return nil, decodeErr
	}

	if res.StatusCode != http.StatusOK {
		rich := ErrOTPValidationFailed.WithMetadata(map[string]any{"status": res.StatusCode})
		if out.Error != "" {
			rich = errors.New(out.Error, errors.CategoryOperation).
				WithTextCode(textCodeOTPValidation).
				WithMetadata(map[string]any{"status": res.StatusCode})
		}
		return nil, rich
	}

	return out, nil
}

// VerifyResetToken checks a password-reset token before showing the reset
// form.
func (s *Service) VerifyResetToken(ctx context.Context, resetToken string) (*VerifyResetTokenResponse, error) {
	payload := VerifyResetTokenRequest{ResetToken: resetToken}
	if err := payload.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid reset token payload")
	}

	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/verify-reset-token",
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}

	out := &VerifyResetTokenResponse{}
	if decodeErr := res.JSON(out); decodeErr != nil && res.StatusCode == http.StatusOK {
		return nil, decodeErr
	}

	if res.StatusCode != http.StatusOK {
		rich := ErrResetTokenInvalid.WithMetadata(map[string]any{"status": res.StatusCode})
		if out.Error != "" {
			rich = errors.New(out.Error, errors.CategoryOperation).
				WithTextCode(textCodeResetTokenInvalid).
				WithMetadata(map[string]any{"status": res.StatusCode})
		}
		return nil, rich
	}

	return out, nil
}

// ResetPassword completes the password reset flow.
func (s *Service) ResetPassword(ctx context.Context, email, password, resetToken string) error {
	payload := ResetPasswordRequest{Email: email, Password: password, ResetToken: resetToken}
	if err := payload.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid reset payload")
	}

	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/reset-password",
		Body:   payload,
	})
	if err != nil {
		return err
	}

	if res.StatusCode != http.StatusOK {
		return ErrPasswordResetFailed.WithMetadata(map[string]any{"status": res.StatusCode})
	}

	return nil
}

// ExchangeGoogleCode trades a provider-issued authorization code for an
// access token and user profile.
func (s *Service) ExchangeGoogleCode(ctx context.Context, code string) (*LoginResponse, error) {
	payload := ExchangeRequest{Code: code}
	if err := payload.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid exchange payload")
	}

	res, err := s.client.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/google/callback",
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, ErrExchangeFailed.WithMetadata(map[string]any{"status": res.StatusCode})
	}

	out := &LoginResponse{}
	if err := res.JSON(out); err != nil {
		return nil, err
	}

	if out.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	return out, nil
}
