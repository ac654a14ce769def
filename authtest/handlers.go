package authtest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/insightify/go-authclient/api"
)

func (s *Server) handleLogin(c *fiber.Ctx) error {
	payload := api.LoginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[payload.Email]
	if !ok || acc.password != payload.Password {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	s.current = acc
	s.accessToken = s.mintToken(acc)
	s.refreshCookie = uuid.NewString()

	c.Cookie(&fiber.Cookie{
		Name:     "refreshToken",
		Value:    s.refreshCookie,
		Path:     "/",
		HTTPOnly: true,
	})

	return c.JSON(api.LoginResponse{
		AccessToken: s.accessToken,
		User:        acc.user,
	})
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	payload := api.RegisterRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[payload.Email]; exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already registered"})
	}

	s.users[payload.Email] = &account{
		password: payload.Password,
		user: api.User{
			CUID:      uuid.NewString(),
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			Email:     payload.Email,
		},
	}

	return c.SendStatus(fiber.StatusCreated)
}

func (s *Server) handleValidateSession(c *fiber.Ctx) error {
	token := s.bearer(c)

	s.mu.Lock()
	s.validateCalls++

	if len(s.queuedValidateFailures) > 0 {
		status := s.queuedValidateFailures[0]
		s.queuedValidateFailures = s.queuedValidateFailures[1:]
		s.mu.Unlock()
		return c.Status(status).JSON(fiber.Map{"error": "validation unavailable"})
	}

	if s.current == nil || token == "" || token != s.accessToken {
		s.mu.Unlock()
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid session"})
	}

	user := s.current.user
	s.mu.Unlock()

	return c.JSON(user)
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	s.mu.Lock()
	s.logoutCalls++
	s.current = nil
	s.accessToken = ""
	s.refreshCookie = ""
	s.mu.Unlock()

	c.Cookie(&fiber.Cookie{
		Name:     "refreshToken",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		MaxAge:   -1,
	})

	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	s.mu.Lock()
	s.refreshCalls++
	delay := s.refreshDelay
	forced := s.refreshStatus
	s.mu.Unlock()

	if delay > 0 {
		// Hold the response outside the lock so concurrent 403 handlers can
		// pile up against a single pending refresh.
		time.Sleep(delay)
	}

	if forced != 0 {
		return c.Status(forced).JSON(fiber.Map{"error": "refresh rejected"})
	}

	cookie := c.Cookies("refreshToken")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || cookie == "" || cookie != s.refreshCookie {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid refresh credential"})
	}

	minted := s.mintToken(s.current)
	if !s.refreshBroken {
		s.accessToken = minted
	}
	return c.JSON(fiber.Map{"accessToken": minted})
}

func (s *Server) handleChangePassword(c *fiber.Ctx) error {
	payload := api.ChangePasswordRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad payload"})
	}

	token := s.bearer(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || token != s.accessToken {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid session"})
	}

	s.current.password = payload.Password
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleCheckEmail(c *fiber.Ctx) error {
	email := c.Query("email")

	s.mu.Lock()
	_, exists := s.users[email]
	s.mu.Unlock()

	return c.JSON(fiber.Map{"exists": exists})
}

func (s *Server) handleGenerateOTP(c *fiber.Ctx) error {
	payload := api.GenerateOTPRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[payload.Email]; !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown email"})
	}

	s.otps[payload.Email] = otpRecord{code: "123456", purpose: payload.Purpose}
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleValidateOTP(c *fiber.Ctx) error {
	payload := api.ValidateOTPRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.otps[payload.Email]
	if !ok || rec.code != payload.Code || rec.purpose != payload.Purpose {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid or expired code"})
	}

	delete(s.otps, payload.Email)

	res := api.ValidateOTPResponse{Message: "code accepted"}
	if payload.Purpose == api.PurposeResetPassword {
		token := uuid.NewString()
		s.resetTokens[token] = payload.Email
		res.ResetToken = token
	}

	return c.JSON(res)
}

func (s *Server) handleVerifyResetToken(c *fiber.Ctx) error {
	payload := api.VerifyResetTokenRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad payload"})
	}

	s.mu.Lock()
	email, ok := s.resetTokens[payload.ResetToken]
	s.mu.Unlock()

	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid reset token"})
	}

	return c.JSON(api.VerifyResetTokenResponse{Valid: true, Email: email})
}

func (s *Server) handleResetPassword(c *fiber.Ctx) error {
	payload := api.ResetPasswordRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.resetTokens[payload.ResetToken]
	if !ok || email != payload.Email {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid reset token"})
	}

	acc, ok := s.users[email]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown email"})
	}

	acc.password = payload.Password
	delete(s.resetTokens, payload.ResetToken)

	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleGoogleCallback(c *fiber.Ctx) error {
	payload := api.ExchangeRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad payload"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.codes[payload.Code]
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization code"})
	}

	delete(s.codes, payload.Code)

	s.current = acc
	s.accessToken = s.mintToken(acc)
	s.refreshCookie = uuid.NewString()

	c.Cookie(&fiber.Cookie{
		Name:     "refreshToken",
		Value:    s.refreshCookie,
		Path:     "/",
		HTTPOnly: true,
	})

	return c.JSON(api.LoginResponse{
		AccessToken: s.accessToken,
		User:        acc.user,
	})
}
