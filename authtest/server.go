// Package authtest provides an in-process fake of the Insightify session
// endpoints for tests: seedable accounts, programmable failure modes, and
// call counters for the refresh/validate/logout endpoints.
package authtest

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/insightify/go-authclient/api"
)

type account struct {
	password string
	user     api.User
}

type otpRecord struct {
	code    string
	purpose api.OTPPurpose
}

// Server is a fake session backend listening on a local port.
type Server struct {
	t   *testing.T
	app *fiber.App
	ln  net.Listener
	url string

	mu            sync.Mutex
	users         map[string]*account
	codes         map[string]*account
	otps          map[string]otpRecord
	resetTokens   map[string]string
	current       *account
	accessToken   string
	refreshCookie string

	refreshCalls  int
	validateCalls int
	logoutCalls   int

	queuedValidateFailures []int
	refreshStatus          int
	refreshDelay           time.Duration
	refreshBroken          bool

	signingKey []byte
}

// New starts a fake server on a random local port and registers its
// shutdown with t.Cleanup.
func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		t:           t,
		users:       map[string]*account{},
		codes:       map[string]*account{},
		otps:        map[string]otpRecord{},
		resetTokens: map[string]string{},
		signingKey:  []byte("authtest-signing-key"),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Post("/login", s.handleLogin)
	app.Post("/register", s.handleRegister)
	app.Get("/validate-session", s.handleValidateSession)
	app.Get("/logout", s.handleLogout)
	app.Get("/refresh", s.handleRefresh)
	app.Put("/password", s.handleChangePassword)
	app.Get("/check-email", s.handleCheckEmail)
	app.Post("/generate-otp", s.handleGenerateOTP)
	app.Post("/validate-otp", s.handleValidateOTP)
	app.Post("/verify-reset-token", s.handleVerifyResetToken)
	app.Post("/reset-password", s.handleResetPassword)
	app.Post("/google/callback", s.handleGoogleCallback)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("authtest: failed to listen: %v", err)
	}

	s.app = app
	s.ln = ln
	s.url = "http://" + ln.Addr().String()

	go func() {
		_ = app.Listener(ln)
	}()

	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.url
}

// SeedUser registers an account and returns its profile.
func (s *Server) SeedUser(email, password, firstName, lastName string) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := &account{
		password: password,
		user: api.User{
			CUID:      uuid.NewString(),
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
		},
	}
	s.users[email] = acc
	return acc.user
}

// SeedGoogleCode registers a provider authorization code for an existing
// account.
func (s *Server) SeedGoogleCode(code, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acc, ok := s.users[email]; ok {
		s.codes[code] = acc
	}
}

// SeedSession marks an account as the active session and returns a valid
// access token for it, as if a login had happened in a previous process.
func (s *Server) SeedSession(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[email]
	if !ok {
		s.t.Fatalf("authtest: no seeded user for %s", email)
	}

	s.current = acc
	s.accessToken = s.mintToken(acc)
	s.refreshCookie = uuid.NewString()
	return s.accessToken
}

// InvalidateAccessToken rotates the server-side token without telling the
// client, so the client's next credentialed call gets a 403.
func (s *Server) InvalidateAccessToken() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.accessToken = s.mintToken(s.current)
	}
}

// QueueValidateFailure makes the next validate-session call answer with the
// given status before any token checking.
func (s *Server) QueueValidateFailure(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queuedValidateFailures = append(s.queuedValidateFailures, status)
}

// SetRefreshStatus forces the refresh endpoint to answer with status; 0
// restores normal behavior.
func (s *Server) SetRefreshStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// SetRefreshBroken makes the refresh endpoint hand out tokens the server
// itself will not accept, so a retried request fails again with 403.
func (s *Server) SetRefreshBroken(broken bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshBroken = broken
}

// SetRefreshDelay delays every refresh response, widening the window in
// which concurrent 403 handlers pile up.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// RefreshCalls reports how many times the refresh endpoint was hit.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// ValidateCalls reports how many times validate-session was hit.
func (s *Server) ValidateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateCalls
}

// LogoutCalls reports how many times logout was hit.
func (s *Server) LogoutCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutCalls
}

// CurrentAccessToken returns the token the server currently accepts.
func (s *Server) CurrentAccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Server) mintToken(acc *account) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   acc.user.CUID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		s.t.Fatalf("authtest: failed to sign token: %v", err)
	}
	return signed
}

func (s *Server) bearer(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
