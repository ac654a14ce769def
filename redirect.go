package authclient

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// BeginGoogleLogin builds the URL the consumer should send the browser to
// in order to start the provider flow. The state parameter is a fresh nonce
// the server echoes back through the provider.
func (m *Manager) BeginGoogleLogin() string {
	state := uuid.NewString()

	u := strings.TrimRight(m.cfg.GetBaseURL(), "/") + "/google"
	q := url.Values{"state": []string{state}}

	m.log.Debug("starting google login, state=%s", state)
	return u + "?" + q.Encode()
}

// HandleGoogleCallback completes a third-party redirect arrival: it
// exchanges the provider-issued authorization code for an access token and
// user profile, then performs the same atomic update as Login. Each code is
// exchanged at most once; repeats are rejected.
func (m *Manager) HandleGoogleCallback(ctx context.Context, code string) error {
	if code == "" {
		return ErrNoAuthorizationCode
	}

	m.mu.Lock()
	if _, dup := m.usedCodes[code]; dup {
		m.mu.Unlock()
		return ErrCallbackAlreadyHandled
	}
	m.usedCodes[code] = struct{}{}
	m.mu.Unlock()

	m.beginLoading()
	defer m.endLoading()

	res, err := m.api.ExchangeGoogleCode(ctx, code)
	if err != nil {
		m.log.Error("google callback exchange failed: %v", err)
		return err
	}

	m.applySession(ctx, res.AccessToken, &res.User)
	return nil
}
