package authclient_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/insightify/go-authclient"
	"github.com/insightify/go-authclient/api"
	"github.com/insightify/go-authclient/authtest"
	"github.com/insightify/go-authclient/store"
)

func newIntegrationManager(t *testing.T) (*authclient.Manager, *authtest.Server, *store.MemoryStore) {
	t.Helper()

	srv := authtest.New(t)
	srv.SeedUser("a@b.com", "secret123", "Ada", "Byron")

	st := store.NewMemoryStore()
	m := authclient.New(authclient.ClientConfig{
		BaseURL: srv.URL(),
	}, authclient.WithStore(st))

	return m, srv, st
}

func TestTransparentRefreshOnExpiredToken(t *testing.T) {
	m, srv, _ := newIntegrationManager(t)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "a@b.com", "secret123"))

	// The server rotates the token behind the client's back, so the next
	// credentialed call answers 403 and the hook has to renew.
	srv.InvalidateAccessToken()

	require.NoError(t, m.FetchCurrentUser(ctx))

	assert.Equal(t, 1, srv.RefreshCalls())
	assert.Equal(t, authclient.StatusAuthenticated, m.Status())
	assert.Equal(t, srv.CurrentAccessToken(), m.AccessToken())
	assert.Equal(t, "a@b.com", m.CurrentUser().Email)
}

func TestConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	m, srv, _ := newIntegrationManager(t)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "a@b.com", "secret123"))

	srv.InvalidateAccessToken()
	srv.SetRefreshDelay(150 * time.Millisecond)

	const callers = 5

	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.FetchCurrentUser(ctx)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}

	assert.Equal(t, 1, srv.RefreshCalls())
	assert.Equal(t, authclient.StatusAuthenticated, m.Status())
}

func TestRequestRetriedAtMostOnce(t *testing.T) {
	m, srv, _ := newIntegrationManager(t)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "a@b.com", "secret123"))
	validatesSoFar := srv.ValidateCalls()

	// Refresh hands out tokens the server won't accept: the retried request
	// fails again and must not trigger a second renewal.
	srv.InvalidateAccessToken()
	srv.SetRefreshBroken(true)

	err := m.FetchCurrentUser(ctx)
	require.Error(t, err)
	assert.True(t, api.IsSessionInvalid(err))

	assert.Equal(t, 1, srv.RefreshCalls())
	assert.Equal(t, validatesSoFar+2, srv.ValidateCalls())
	assert.Equal(t, authclient.StatusUnauthenticated, m.Status())
}

func TestRefreshRejectionSurfacesOriginalFailure(t *testing.T) {
	m, srv, st := newIntegrationManager(t)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "a@b.com", "secret123"))

	srv.InvalidateAccessToken()
	srv.SetRefreshStatus(401)

	err := m.FetchCurrentUser(ctx)
	require.Error(t, err)

	// The caller sees the original authorization failure, not the refresh
	// endpoint's rejection.
	assert.True(t, api.IsSessionInvalid(err))
	assert.True(t, api.IsAuthorizationExpired(err))

	assert.Equal(t, authclient.StatusUnauthenticated, m.Status())
	assert.Empty(t, m.AccessToken())
	assert.Empty(t, m.Client().Credential())

	rec, rerr := st.Read(ctx)
	require.NoError(t, rerr)
	assert.Nil(t, rec)
}

func TestBootstrapFromPersistedToken(t *testing.T) {
	m, srv, st := newIntegrationManager(t)
	ctx := context.Background()

	token := srv.SeedSession("a@b.com")
	require.NoError(t, st.Write(ctx, &store.Record{AccessToken: token}))

	require.NoError(t, m.Bootstrap(ctx))

	assert.Equal(t, authclient.StatusAuthenticated, m.Status())
	assert.Equal(t, token, m.AccessToken())
	assert.Equal(t, "a@b.com", m.CurrentUser().Email)
}

func TestBootstrapSurvivesTransientOutage(t *testing.T) {
	m, srv, st := newIntegrationManager(t)
	ctx := context.Background()

	token := srv.SeedSession("a@b.com")
	require.NoError(t, st.Write(ctx, &store.Record{AccessToken: token}))

	srv.QueueValidateFailure(500)

	require.NoError(t, m.Bootstrap(ctx))

	// The never-confirmed token rides out one failed validation.
	assert.Equal(t, authclient.StatusUnauthenticated, m.Status())
	assert.Equal(t, token, m.AccessToken())

	require.NoError(t, m.FetchCurrentUser(ctx))
	assert.Equal(t, authclient.StatusAuthenticated, m.Status())
	assert.Equal(t, "a@b.com", m.CurrentUser().Email)
}

func TestLogoutEndsServerSession(t *testing.T) {
	m, srv, _ := newIntegrationManager(t)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "a@b.com", "secret123"))
	require.NoError(t, m.Logout(ctx))

	assert.Equal(t, 1, srv.LogoutCalls())
	assert.Equal(t, authclient.StatusUnauthenticated, m.Status())

	// The refresh credential died with the session: a renewed fetch cannot
	// resurrect it.
	err := m.FetchCurrentUser(ctx)
	require.Error(t, err)
	assert.Equal(t, authclient.StatusUnauthenticated, m.Status())
}

func TestGoogleCallbackEstablishesSession(t *testing.T) {
	m, srv, _ := newIntegrationManager(t)
	ctx := context.Background()

	srv.SeedGoogleCode("code-1", "a@b.com")

	require.NoError(t, m.HandleGoogleCallback(ctx, "code-1"))

	assert.Equal(t, authclient.StatusAuthenticated, m.Status())
	assert.Equal(t, "a@b.com", m.CurrentUser().Email)
	assert.Equal(t, srv.CurrentAccessToken(), m.AccessToken())
}
