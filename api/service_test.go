package api_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightify/go-authclient/api"
	"github.com/insightify/go-authclient/authtest"
	"github.com/insightify/go-authclient/transport"
)

func newService(t *testing.T) (*api.Service, *authtest.Server) {
	t.Helper()

	srv := authtest.New(t)
	client := transport.New(srv.URL())
	return api.NewService(client), srv
}

func TestLogin(t *testing.T) {
	svc, srv := newService(t)
	seeded := srv.SeedUser("a@b.com", "secret123", "Ada", "Byron")

	res, err := svc.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, seeded.CUID, res.User.CUID)
	assert.Equal(t, "a@b.com", res.User.Email)
}

func TestLoginBadCredentials(t *testing.T) {
	svc, srv := newService(t)
	srv.SeedUser("a@b.com", "secret123", "Ada", "Byron")

	_, err := svc.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)

	var rich *goerrors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, "LOGIN_FAILED", rich.TextCode)
	assert.Equal(t, 401, rich.Metadata["status"])
}

func TestLoginPayloadValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Login(context.Background(), "not-an-email", "secret123")
	require.Error(t, err)

	_, err = svc.Login(context.Background(), "a@b.com", "")
	require.Error(t, err)
}

func TestRegister(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	req := api.RegisterRequest{
		FirstName: "Ada",
		LastName:  "Byron",
		Email:     "new@b.com",
		Password:  "secret123",
	}
	require.NoError(t, svc.Register(ctx, req))

	// Registering the same email again must surface a typed failure.
	err := svc.Register(ctx, req)
	require.Error(t, err)

	var rich *goerrors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, "REGISTRATION_FAILED", rich.TextCode)
	assert.Equal(t, 409, rich.Metadata["status"])
}

func TestValidateSession(t *testing.T) {
	svc, srv := newService(t)
	srv.SeedUser("a@b.com", "secret123", "Ada", "Byron")
	ctx := context.Background()

	// Without a credential the session is invalid.
	_, err := svc.ValidateSession(ctx)
	assert.True(t, api.IsSessionInvalid(err))
	assert.True(t, api.IsAuthorizationExpired(err))

	_, err = svc.Login(ctx, "a@b.com", "secret123")
	require.NoError(t, err)

	// The service is stateless: the credential lives on the transport.
	// Attach it there and validation succeeds.
	client := transport.New(srv.URL())
	client.SetCredential(srv.CurrentAccessToken())
	user, err := api.NewService(client).ValidateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
}

func TestRefreshWithoutCookie(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsRefreshFailure(err))
}

func TestRefreshAfterLogin(t *testing.T) {
	svc, srv := newService(t)
	srv.SeedUser("a@b.com", "secret123", "Ada", "Byron")
	ctx := context.Background()

	first, err := svc.Login(ctx, "a@b.com", "secret123")
	require.NoError(t, err)

	// The login response set the refresh cookie on the shared jar.
	token, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, first.AccessToken, token)
	assert.Equal(t, 1, srv.RefreshCalls())
}

func TestCheckEmail(t *testing.T) {
	svc, srv := newService(t)
	srv.SeedUser("a@b.com", "secret123", "Ada", "Byron")
	ctx := context.Background()

	exists, err := svc.CheckEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.CheckEmail(ctx, "missing@b.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, srv := newService(t)
	srv.SeedUser("a@b.com", "secret123", "Ada", "Byron")
	ctx := context.Background()

	require.NoError(t, svc.GenerateOTP(ctx, "a@b.com", api.PurposeResetPassword))

	// Wrong code surfaces the server-supplied message verbatim.
	_, err := svc.ValidateOTP(ctx, "a@b.com", "000000", api.PurposeResetPassword)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid or expired code")

	require.NoError(t, svc.GenerateOTP(ctx, "a@b.com", api.PurposeResetPassword))
	otp, err := svc.ValidateOTP(ctx, "a@b.com", "123456", api.PurposeResetPassword)
	require.NoError(t, err)
	require.NotEmpty(t, otp.ResetToken)

	verdict, err := svc.VerifyResetToken(ctx, otp.ResetToken)
	require.NoError(t, err)
	assert.True(t, verdict.Valid)
	assert.Equal(t, "a@b.com", verdict.Email)

	require.NoError(t, svc.ResetPassword(ctx, "a@b.com", "brandnewpass", otp.ResetToken))

	// Old password is gone, new password works.
	_, err = svc.Login(ctx, "a@b.com", "secret123")
	require.Error(t, err)

	_, err = svc.Login(ctx, "a@b.com", "brandnewpass")
	require.NoError(t, err)
}

func TestVerifyResetTokenInvalid(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.VerifyResetToken(context.Background(), "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reset token")
}

func TestExchangeGoogleCode(t *testing.T) {
	svc, srv := newService(t)
	seeded := srv.SeedUser("a@b.com", "secret123", "Ada", "Byron")
	srv.SeedGoogleCode("code-1", "a@b.com")
	ctx := context.Background()

	res, err := svc.ExchangeGoogleCode(ctx, "code-1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, seeded.CUID, res.User.CUID)

	// The server consumes the code on first use.
	_, err = svc.ExchangeGoogleCode(ctx, "code-1")
	require.Error(t, err)

	var rich *goerrors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, "EXCHANGE_FAILED", rich.TextCode)
}

func TestChangePassword(t *testing.T) {
	_, srv := newService(t)
	srv.SeedUser("a@b.com", "secret123", "Ada", "Byron")
	ctx := context.Background()

	client := transport.New(srv.URL())
	svc := api.NewService(client)

	res, err := svc.Login(ctx, "a@b.com", "secret123")
	require.NoError(t, err)

	client.SetCredential(res.AccessToken)
	require.NoError(t, svc.ChangePassword(ctx, "changedpass1"))

	_, err = svc.Login(ctx, "a@b.com", "changedpass1")
	require.NoError(t, err)
}
