package authclient_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/insightify/go-authclient/api"
)

// MockSessionAPI implements authclient.SessionAPI
type MockSessionAPI struct {
	mock.Mock
}

func (m *MockSessionAPI) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*api.LoginResponse)
	return res, args.Error(1)
}

func (m *MockSessionAPI) Register(ctx context.Context, req api.RegisterRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockSessionAPI) ValidateSession(ctx context.Context) (*api.User, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*api.User)
	return user, args.Error(1)
}

func (m *MockSessionAPI) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSessionAPI) Refresh(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSessionAPI) ExchangeGoogleCode(ctx context.Context, code string) (*api.LoginResponse, error) {
	args := m.Called(ctx, code)
	res, _ := args.Get(0).(*api.LoginResponse)
	return res, args.Error(1)
}
