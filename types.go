package authclient

import (
	"context"

	"github.com/insightify/go-authclient/api"
	"github.com/insightify/go-authclient/transport"
)

// Logger is the logging contract shared across the client packages.
type Logger = transport.Logger

// SessionAPI holds the server operations the Manager orchestrates. The
// concrete implementation is api.Service; tests inject mocks.
type SessionAPI interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) error
	ValidateSession(ctx context.Context) (*api.User, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (string, error)
	ExchangeGoogleCode(ctx context.Context, code string) (*api.LoginResponse, error)
}

// Config holds client options.
type Config interface {
	GetBaseURL() string
	GetAuthScheme() string
	GetRequestTimeout() int
	GetStorageKey() string
}

// ClientConfig is a plain Config implementation. Zero fields fall back to
// defaults when the Manager is constructed.
type ClientConfig struct {
	BaseURL        string
	AuthScheme     string
	RequestTimeout int
	StorageKey     string
}

func (c ClientConfig) GetBaseURL() string     { return c.BaseURL }
func (c ClientConfig) GetAuthScheme() string  { return c.AuthScheme }
func (c ClientConfig) GetRequestTimeout() int { return c.RequestTimeout }
func (c ClientConfig) GetStorageKey() string  { return c.StorageKey }
