// Package store persists the client's access credential across restarts.
//
// A CredentialStore is pure key-value persistence: no validation, no network
// calls. Three implementations are provided; Memory for tests and throwaway
// sessions, File for encrypted on-disk storage, and Bun for deployments that
// already carry a SQLite database.
package store

import (
	"context"
)

// Record is the subset of session state written to durable storage. The
// refresh token is only populated in storage-based deployments; the default
// cookie mode leaves it empty and relies on the transport's cookie jar.
type Record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// CredentialStore is the persistence contract used by the session manager.
// Read returns (nil, nil) when no credential is stored; Erase on an empty
// store is a no-op.
type CredentialStore interface {
	Read(ctx context.Context) (*Record, error)
	Write(ctx context.Context, rec *Record) error
	Erase(ctx context.Context) error
}
