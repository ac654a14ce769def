package authclient

import (
	"fmt"

	"github.com/insightify/go-authclient/api"
)

// Status is the tagged session state.
type Status string

const (
	// StatusBootstrapping is the initial state: the persisted credential is
	// being loaded and validated.
	StatusBootstrapping Status = "bootstrapping"
	// StatusUnauthenticated means no confirmed user; a provisional token may
	// still be attached pending its validation retry.
	StatusUnauthenticated Status = "unauthenticated"
	// StatusAuthenticated means credential present and user confirmed.
	StatusAuthenticated Status = "authenticated"
	// StatusRefreshing means a credential renewal is in flight.
	StatusRefreshing Status = "refreshing"
)

// Session is the consumer-observable snapshot of authentication state.
// Consumers must not make authorization decisions while IsLoading is true.
type Session struct {
	AccessToken string
	CurrentUser *api.User
	IsLoading   bool
}

// Authenticated reports whether the snapshot holds a confirmed user.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.CurrentUser != nil
}

func (s Session) String() string {
	user := "<nil>"
	if s.CurrentUser != nil {
		user = s.CurrentUser.Email
	}
	return fmt.Sprintf("user=%s token_present=%t loading=%t", user, s.AccessToken != "", s.IsLoading)
}
