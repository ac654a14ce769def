// Package authclient maintains a client-side authentication session against
// the Insightify API: a short-lived access credential, its transparent
// renewal through a long-lived refresh credential, and the synchronization
// of that credential across in-memory state, persistent storage, and
// outgoing requests.
//
// Session lifecycle:
//   - The Manager owns an explicit tagged state (Bootstrapping,
//     Unauthenticated, Authenticated, Refreshing) with a transition table,
//     so illegal session states are unrepresentable.
//   - Bootstrap loads the persisted credential, attaches it to the
//     transport, and validates it against the server. A persisted token that
//     was never confirmed survives its first failed validation; a confirmed
//     session that later fails validation is torn down.
//   - Login, Logout, FetchCurrentUser, and HandleGoogleCallback are the
//     state-affecting operations; each releases the loading flag on every
//     exit path.
//
// Renewal protocol:
//   - RefreshHook is a response hook installed into the transport client. A
//     403 triggers at most one refresh-and-retry per originating request;
//     concurrent 403s attach to a single in-flight refresh call, and a
//     failed refresh tears the session down and propagates the original
//     error.
//
// State updates are guarded by a session generation counter so a response
// that settles after logout cannot resurrect the session.
package authclient
