package authclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-print"

	"github.com/insightify/go-authclient/api"
	"github.com/insightify/go-authclient/store"
	"github.com/insightify/go-authclient/transport"
)

// Manager owns the authentication state machine, the renewal protocol, and
// the persisted credential. It composes the credential store, the transport
// client, and the session API; consumers read Session() and call the
// state-affecting operations.
type Manager struct {
	cfg    Config
	client *transport.Client
	api    SessionAPI
	store  store.CredentialStore
	log    Logger
	sm     *sessionStateMachine
	debug  bool

	mu           sync.Mutex
	status       Status
	token        string
	user         *api.User
	loading      int
	gen          uint64
	sparedOnce   bool
	bootstrapped bool
	pending      *refreshCall
	usedCodes    map[string]struct{}
}

// refreshCall is the single shared pending-refresh handle; concurrent 403
// handlers attach to it instead of issuing redundant refresh calls.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

type managerOptions struct {
	logger     Logger
	store      store.CredentialStore
	api        SessionAPI
	httpClient *http.Client
	observer   StateObserver
	debug      bool
}

// Option customizes Manager construction.
type Option func(*managerOptions)

// WithLogger overrides the fallback logger.
func WithLogger(logger Logger) Option {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStore injects the credential store; the default keeps the credential
// in memory only.
func WithStore(s store.CredentialStore) Option {
	return func(o *managerOptions) {
		if s != nil {
			o.store = s
		}
	}
}

// WithSessionAPI replaces the API implementation (useful for tests).
func WithSessionAPI(s SessionAPI) Option {
	return func(o *managerOptions) {
		if s != nil {
			o.api = s
		}
	}
}

// WithHTTPClient replaces the transport's underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *managerOptions) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithStateObserver registers a callback notified on every status change.
func WithStateObserver(observer StateObserver) Option {
	return func(o *managerOptions) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithDebug enables verbose payload logging.
func WithDebug(debug bool) Option {
	return func(o *managerOptions) {
		o.debug = debug
	}
}

// New creates a Manager rooted at cfg.GetBaseURL(). The returned manager is
// in the Bootstrapping state; call Bootstrap to load and validate the
// persisted credential.
func New(cfg Config, opts ...Option) *Manager {
	o := &managerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	logger := o.logger
	if logger == nil {
		logger = transport.DefaultLogger()
	}

	timeout := 30 * time.Second
	if cfg.GetRequestTimeout() > 0 {
		timeout = time.Duration(cfg.GetRequestTimeout()) * time.Second
	}

	tOpts := []transport.Option{
		transport.WithLogger(logger),
		transport.WithTimeout(timeout),
	}
	if cfg.GetAuthScheme() != "" {
		tOpts = append(tOpts, transport.WithAuthScheme(cfg.GetAuthScheme()))
	}
	if o.httpClient != nil {
		tOpts = append(tOpts, transport.WithHTTPClient(o.httpClient))
	}

	client := transport.New(cfg.GetBaseURL(), tOpts...)

	m := &Manager{
		cfg:       cfg,
		client:    client,
		log:       logger,
		sm:        newSessionStateMachine(logger, o.observer),
		status:    StatusBootstrapping,
		debug:     o.debug,
		usedCodes: map[string]struct{}{},
	}

	if o.store != nil {
		m.store = o.store
	} else {
		m.store = store.NewMemoryStore()
	}

	if o.api != nil {
		m.api = o.api
	} else {
		m.api = api.NewService(client, api.WithLogger(logger))
	}

	client.Use(RefreshHook(m.RefreshAccessToken, logger))

	return m
}

var _ SessionAPI = &api.Service{}

// Session returns the consumer-observable snapshot. Token, user, and
// loading flag are read under one lock so they are mutually consistent.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Session{
		AccessToken: m.token,
		IsLoading:   m.loading > 0,
	}
	if m.user != nil {
		cp := *m.user
		s.CurrentUser = &cp
	}
	return s
}

// Status returns the current tagged session state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// AccessToken returns the current access token, empty when absent.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// CurrentUser returns a copy of the confirmed user, nil when absent.
func (m *Manager) CurrentUser() *api.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	cp := *m.user
	return &cp
}

// API exposes the session API for the stateless flows (OTP, password reset,
// email checks) that mutate no session state.
func (m *Manager) API() SessionAPI {
	return m.api
}

// Client exposes the transport client the manager keeps in lockstep with
// its session state.
func (m *Manager) Client() *transport.Client {
	return m.client
}

// Bootstrap loads the persisted credential, attaches it to the transport so
// the validation call carries it, and validates the session. It runs once;
// later calls are no-ops. A validation failure is folded into session state
// rather than surfaced: a never-confirmed token survives its first failure.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.mu.Lock()
	if m.bootstrapped {
		m.mu.Unlock()
		m.log.Debug("bootstrap already ran")
		return nil
	}
	m.bootstrapped = true
	m.mu.Unlock()

	m.beginLoading()
	defer m.endLoading()

	rec, err := m.store.Read(ctx)
	if err != nil {
		m.log.Warn("failed to read persisted credential: %v", err)
	}

	if rec != nil && rec.AccessToken != "" {
		if exp, perr := TokenExpiry(rec.AccessToken); perr == nil {
			m.log.Debug("persisted access token expires at %s", exp.Format(time.RFC3339))
		}

		m.mu.Lock()
		m.client.SetCredential(rec.AccessToken)
		m.token = rec.AccessToken
		m.mu.Unlock()
	}

	// Validate unconditionally: in the cookie deployment mode the server can
	// recognize the session without a bearer token.
	if err := m.fetchCurrentUser(ctx); err != nil {
		m.log.Info("bootstrap validation failed: %v", err)
	}

	return nil
}

// Login authenticates with email and password. On success the new token is
// persisted, attached to the transport, and exposed together with the user
// in one atomic update; on failure local state resets to unauthenticated
// and the error propagates to the caller.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.beginLoading()
	defer m.endLoading()

	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.mu.Lock()
		m.clearSessionLocked()
		m.mu.Unlock()

		if serr := m.store.Erase(ctx); serr != nil {
			m.log.Warn("failed to erase persisted credential: %v", serr)
		}
		return err
	}

	if m.debug {
		m.log.Debug("login response user: %s", print.MaybePrettyJSON(res.User))
	}

	m.applySession(ctx, res.AccessToken, &res.User)
	return nil
}

// Register creates an account. Registration performs no session transition;
// the caller logs in afterwards.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) error {
	m.beginLoading()
	defer m.endLoading()

	return m.api.Register(ctx, req)
}

// Logout drops the session. The server call is best-effort: a network
// failure must never leave the user appearing authenticated, so local
// cleanup runs unconditionally.
func (m *Manager) Logout(ctx context.Context) error {
	m.beginLoading()
	defer m.endLoading()

	if err := m.api.Logout(ctx); err != nil {
		m.log.Warn("logout call failed, clearing local session anyway: %v", err)
	}

	m.mu.Lock()
	m.gen++
	m.clearSessionLocked()
	m.mu.Unlock()

	if err := m.store.Erase(ctx); err != nil {
		m.log.Warn("failed to erase persisted credential: %v", err)
	}

	return nil
}

// FetchCurrentUser validates the session and updates the confirmed user.
func (m *Manager) FetchCurrentUser(ctx context.Context) error {
	return m.fetchCurrentUser(ctx)
}

func (m *Manager) fetchCurrentUser(ctx context.Context) error {
	m.beginLoading()
	defer m.endLoading()

	m.mu.Lock()
	gen := m.gen
	hadUser := m.user != nil
	spared := m.sparedOnce
	m.mu.Unlock()

	user, err := m.api.ValidateSession(ctx)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.log.Debug("discarding stale session validation result")
		return nil
	}

	if err == nil {
		m.user = user
		m.sparedOnce = false
		m.setStatusLocked(StatusAuthenticated)
		m.mu.Unlock()
		return nil
	}

	if hadUser || spared {
		// A confirmed session failed validation, or the grace retry for a
		// persisted token failed as well: tear everything down.
		m.clearSessionLocked()
		m.mu.Unlock()

		if serr := m.store.Erase(ctx); serr != nil {
			m.log.Warn("failed to erase persisted credential: %v", serr)
		}
		return err
	}

	// First validation failure for a never-confirmed token: keep it so one
	// transient blip cannot destroy a still-valid session.
	m.sparedOnce = true
	m.setStatusLocked(StatusUnauthenticated)
	m.mu.Unlock()

	m.log.Info("initial session validation failed, keeping token for retry: %v", err)
	return err
}

// RefreshAccessToken renews the access credential. Only one refresh is ever
// in flight; callers arriving while one is pending attach to it and share
// its outcome. Refresh failure is terminal for the current session.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	if call := m.pending; call != nil {
		m.mu.Unlock()
		<-call.done
		return call.token, call.err
	}

	call := &refreshCall{done: make(chan struct{})}
	m.pending = call
	gen := m.gen
	prev := m.status
	if prev == StatusAuthenticated || prev == StatusBootstrapping {
		m.setStatusLocked(StatusRefreshing)
	}
	m.mu.Unlock()

	token, err := m.api.Refresh(ctx)

	m.mu.Lock()
	m.pending = nil
	stale := gen != m.gen
	if !stale {
		if err != nil {
			m.clearSessionLocked()
		} else {
			m.client.SetCredential(token)
			m.token = token
			m.sparedOnce = false
			switch {
			case m.user != nil:
				m.setStatusLocked(StatusAuthenticated)
			case prev == StatusBootstrapping:
				m.setStatusLocked(StatusBootstrapping)
			default:
				m.setStatusLocked(StatusUnauthenticated)
			}
		}
	}
	m.mu.Unlock()

	if !stale {
		if err != nil {
			if serr := m.store.Erase(ctx); serr != nil {
				m.log.Warn("failed to erase persisted credential: %v", serr)
			}
		} else {
			m.persistToken(ctx, token)
		}
	}

	call.token, call.err = token, err
	close(call.done)

	return token, err
}

// applySession installs a new token/user pair: persist, then flip transport
// and memory under one lock so no observer sees them diverge. The
// generation bump invalidates any in-flight operation from the previous
// session line.
func (m *Manager) applySession(ctx context.Context, token string, user *api.User) {
	m.persistToken(ctx, token)

	m.mu.Lock()
	m.gen++
	m.client.SetCredential(token)
	m.token = token
	m.user = user
	m.sparedOnce = false
	m.setStatusLocked(StatusAuthenticated)
	m.mu.Unlock()
}

func (m *Manager) persistToken(ctx context.Context, token string) {
	rec, err := m.store.Read(ctx)
	if err != nil || rec == nil {
		rec = &store.Record{}
	}
	rec.AccessToken = token

	if err := m.store.Write(ctx, rec); err != nil {
		m.log.Warn("failed to persist access token: %v", err)
	}
}

func (m *Manager) clearSessionLocked() {
	m.client.SetCredential("")
	m.token = ""
	m.user = nil
	m.sparedOnce = false
	m.setStatusLocked(StatusUnauthenticated)
}

func (m *Manager) setStatusLocked(to Status) {
	next, err := m.sm.Transition(m.status, to)
	if err != nil {
		m.log.Error("session transition rejected: %v", err)
		return
	}
	m.status = next
}

func (m *Manager) beginLoading() {
	m.mu.Lock()
	m.loading++
	m.mu.Unlock()
}

func (m *Manager) endLoading() {
	m.mu.Lock()
	if m.loading > 0 {
		m.loading--
	}
	m.mu.Unlock()
}
