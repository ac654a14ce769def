// Package transport provides the HTTP client the session manager keeps in
// lockstep with its in-memory credential. The client owns a single mutable
// credential slot, attaches it as a bearer header to every outgoing request,
// carries the server's refresh cookie through a jar, and runs every response
// through a hook chain before it reaches the caller.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// Logger is the minimal logging contract used across the client packages.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCLIENT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// DefaultLogger returns the fallback logger used when none is injected.
func DefaultLogger() Logger {
	return defLogger{}
}

// Request describes one outgoing call. Body is JSON-encoded when non-nil.
// The retried flag rides on the request value itself so concurrent requests
// are retried independently of each other.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	retried bool
}

// MarkRetried flags the request so the renewal hook will not retry it again.
func (r *Request) MarkRetried() {
	r.retried = true
}

// Retried reports whether the request has already been retried once.
func (r *Request) Retried() bool {
	return r.retried
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body into out.
func (r *Response) JSON(out any) error {
	if len(r.Body) == 0 {
		return errors.New("transport: empty response body", errors.CategoryOperation)
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "transport: failed to decode response body")
	}
	return nil
}

// ResponseHook observes (and may replace) every response flowing through the
// client before it reaches the caller.
type ResponseHook func(ctx context.Context, c *Client, req *Request, res *Response, err error) (*Response, error)

// Client issues JSON requests against a base URL with the current credential
// attached. Safe for concurrent use.
type Client struct {
	baseURL string
	scheme  string
	http    *http.Client
	logger  Logger

	mu    sync.RWMutex
	token string

	hookMu sync.RWMutex
	hooks  []ResponseHook
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The caller is
// responsible for configuring a cookie jar when the refresh credential is
// cookie-carried.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the request timeout on the default underlying client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithAuthScheme overrides the Authorization scheme, "Bearer" by default.
func WithAuthScheme(scheme string) Option {
	return func(c *Client) {
		if scheme != "" {
			c.scheme = scheme
		}
	}
}

// WithLogger overrides the fallback logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client rooted at baseURL. The default underlying client
// carries a cookie jar so server-set refresh cookies survive across calls.
func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		scheme:  "Bearer",
		logger:  defLogger{},
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// SetCredential sets or clears the bearer credential attached to every
// subsequent request. This slot is the single source of truth the session
// manager keeps in lockstep with its in-memory token.
func (c *Client) SetCredential(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Credential returns the currently attached credential, empty when cleared.
func (c *Client) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Use appends a response hook. Hooks run in registration order after every
// request issued through Do.
func (c *Client) Use(hook ResponseHook) {
	if hook == nil {
		return
	}
	c.hookMu.Lock()
	c.hooks = append(c.hooks, hook)
	c.hookMu.Unlock()
}

// Do issues the request and runs the response through the hook chain.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	res, err := c.Send(ctx, req)

	c.hookMu.RLock()
	hooks := c.hooks
	c.hookMu.RUnlock()

	for _, hook := range hooks {
		res, err = hook(ctx, c, req, res, err)
	}

	return res, err
}

// Send issues the request without running the hook chain. Hooks use it to
// re-issue an already-observed request; the credential is read at send time
// so a retry picks up a renewed token automatically.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "transport: failed to encode request body")
		}
		body = bytes.NewReader(payload)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "transport: failed to build request")
	}

	hreq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}

	if token := c.Credential(); token != "" {
		hreq.Header.Set("Authorization", c.scheme+" "+token)
	}

	hres, err := c.http.Do(hreq)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "transport: request failed").
			WithMetadata(map[string]any{
				"method": req.Method,
				"path":   req.Path,
			})
	}
	defer hres.Body.Close()

	raw, err := io.ReadAll(hres.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "transport: failed to read response body")
	}

	return &Response{
		StatusCode: hres.StatusCode,
		Header:     hres.Header,
		Body:       raw,
	}, nil
}
