package sciencebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httputil"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultMaxItemCount is the page size of the id finders and the chunk
	// size of DeleteItems. It matches the server-side bulk limit.
	DefaultMaxItemCount = 1000

	defaultTimeout   = 5 * time.Minute
	defaultUserAgent = "sbgo"

	sessionParam  = "josso"
	sessionHeader = "MYUSGS-JOSSO-SESSION-ID"
	sessionCookie = "JOSSO_SESSIONID"
	requestID     = "X-Request-Id"

	maxErrorBody = 64 << 10
)

// Client talks to the ScienceBase catalog. A Client owns one session; it
// may be shared between goroutines, but login and logout change the identity
// seen by every caller. Login and Logout empty the cookie jar in place.
type Client struct {
	env       Environment
	endpoints Endpoints

	httpClient  *http.Client
	jar         *sessionJar
	fetchClient *http.Client
	logger      zerolog.Logger
	fs          afero.Fs

	timeout          time.Duration
	userAgent        string
	maxItemCount     int
	retry            RetryPolicy
	newTimer         func() backoff.Timer
	passwords        PasswordReader
	fetchConcurrency int
	scrapeFile       bool
	ftpDial          FTPDialer
	debug            bool
	debugOn          atomic.Bool

	mu      sync.RWMutex
	session session
}

type session struct {
	username string
	token    string
}

// NewClient creates a client for the given environment. No request is made.
func NewClient(env Environment, logger zerolog.Logger, opts ...Option) (*Client, error) {
	c := &Client{
		env:              env,
		endpoints:        EndpointsFor(env).normalized(),
		logger:           logger,
		fs:               afero.NewOsFs(),
		timeout:          defaultTimeout,
		userAgent:        defaultUserAgent,
		maxItemCount:     DefaultMaxItemCount,
		retry:            DefaultRetryPolicy(),
		passwords:        TerminalPasswordReader{},
		fetchConcurrency: 1,
		scrapeFile:       true,
		ftpDial:          dialFTP,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.endpoints.Catalog == "" {
		return nil, fmt.Errorf("%w: catalog URL is required", ErrPrecondition)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	} else {
		// Copy so the caller's client is not mutated
		hc := *c.httpClient
		c.httpClient = &hc
	}
	jar, err := newSessionJar(c.httpClient.Jar)
	if err != nil {
		return nil, err
	}
	c.jar = jar
	c.httpClient.Jar = jar
	c.httpClient.Transport = &loggingTransport{next: c.httpClient.Transport, client: c}

	if c.fetchClient == nil {
		c.fetchClient = &http.Client{Timeout: c.timeout}
	}

	c.debugOn.Store(c.debug)
	return c, nil
}

func newJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// sessionJar holds the session cookies. It is emptied by swapping the jar
// inside it, so the http.Client's Jar field never changes after NewClient.
type sessionJar struct {
	mu  sync.RWMutex
	jar http.CookieJar
}

// newSessionJar wraps initial, or a new jar when initial is nil
func newSessionJar(initial http.CookieJar) (*sessionJar, error) {
	if initial == nil {
		var err error
		if initial, err = newJar(); err != nil {
			return nil, err
		}
	}
	return &sessionJar{jar: initial}, nil
}

func (j *sessionJar) current() http.CookieJar {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.current().SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	return j.current().Cookies(u)
}

// reset drops every cookie
func (j *sessionJar) reset() error {
	jar, err := newJar()
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	return nil
}

// Environment returns the environment the client was built for
func (c *Client) Environment() Environment {
	return c.env
}

// Endpoints returns the URLs the client uses
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// SetDebug turns request/response header logging on or off
func (c *Client) SetDebug(enabled bool) {
	c.debugOn.Store(enabled)
}

// Token returns the current session token, or "" when logged out
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.token
}

// Username returns the user of the last successful login
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.username
}

func (c *Client) requireSession() error {
	if c.Token() == "" {
		return ErrNotLoggedIn
	}
	return nil
}

// newRequest builds a request carrying the standard headers and, when
// logged in, the session token as both query parameter and header.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, params url.Values, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	q := u.Query()
	for k, vals := range params {
		for _, v := range vals {
			q.Add(k, v)
		}
	}
	token := c.Token()
	if token != "" {
		q.Set(sessionParam, token)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestID, uuid.NewString())
	if token != "" {
		req.Header.Set(sessionHeader, token)
	}

	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", redactURL(req.URL)).
		Str("request_id", req.Header.Get(requestID)).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("ScienceBase request")

	return resp, nil
}

// checkResponse converts a non-2xx response into an *APIError. The body is
// consumed and closed in that case.
func checkResponse(resp *http.Response) error {
	outcome := Classify(resp.StatusCode)
	if outcome == OutcomeSuccess {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Outcome:    outcome,
		Header:     resp.Header.Clone(),
		Body:       string(body),
	}
	if resp.Request != nil {
		apiErr.URL = redactURL(resp.Request.URL)
	}
	return apiErr
}

// send performs a request with an optional JSON payload and returns the
// response with its body open. Non-2xx statuses are returned as *APIError.
func (c *Client) send(ctx context.Context, method, rawURL string, params url.Values, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, rawURL, params, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// doJSON performs a request and decodes the JSON response into out.
// A nil out discards the body.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, params url.Values, payload, out any) error {
	resp, err := c.send(ctx, method, rawURL, params, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s", ErrParse, truncate(string(body), 512))
	}
	return nil
}

// Get returns the text body of any URL, sent with the current session
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// GetJSON decodes the JSON body of any URL into out
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	return c.doJSON(ctx, http.MethodGet, rawURL, nil, nil, out)
}

// Ping is a very low-cost call to check that ScienceBase is available
func (c *Client) Ping(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	if err := c.GetJSON(ctx, c.endpoints.item()+"ping", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// sensitiveParams are query parameters never written to the logs
var sensitiveParams = []string{sessionParam, "josso_password"}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return redactedURL(u).String()
}

// redactedURL returns u, or a copy of it with sensitive parameters masked
func redactedURL(u *url.URL) *url.URL {
	q := u.Query()
	found := false
	for _, name := range sensitiveParams {
		if q.Has(name) {
			q.Set(name, "REDACTED")
			found = true
		}
	}
	if !found {
		return u
	}
	cp := *u
	cp.RawQuery = q.Encode()
	return &cp
}

// redactedHeader returns a copy of h with session credentials masked
func redactedHeader(h http.Header) http.Header {
	out := h.Clone()
	for _, name := range []string{sessionHeader, "Cookie", "Set-Cookie"} {
		if values := out.Values(name); len(values) > 0 {
			out[http.CanonicalHeaderKey(name)] = slices.Repeat([]string{"REDACTED"}, len(values))
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// loggingTransport dumps request and response headers when debug is on
type loggingTransport struct {
	next   http.RoundTripper
	client *Client
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	if !t.client.debugOn.Load() {
		return next.RoundTrip(req)
	}

	// Credentials travel in the query string as well as in headers
	logged := req.Clone(req.Context())
	logged.URL = redactedURL(req.URL)
	logged.Header = redactedHeader(req.Header)
	if dump, err := httputil.DumpRequestOut(logged, false); err == nil {
		t.client.logger.Trace().Str("request_id", req.Header.Get(requestID)).Msg(string(dump))
	}
	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	loggedResp := *resp
	loggedResp.Header = redactedHeader(resp.Header)
	if dump, err := httputil.DumpResponse(&loggedResp, false); err == nil {
		t.client.logger.Trace().Str("request_id", req.Header.Get(requestID)).Msg(string(dump))
	}
	return resp, nil
}
