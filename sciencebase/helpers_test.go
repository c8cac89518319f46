package sciencebase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "user@usgs.gov"
	testPassword = "secret"
	testToken    = "session-token-1"
)

// newTestServer starts a fake ScienceBase with a working JOSSO login.
// Handlers for the catalog are added to the returned mux.
func newTestServer(t *testing.T) (*httptest.Server, *http.ServeMux) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /josso/signon/usernamePasswordLogin.do", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("josso_cmd") == "josso" && q.Get("josso_password") == testPassword {
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: testToken, Path: "/"})
		}
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, mux
}

func testEndpoints(base string) Endpoints {
	return Endpoints{
		Catalog:   base + "/catalog/",
		Directory: base + "/directory/",
		Login:     base + "/josso/signon/usernamePasswordLogin.do",
		UsersID:   "users-folder",
	}
}

func newTestClient(t *testing.T, server *httptest.Server, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{WithEndpoints(testEndpoints(server.URL))}, opts...)
	client, err := NewClient(Dev, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return client
}

func loggedInClient(t *testing.T, server *httptest.Server, opts ...Option) *Client {
	t.Helper()

	client := newTestClient(t, server, opts...)
	require.NoError(t, client.Login(context.Background(), testUser, testPassword))
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func readJSON(t *testing.T, r *http.Request, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(v))
}

// counting wraps a handler and counts its calls
func counting(n *atomic.Int32, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		h(w, r)
	}
}

// fakeTimer fires immediately and records every requested wait
type fakeTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (f *fakeTimer) Start(d time.Duration) {
	f.waits = append(f.waits, d)
	f.c = make(chan time.Time, 1)
	f.c <- time.Now()
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time {
	return f.c
}

func withFakeTimer(c *Client) *fakeTimer {
	timer := &fakeTimer{}
	c.newTimer = func() backoff.Timer { return timer }
	return timer
}
