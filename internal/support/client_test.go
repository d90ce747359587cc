package support

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/RichardoC/support-widget/internal/session"
)

type fakeBackend struct {
	mu       sync.Mutex
	requests []map[string]any
	raw      [][]byte
	headers  []http.Header
	errs     []error
	handler  func(w http.ResponseWriter, body map[string]any)
}

// newFakeBackend serves /support/chat. Problems seen by the handler are
// collected and asserted from the test goroutine at cleanup.
func newFakeBackend(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{handler: handler}
	mux := http.NewServeMux()
	mux.HandleFunc("/support/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			fb.fail(errors.Errorf("unexpected method %s", r.Method))
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			fb.fail(errors.Wrap(err, "read body"))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			fb.fail(errors.Wrap(err, "decode body"))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		fb.mu.Lock()
		fb.requests = append(fb.requests, body)
		fb.raw = append(fb.raw, raw)
		fb.headers = append(fb.headers, r.Header.Clone())
		fb.mu.Unlock()

		fb.handler(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		fb.mu.Lock()
		defer fb.mu.Unlock()
		require.Empty(t, fb.errs)
	})
	return fb, srv
}

func (fb *fakeBackend) fail(err error) {
	fb.mu.Lock()
	fb.errs = append(fb.errs, err)
	fb.mu.Unlock()
}

func (fb *fakeBackend) count() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.requests)
}

func reply(sessionID, text string) func(w http.ResponseWriter, body map[string]any) {
	return func(w http.ResponseWriter, body map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_id": sessionID,
			"status":     "SELF_SERVE_IN_PROGRESS",
			"reply":      text,
		})
	}
}

func newTestClient(t *testing.T, url string, store session.Store, opts ...Option) *Client {
	t.Helper()
	c, err := New(url, store, opts...)
	require.NoError(t, err)
	return c
}

func TestSendFirstExchangeStartsSession(t *testing.T) {
	fb, srv := newFakeBackend(t, reply("abc123", "Can you tell me the error code?"))
	store := session.NewMemory()
	c := newTestClient(t, srv.URL, store)
	require.Equal(t, StateNotStarted, c.State())
	require.Equal(t, "not-started", c.SessionLabel())

	out := c.Send(context.Background(), "My app crashes on login")

	r, ok := out.(Reply)
	require.True(t, ok, "expected Reply, got %#v", out)
	require.Equal(t, "Can you tell me the error code?", r.Text)
	require.Equal(t, "abc123", r.SessionID)
	require.Equal(t, "SELF_SERVE_IN_PROGRESS", r.Status)

	require.Equal(t, 1, fb.count())
	body := fb.requests[0]
	sid, present := body["session_id"]
	require.True(t, present)
	require.Nil(t, sid)
	require.Equal(t, "customer-001", body["customer_id"])
	require.Equal(t, "My app crashes on login", body["message"])
	require.Equal(t, map[string]any{"channel": "website"}, body["context"])
	require.Equal(t, "application/json", fb.headers[0].Get("Content-Type"))
	require.NotEmpty(t, fb.headers[0].Get("X-Request-ID"))

	id, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, "abc123", id)
	require.Equal(t, StateActive, c.State())
	require.Equal(t, "abc123", c.SessionLabel())
	current, state := c.Session()
	require.Equal(t, "abc123", current)
	require.Equal(t, StateActive, state)
}

func TestSendReusesStoredSession(t *testing.T) {
	fb, srv := newFakeBackend(t, reply("abc123", "Thanks, looking up E42."))
	store := session.NewMemory()
	store.Set("abc123")
	c := newTestClient(t, srv.URL, store)

	out := c.Send(context.Background(), "Error E42")
	require.IsType(t, Reply{}, out)

	require.Equal(t, 1, fb.count())
	require.Equal(t, "abc123", fb.requests[0]["session_id"])
	require.Equal(t, "Error E42", fb.requests[0]["message"])
}

func TestSendTrimsInput(t *testing.T) {
	fb, srv := newFakeBackend(t, reply("S1", "ok"))
	c := newTestClient(t, srv.URL, session.NewMemory())

	c.Send(context.Background(), "  \tprinter offline \n")
	require.Equal(t, 1, fb.count())
	require.Equal(t, "printer offline", fb.requests[0]["message"])
}

func TestSendReplacesInvalidUTF8(t *testing.T) {
	fb, srv := newFakeBackend(t, reply("S1", "ok"))
	c := newTestClient(t, srv.URL, session.NewMemory())

	require.IsType(t, Reply{}, c.Send(context.Background(), "bad \xff\xfe byte"))
	require.Equal(t, 1, fb.count())
	require.True(t, utf8.Valid(fb.raw[0]), "request body is not valid UTF-8: %q", fb.raw[0])

	msg, ok := fb.requests[0]["message"].(string)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(msg, "bad "))
	require.True(t, strings.HasSuffix(msg, " byte"))
	require.Contains(t, msg, "\uFFFD")
}

func TestSendSkipsBlankInput(t *testing.T) {
	fb, srv := newFakeBackend(t, reply("S1", "ok"))
	store := session.NewMemory()
	c := newTestClient(t, srv.URL, store)

	for _, in := range []string{"", " ", "\n\t  "} {
		require.Equal(t, Skipped{}, c.Send(context.Background(), in))
	}
	require.Zero(t, fb.count())
	_, ok := store.Get()
	require.False(t, ok)
}

func TestSendRefreshesSessionID(t *testing.T) {
	_, srv := newFakeBackend(t, reply("S2", "new session"))
	store := session.NewMemory()
	store.Set("S1")
	c := newTestClient(t, srv.URL, store)

	require.IsType(t, Reply{}, c.Send(context.Background(), "hello"))
	id, _ := store.Get()
	require.Equal(t, "S2", id)
}

func TestSendBackendErrorLeavesStoreUntouched(t *testing.T) {
	_, srv := newFakeBackend(t, func(w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	})
	store := session.NewMemory()
	store.Set("abc123")
	c := newTestClient(t, srv.URL, store)

	out := c.Send(context.Background(), "Error E42")

	f, ok := out.(Failure)
	require.True(t, ok, "expected Failure, got %#v", out)
	require.Contains(t, f.Message, "500")
	require.Contains(t, f.Message, "internal error")
	require.Equal(t, http.StatusInternalServerError, f.StatusCode)

	var backendErr *BackendError
	require.True(t, errors.As(f.Err, &backendErr))
	require.Equal(t, "internal error", backendErr.Body)

	id, _ := store.Get()
	require.Equal(t, "abc123", id)
}

func TestSendBackendErrorWithoutPriorSession(t *testing.T) {
	_, srv := newFakeBackend(t, func(w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusBadGateway)
	})
	store := session.NewMemory()
	c := newTestClient(t, srv.URL, store)

	out := c.Send(context.Background(), "hello")
	require.IsType(t, Failure{}, out)
	_, ok := store.Get()
	require.False(t, ok)
	require.Equal(t, StateNotStarted, c.State())
}

func TestSendTransportErrorLeavesStoreUntouched(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	store := session.NewMemory()
	store.Set("abc123")
	c := newTestClient(t, url, store)

	out := c.Send(context.Background(), "Error E42")

	f, ok := out.(Failure)
	require.True(t, ok, "expected Failure, got %#v", out)
	require.NotEmpty(t, f.Message)
	require.Contains(t, f.Message, "request failed")

	var transportErr *TransportError
	require.True(t, errors.As(f.Err, &transportErr))
	require.Contains(t, f.Message, transportErr.Err.Error())

	id, _ := store.Get()
	require.Equal(t, "abc123", id)
}

func TestSendMalformedResponseIsTransportFailure(t *testing.T) {
	cases := map[string]string{
		"not json":        "<html>gateway</html>",
		"missing session": `{"reply":"hi"}`,
		"null":            `null`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, srv := newFakeBackend(t, func(w http.ResponseWriter, _ map[string]any) {
				_, _ = w.Write([]byte(payload))
			})
			store := session.NewMemory()
			store.Set("keep")
			c := newTestClient(t, srv.URL, store)

			out := c.Send(context.Background(), "hello")
			f, ok := out.(Failure)
			require.True(t, ok, "expected Failure, got %#v", out)
			require.Contains(t, f.Message, "malformed response")

			id, _ := store.Get()
			require.Equal(t, "keep", id)
		})
	}
}

func TestSendCustomIdentity(t *testing.T) {
	fb, srv := newFakeBackend(t, reply("S1", "ok"))
	c := newTestClient(t, srv.URL, session.NewMemory(),
		WithCustomerID("customer-042"),
		WithChannel("kiosk"))

	c.Send(context.Background(), "hello")
	require.Equal(t, "customer-042", fb.requests[0]["customer_id"])
	require.Equal(t, map[string]any{"channel": "kiosk"}, fb.requests[0]["context"])
}

func TestOrderedUpdatesDropStaleSessionID(t *testing.T) {
	store := session.NewMemory()
	c := newTestClient(t, "http://backend.invalid", store, WithOrderedUpdates())

	c.apply(2, "newer")
	c.apply(1, "older")
	id, _ := store.Get()
	require.Equal(t, "newer", id)

	c.apply(3, "newest")
	id, _ = store.Get()
	require.Equal(t, "newest", id)
}

func TestUnorderedUpdatesLastResponseWins(t *testing.T) {
	store := session.NewMemory()
	c := newTestClient(t, "http://backend.invalid", store)

	c.apply(2, "newer")
	c.apply(1, "older")
	id, _ := store.Get()
	require.Equal(t, "older", id)
}

func TestConcurrentSendsResolvedOutOfOrder(t *testing.T) {
	cases := []struct {
		name   string
		opts   []Option
		wantID string
	}{
		{name: "ordered keeps newer session", opts: []Option{WithOrderedUpdates()}, wantID: "S-second"},
		{name: "unordered last response wins", wantID: "S-first"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			firstArrived := make(chan struct{})
			releaseFirst := make(chan struct{})
			_, srv := newFakeBackend(t, func(w http.ResponseWriter, body map[string]any) {
				if body["message"] == "first" {
					close(firstArrived)
					<-releaseFirst
					reply("S-first", "first reply")(w, body)
					return
				}
				reply("S-second", "second reply")(w, body)
			})
			store := session.NewMemory()
			c := newTestClient(t, srv.URL, store, tc.opts...)

			firstOut := make(chan Outcome, 1)
			go func() {
				firstOut <- c.Send(context.Background(), "first")
			}()
			<-firstArrived

			second := c.Send(context.Background(), "second")
			require.Equal(t, "second reply", second.(Reply).Text)
			id, _ := store.Get()
			require.Equal(t, "S-second", id)

			close(releaseFirst)
			first := <-firstOut
			require.Equal(t, "first reply", first.(Reply).Text)

			id, _ = store.Get()
			require.Equal(t, tc.wantID, id)
		})
	}
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New("http://", session.NewMemory())
	require.Error(t, err)

	_, err = New("http://localhost:8000", nil)
	require.Error(t, err)

	c, err := New("127.0.0.1:8000/", session.NewMemory())
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8000", c.BaseURL())

	c, err = New("https://support.example.com/api/", session.NewMemory())
	require.NoError(t, err)
	require.Equal(t, "https://support.example.com/api", c.BaseURL())
}

func TestHealth(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		_, _ = w.Write([]byte(`{"ok":true,"time":"2026-10-18T12:00:00Z"}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, session.NewMemory())
	ts, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2026-10-18T12:00:00Z", ts)
	require.Equal(t, "/health", <-paths)
}

func TestFetchSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/support/session/SESSION-AB12":
			_, _ = w.Write([]byte(`{"ok":true,"session":{"session_id":"SESSION-AB12","customer_id":"customer-001","status":"ESCALATED_TO_HUMAN","history":[{"ts":"t1","from":"customer","text":"help"}]}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":false,"error":"session not found"}`))
		}
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, session.NewMemory())

	rec, err := c.FetchSession(context.Background(), "SESSION-AB12")
	require.NoError(t, err)
	require.Equal(t, "ESCALATED_TO_HUMAN", rec.Status)
	require.Len(t, rec.History, 1)
	require.Equal(t, "help", rec.History[0].Text)

	_, err = c.FetchSession(context.Background(), "SESSION-NOPE")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = c.FetchSession(context.Background(), " ")
	require.Error(t, err)
}
