package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozxin/nx-admin/pkg/contextkeys"
	"github.com/ozxin/nx-admin/pkg/observability"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type countingExpiry struct {
	calls atomic.Int32
}

func (c *countingExpiry) Expire(context.Context) { c.calls.Add(1) }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type captured struct {
	mu  sync.Mutex
	req *http.Request
}

func (c *captured) last() *http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}

func setupServer(t *testing.T) (*httptest.Server, *captured) {
	t.Helper()

	seen := &captured{}
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			seen.mu.Lock()
			seen.req = req.Clone(context.Background())
			seen.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/api/ok", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"code": 0, "data": map[string]string{"name": "nx"}, "message": "ok"})
	}).Methods("GET")
	r.HandleFunc("/api/echo", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]interface{}{"code": 0, "data": body})
	}).Methods("POST", "PUT")
	r.HandleFunc("/api/null-code", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":null,"data":[1,2],"message":"done"}`))
	})
	r.HandleFunc("/api/foreign", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"foo": 1})
	})
	r.HandleFunc("/api/empty", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.HandleFunc("/api/blob", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	r.HandleFunc("/api/denied", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"errno": 4031, "message": "no <access>"})
	})
	r.HandleFunc("/api/bare", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{})
	})
	r.HandleFunc("/api/text", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 300)))
	})
	r.HandleFunc("/api/expired", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"errno": 401, "message": "login expired"})
	})
	r.HandleFunc("/api/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, seen
}

func newTestClient(server *httptest.Server, notifier Notifier) *Client {
	return NewClient(Options{
		BaseURL:  server.URL + "/api/",
		Tokens:   staticToken("tk-1"),
		Notifier: notifier,
	})
}

func TestClient_UnwrapsEnvelope(t *testing.T) {
	server, seen := setupServer(t)
	client := newTestClient(server, &RecordingNotifier{})

	resp, err := client.Do(context.Background(), RequestConfig{URL: "ok"})
	require.NoError(t, err)

	assert.False(t, resp.Raw)
	assert.Equal(t, 0, resp.Code)
	assert.JSONEq(t, `{"name":"nx"}`, string(resp.Data))

	assert.Equal(t, `Bearer TK="tk-1"`, seen.last().Header.Get("Authorization"))
	assert.Equal(t, "application/json", seen.last().Header.Get("Content-Type"))
	assert.Equal(t, "XMLHttpRequest", seen.last().Header.Get("X-Requested-With"))
	assert.NotEmpty(t, seen.last().Header.Get("X-Request-ID"))
}

func TestClient_ParamsAndBody(t *testing.T) {
	server, seen := setupServer(t)
	client := newTestClient(server, &RecordingNotifier{})

	resp, err := client.Do(context.Background(), RequestConfig{
		Method: "post",
		URL:    "/echo",
		Params: url.Values{"page": {"2"}},
		Data:   map[string]string{"username": "root"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"root"}`, string(resp.Data))
	assert.Equal(t, "2", seen.last().URL.Query().Get("page"))

	resp, err = client.Do(context.Background(), RequestConfig{Method: "PUT", URL: "echo"})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(resp.Data))
}

func TestClient_HeaderOverridesAndAuthorizationOptOut(t *testing.T) {
	server, seen := setupServer(t)
	client := newTestClient(server, &RecordingNotifier{})

	_, err := client.Do(context.Background(), RequestConfig{
		URL:           "ok",
		Headers:       map[string]string{"X-Requested-With": "nxadmin"},
		Authorization: Bool(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "nxadmin", seen.last().Header.Get("X-Requested-With"))
	assert.Equal(t, "application/json", seen.last().Header.Get("Content-Type"))
	assert.Empty(t, seen.last().Header.Get("Authorization"))

	// defaults are not polluted by the previous call
	_, err = client.Do(context.Background(), RequestConfig{URL: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "XMLHttpRequest", seen.last().Header.Get("X-Requested-With"))
}

func TestClient_Passthrough(t *testing.T) {
	server, _ := setupServer(t)
	client := newTestClient(server, &RecordingNotifier{})

	resp, err := client.Do(context.Background(), RequestConfig{URL: "blob", ResponseType: ResponseBlob})
	require.NoError(t, err)
	assert.True(t, resp.Raw)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, resp.Body)

	resp, err = client.Do(context.Background(), RequestConfig{URL: "foreign", ExtractData: Bool(false)})
	require.NoError(t, err)
	assert.True(t, resp.Raw)
	assert.JSONEq(t, `{"foo":1}`, string(resp.Body))
}

func TestClient_NoContent(t *testing.T) {
	server, _ := setupServer(t)
	client := newTestClient(server, &RecordingNotifier{})

	resp, err := client.Do(context.Background(), RequestConfig{URL: "empty"})
	require.NoError(t, err)
	assert.True(t, resp.NoContent())
	assert.Empty(t, resp.Data)
}

func TestClient_NullCodeIsEnvelope(t *testing.T) {
	server, _ := setupServer(t)
	notifier := &RecordingNotifier{}
	client := newTestClient(server, notifier)

	resp, err := client.Do(context.Background(), RequestConfig{URL: "null-code"})
	require.NoError(t, err)
	assert.False(t, resp.Raw)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "done", resp.Message)
	assert.JSONEq(t, `[1,2]`, string(resp.Data))
	assert.Empty(t, notifier.Errors())
}

func TestClient_ForeignResponse(t *testing.T) {
	server, _ := setupServer(t)
	notifier := &RecordingNotifier{}
	client := newTestClient(server, notifier)

	_, err := client.Do(context.Background(), RequestConfig{URL: "foreign"})
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindForeign, apiErr.Kind)
	assert.Equal(t, -1, apiErr.Code)
	assert.Equal(t, MessageForeign, apiErr.Message)
	assert.Len(t, notifier.Errors(), 1)
}

func TestClient_ServerErrors(t *testing.T) {
	server, _ := setupServer(t)

	tests := []struct {
		path    string
		status  int
		code    int
		message string
	}{
		{"denied", http.StatusForbidden, 4031, "no <access>"},
		{"bare", http.StatusBadRequest, -1, "unknown"},
		{"text", http.StatusBadGateway, -1, strings.Repeat("x", 119) + "[omit...]"},
		{"missing", http.StatusNotFound, -1, "404 page not found"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			client := newTestClient(server, &RecordingNotifier{})
			_, err := client.Do(context.Background(), RequestConfig{URL: tt.path})

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, KindServer, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, strings.TrimSpace(tt.message), strings.TrimSpace(apiErr.Message))
			assert.Equal(t, "/api/"+tt.path, apiErr.Path)
			assert.False(t, apiErr.IsSessionExpired())
		})
	}
}

func TestClient_SessionExpiry(t *testing.T) {
	server, _ := setupServer(t)
	notifier := &RecordingNotifier{}
	client := newTestClient(server, notifier)
	expiry := &countingExpiry{}
	client.SetExpiryHandler(expiry)

	_, err := client.Do(context.Background(), RequestConfig{URL: "expired"})
	require.Error(t, err)
	assert.True(t, IsSessionExpired(err))
	assert.Equal(t, int32(1), expiry.calls.Load())
	assert.Len(t, notifier.Errors(), 1)

	_, err = client.Do(context.Background(), RequestConfig{URL: "denied"})
	require.Error(t, err)
	assert.Equal(t, int32(1), expiry.calls.Load())

	_, err = client.Do(contextkeys.WithSkipExpiry(context.Background()), RequestConfig{URL: "expired"})
	require.Error(t, err)
	assert.True(t, IsSessionExpired(err))
	assert.Equal(t, int32(1), expiry.calls.Load())
}

func TestClient_SilentErrorNotify(t *testing.T) {
	server, _ := setupServer(t)
	notifier := &RecordingNotifier{}
	client := newTestClient(server, notifier)

	_, err := client.Do(context.Background(), RequestConfig{URL: "denied", SilentErrorNotify: Bool(true)})
	require.Error(t, err)

	_, err = client.Do(contextkeys.WithSilentNotify(context.Background()), RequestConfig{URL: "denied"})
	require.Error(t, err)

	assert.Empty(t, notifier.Errors())
}

func TestClient_Canceled(t *testing.T) {
	server, _ := setupServer(t)
	client := newTestClient(server, &RecordingNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.Do(ctx, RequestConfig{URL: "slow"})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsCanceled())
	assert.True(t, strings.HasPrefix(apiErr.Message, "request canceled: "))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_TimeoutIsFault(t *testing.T) {
	server, _ := setupServer(t)
	client := newTestClient(server, &RecordingNotifier{})

	_, err := client.Do(context.Background(), RequestConfig{URL: "slow", Timeout: 50 * time.Millisecond})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindFault, apiErr.Kind)
	assert.True(t, strings.HasPrefix(apiErr.Message, "fault: "))
}

func TestClient_Metrics(t *testing.T) {
	server, _ := setupServer(t)
	registry := prometheus.NewRegistry()
	client := NewClient(Options{
		BaseURL:  server.URL + "/api",
		Notifier: &RecordingNotifier{},
		Metrics:  observability.NewClientMetrics(registry),
	})

	_, _ = client.Do(context.Background(), RequestConfig{URL: "ok"})
	_, _ = client.Do(context.Background(), RequestConfig{URL: "denied"})

	count, err := testutil.GatherAndCount(registry, "nxadmin_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAPIError_ReportMessage(t *testing.T) {
	apiErr := &APIError{
		Kind:    KindServer,
		Code:    4031,
		Message: "<b>denied</b>",
		Status:  http.StatusForbidden,
		Path:    "/api/users?q=<x>",
	}

	lines := strings.Split(apiErr.ReportMessage(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "&lt;b&gt;denied&lt;/b&gt;", lines[0])
	assert.Equal(t, "at status (403 Access denied)", lines[1])
	assert.Equal(t, "at settle (/api/users?q=&lt;x&gt;)", lines[2])
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Session expired", StatusText(401))
	assert.Equal(t, "Gateway timeout", StatusText(504))
	assert.Equal(t, "I'm a teapot", StatusText(418))
	assert.Equal(t, "", StatusText(0))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10, "..."))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10, "..."))
	assert.Equal(t, "日本...", Truncate("日本語のテキスト", 5, "..."))
	assert.Len(t, Truncate(strings.Repeat("x", 300), 128, "[omit...]"), 128)
}

func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	req := httptest.NewRequest("GET", "http://example.com", nil)
	_, err := Chain(base, mark("a"), mark("b")).RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}
