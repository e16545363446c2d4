package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	RequestID   string
	Body        string
}

type echoServer struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
}

func (s *echoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, capturedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		ContentType: r.Header.Get("Content-Type"),
		RequestID:   r.Header.Get("X-Request-ID"),
		Body:        string(body),
	})
	status := s.status
	s.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (s *echoServer) last() capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newTestClient(t *testing.T, s *echoServer, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api/", opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeAPI(t *testing.T) {
	_, err := New("/api")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBadInput))
}

func TestClient_URL(t *testing.T) {
	c, err := New("https://example.org/api/", WithCredentials("id", "secret"))
	require.NoError(t, err)

	got := c.URL("items", map[string][]string{"resource_template_id[]": {"4"}})
	assert.Equal(t, "https://example.org/api/items?key_credential=secret&key_identity=id&resource_template_id%5B%5D=4", got)

	anon, err := New("https://example.org/api")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/api/properties/12", anon.URL("/properties/12", nil))
}

func TestClient_RequestContentTypes(t *testing.T) {
	s := &echoServer{}
	c := newTestClient(t, s)
	ctx := context.Background()

	resp, err := c.Request(ctx, http.MethodGet, c.URL("items/1", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "/api/items/1", resp.URL.Path)
	assert.Empty(t, s.last().ContentType)
	assert.Equal(t, resp.RequestID, s.last().RequestID)

	_, err = c.Request(ctx, http.MethodPost, c.URL("items", nil), []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, ContentTypeCreate, s.last().ContentType)
	assert.Equal(t, `{"a":1}`, s.last().Body)

	_, err = c.Request(ctx, http.MethodPut, c.URL("items/1", nil), []byte(`{"a":2}`))
	require.NoError(t, err)
	assert.Equal(t, ContentTypeUpdate, s.last().ContentType)
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		status   int
		category errors.Category
	}{
		{http.StatusNotFound, errors.CategoryNotFound},
		{http.StatusUnauthorized, errors.CategoryAuth},
		{http.StatusForbidden, errors.CategoryAuthz},
		{http.StatusUnprocessableEntity, errors.CategoryBadInput},
		{http.StatusInternalServerError, errors.CategoryExternal},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			s := &echoServer{status: tt.status}
			c := newTestClient(t, s)

			resp, err := c.Request(context.Background(), http.MethodGet, c.URL("items/9", nil), nil)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	m := metrics.New()
	c, err := New(base+"/api", WithMetrics(m))
	require.NoError(t, err)

	_, err = c.Request(context.Background(), http.MethodGet, c.URL("items", nil), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryExternal))
	assert.Equal(t, 0, StatusCode(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "0")))
}

func TestClient_Metrics(t *testing.T) {
	m := metrics.New()
	s := &echoServer{}
	c := newTestClient(t, s, WithMetrics(m))

	for i := 0; i < 3; i++ {
		_, err := c.Request(context.Background(), http.MethodGet, c.URL("properties", nil), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "200")))
}

func TestRedact(t *testing.T) {
	got := Redact("https://example.org/api/items?key_identity=id&key_credential=secret")
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "key_identity=id")

	plain := "https://example.org/api/items?page=2"
	assert.Equal(t, plain, Redact(plain))
	assert.True(t, strings.HasPrefix(Redact("::bad"), "::bad"))
}
