package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishonc/car-rental/internal/platform/metrics"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIKey(t *testing.T) {
	h := APIKey("secret")(okHandler)

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{"missing key", "/sessions", nil, http.StatusUnauthorized},
		{"wrong key", "/sessions", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", "/sessions", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", "/sessions", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"health is public", "/health", nil, http.StatusOK},
		{"metrics is public", "/metrics", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := serve(h, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	ok, _ := l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewRedisLimiter(rdb, 2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}

	now = now.Add(time.Minute)
	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewMemoryLimiter(1, time.Minute), nil)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	req.RemoteAddr = "[2001:db8::1]:5555"
	assert.Equal(t, http.StatusOK, serve(h, req).Code)

	rec := serve(h, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientIP("10.0.0.1:443"))
	assert.Equal(t, "2001:db8::1", clientIP("[2001:db8::1]:443"))
	assert.Equal(t, "10.0.0.1", clientIP("10.0.0.1"))
}

func TestLimitRequestBody(t *testing.T) {
	h := LimitRequestBody(4)(okHandler)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(h, req).Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.test"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
	req.Header.Set("Origin", "https://app.test")
	rec := serve(h, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/sessions", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.RequestsTotal.WithLabelValues(http.MethodGet, "/sessions/{id}", "418")
	before := testutil.ToFloat64(counter)
	serve(r, httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
