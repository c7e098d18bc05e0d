package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveness(t *testing.T) {
	h := New(nil, nil, time.Second)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadiness(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		checks Checks
		status int
	}{
		{"no dependencies", nil, http.StatusOK},
		{"all up", Checks{"redis": ok, "mongo": ok}, http.StatusOK},
		{"one down", Checks{"redis": ok, "mongo": down}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(nil, tt.checks, time.Second).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.status, rec.Code)

			var body readiness
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.status == http.StatusOK {
				assert.Equal(t, "ready", body.Status)
				return
			}
			assert.Equal(t, "connection refused", body.Checks["mongo"])
			assert.Equal(t, "ok", body.Checks["redis"])
		})
	}
}
