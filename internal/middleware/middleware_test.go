package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/domain"
	"fileflow/internal/domain/models"
	"fileflow/internal/httputil"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (*models.Claims, error) {
	if token != "good" {
		return nil, domain.ErrUnauthorized
	}
	return &models.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}}, nil
}

func (stubVerifier) Close() error { return nil }

func TestAuthMiddleware(t *testing.T) {
	var seen models.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httputil.GetIdentity(r)
		w.WriteHeader(http.StatusNoContent)
	})
	h := AuthMiddleware(stubVerifier{})(next)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"health is public", "/health", "", http.StatusNoContent},
		{"missing token", "/api/files/tree", "", http.StatusUnauthorized},
		{"wrong scheme", "/api/files/tree", "Basic good", http.StatusUnauthorized},
		{"bad token", "/api/files/tree", "Bearer bad", http.StatusUnauthorized},
		{"good token", "/api/files/tree", "Bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, models.Identity{UserID: "alice", Role: "user"}, seen)
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantBody   bool
	}{
		{
			name:       "panic before writing",
			handler:    func(http.ResponseWriter, *http.Request) { panic("boom") },
			wantStatus: http.StatusInternalServerError,
			wantBody:   true,
		},
		{
			name: "panic after headers",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				panic(errors.New("late failure"))
			},
			wantStatus: http.StatusAccepted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, nil))
			h := AuthMiddleware(stubVerifier{})(Recovery(logger)(tt.handler))

			req := httptest.NewRequest(http.MethodPost, "/api/files/folders", nil)
			req.Header.Set("Authorization", "Bearer good")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, domain.KindInternal, body["kind"])
				assert.Equal(t, float64(http.StatusInternalServerError), body["status"])
			} else {
				assert.Empty(t, rec.Body.String())
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
			assert.Equal(t, "handler panic", entry["msg"])
			assert.Equal(t, http.MethodPost, entry["method"])
			assert.Equal(t, "/api/files/folders", entry["path"])
			assert.Equal(t, "alice", entry["user_id"])
			assert.Equal(t, !tt.wantBody, entry["response_started"])
		})
	}
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	h := Recovery(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
