package auth

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/domain"
	"fileflow/internal/domain/models"
)

func sign(t *testing.T, secret string, claims *models.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestHMACVerifier(t *testing.T) {
	v, err := NewHMACVerifier([]byte("secret"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer v.Close()

	valid := &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "user",
	}

	claims, err := v.VerifyToken(sign(t, "secret", valid))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.GetUserID())
	assert.Equal(t, "user", claims.Role)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(t, "other", valid)},
		{"expired", sign(t, "secret", &models.Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}})},
		{"no subject", sign(t, "secret", &models.Claims{})},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyToken(tt.token)
			assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		})
	}
}

func TestNewVerifier_Errors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewHMACVerifier(nil, logger)
	assert.Error(t, err)
	_, err = NewJWKSVerifier("", logger)
	assert.Error(t, err)
}
