package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"fileflow/internal/domain"
	"fileflow/internal/domain/models"
)

// Verifier implements JWTVerifier with either a JWKS endpoint (RS256/ES256)
// or a shared HMAC secret (HS256).
type Verifier struct {
	keyFunc jwt.Keyfunc
	methods []string
	cancel  context.CancelFunc
	logger  *slog.Logger
}

var _ JWTVerifier = (*Verifier)(nil)

// NewJWKSVerifier fetches public keys from jwksURL. Keys are cached and
// refreshed in the background until Close.
func NewJWKSVerifier(jwksURL string, logger *slog.Logger) (*Verifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)
	return &Verifier{
		keyFunc: jwks.Keyfunc,
		methods: []string{"RS256", "ES256"},
		cancel:  cancel,
		logger:  logger,
	}, nil
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte, logger *slog.Logger) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("JWT secret cannot be empty")
	}
	return &Verifier{
		keyFunc: func(*jwt.Token) (any, error) { return secret, nil },
		methods: []string{"HS256"},
		cancel:  func() {},
		logger:  logger,
	}, nil
}

// VerifyToken validates a JWT and extracts its claims.
func (v *Verifier) VerifyToken(tokenString string) (*models.Claims, error) {
	// WithValidMethods rejects algorithm confusion (e.g. an HS256 token
	// signed with a public key).
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, v.keyFunc, jwt.WithValidMethods(v.methods))
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok {
		v.logger.Error("failed to extract claims from token")
		return nil, domain.ErrUnauthorized
	}
	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *Verifier) Close() error {
	v.cancel()
	return nil
}
