package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT claims structure issued by the auth service.
type Claims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email"`
	Role                 string `json:"role"` // "user" or "admin"
	SessionID            string `json:"session_id"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *Claims) GetUserID() string {
	return c.Subject
}

// Identity is the authenticated caller as seen by the services.
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the caller carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == "admin"
}
