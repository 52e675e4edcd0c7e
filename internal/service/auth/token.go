// Package auth issues and verifies the bearer tokens that identify the actor
// behind a mutating request. The actor is opaque to the rest of the system;
// it is only recorded as the author of audit entries.
package auth

import (
	"context"
	"time"
)

// TokenService issues and validates actor tokens.
type TokenService interface {
	// GenerateToken creates a signed token whose subject is actor.
	GenerateToken(ctx context.Context, actor string) (string, error)

	// ValidateToken verifies tokenString and returns its claims.
	// Fails with ErrInvalidToken, ErrExpiredToken, ErrTokenNotYetValid or
	// ErrMissingActor.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the verified contents of an actor token.
type Claims struct {
	Actor     string    `json:"sub"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
	ID        string    `json:"jti"`
}
