package mocks

import (
	"context"

	"github.com/phrazzld/tasklog/internal/service/auth"
)

// MockTokenService implements auth.TokenService. With no functions set it
// accepts any non-empty token and treats the token itself as the actor.
type MockTokenService struct {
	GenerateTokenFn func(ctx context.Context, actor string) (string, error)
	ValidateTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)
}

var _ auth.TokenService = (*MockTokenService)(nil)

// GenerateToken implements auth.TokenService.
func (m *MockTokenService) GenerateToken(ctx context.Context, actor string) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, actor)
	}
	return actor, nil
}

// ValidateToken implements auth.TokenService.
func (m *MockTokenService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, tokenString)
	}
	if tokenString == "" {
		return nil, auth.ErrMissingToken
	}
	return &auth.Claims{Actor: tokenString}, nil
}
