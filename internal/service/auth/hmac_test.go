package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, secret string, clk clock.Clock) TokenService {
	t.Helper()
	svc, err := NewTokenService(config.AuthConfig{JWTSecret: secret, TokenLifetime: time.Hour}, clk)
	require.NoError(t, err)
	return svc
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testSecret, clock.NewManual(fixedTime))

	token, err := svc.GenerateToken(context.Background(), "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Actor)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingActor)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T) (TokenService, string)
		wantErr error
	}{
		{
			name: "valid token",
			setup: func(t *testing.T) (TokenService, string) {
				svc := newTestService(t, testSecret, clock.NewManual(fixedTime))
				token, err := svc.GenerateToken(context.Background(), "alice")
				require.NoError(t, err)
				return svc, token
			},
		},
		{
			name: "expired token",
			setup: func(t *testing.T) (TokenService, string) {
				token, err := newTestService(t, testSecret, clock.NewManual(fixedTime)).
					GenerateToken(context.Background(), "alice")
				require.NoError(t, err)
				later := clock.NewManual(fixedTime.Add(2 * time.Hour))
				return newTestService(t, testSecret, later), token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			setup: func(t *testing.T) (TokenService, string) {
				token, err := newTestService(t, testSecret, clock.NewManual(fixedTime)).
					GenerateToken(context.Background(), "alice")
				require.NoError(t, err)
				earlier := clock.NewManual(fixedTime.Add(-time.Hour))
				return newTestService(t, testSecret, earlier), token
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "wrong secret",
			setup: func(t *testing.T) (TokenService, string) {
				token, err := newTestService(t, "wrong-secret-that-is-long-enough-for-testing", clock.NewManual(fixedTime)).
					GenerateToken(context.Background(), "alice")
				require.NoError(t, err)
				return newTestService(t, testSecret, clock.NewManual(fixedTime)), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setup: func(t *testing.T) (TokenService, string) {
				return newTestService(t, testSecret, clock.NewManual(fixedTime)), "not.a.token"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "empty token",
			setup: func(t *testing.T) (TokenService, string) {
				return newTestService(t, testSecret, clock.NewManual(fixedTime)), ""
			},
			wantErr: ErrMissingToken,
		},
		{
			name: "missing subject",
			setup: func(t *testing.T) (TokenService, string) {
				claims := jwt.RegisteredClaims{
					IssuedAt:  jwt.NewNumericDate(fixedTime),
					ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
				}
				token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
				require.NoError(t, err)
				return newTestService(t, testSecret, clock.NewManual(fixedTime)), token
			},
			wantErr: ErrMissingActor,
		},
		{
			name: "missing expiry",
			setup: func(t *testing.T) (TokenService, string) {
				claims := jwt.RegisteredClaims{Subject: "alice"}
				token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
				require.NoError(t, err)
				return newTestService(t, testSecret, clock.NewManual(fixedTime)), token
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tt.setup(t)

			claims, err := svc.ValidateToken(context.Background(), token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", claims.Actor)
		})
	}
}

func TestNewTokenService_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService(config.AuthConfig{JWTSecret: "short", TokenLifetime: time.Hour}, nil)
	assert.Error(t, err)

	_, err = NewTokenService(config.AuthConfig{JWTSecret: testSecret}, nil)
	assert.Error(t, err)
}
