package auth

import (
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestJWTService() *JWTService {
	svc := NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})
	svc.now = func() time.Time { return testNow }
	return svc
}

func newTestInput() GenerateTokenInput {
	return GenerateTokenInput{
		Scope:       shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New()},
		UserID:      uuid.New(),
		Username:    "stock.clerk",
		Permissions: []string{PermStockRead, PermStockWrite},
	}
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()

	token, expiresAt, err := svc.GenerateToken(input)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(15*time.Minute), expiresAt)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	scope, err := claims.Scope()
	require.NoError(t, err)
	assert.Equal(t, input.Scope, scope)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, "stock.clerk", claims.Username)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.HasPermission(PermStockWrite))
	assert.False(t, claims.HasPermission(PermCountReconcile))
	assert.Equal(t, 5*time.Minute, claims.RemainingTTL(testNow.Add(10*time.Minute)))
	assert.Zero(t, claims.RemainingTTL(testNow.Add(time.Hour)))
}

func TestJWTService_DefaultExpiration(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "s", Issuer: "i"})
	assert.Equal(t, 15*time.Minute, svc.expiration)
}

func TestJWTService_GenerateRejectsEmptyScope(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()
	input.Scope.BranchID = uuid.Nil

	_, _, err := svc.GenerateToken(input)
	assert.Error(t, err)
}

func TestJWTService_ValidateToken(t *testing.T) {
	svc := newTestJWTService()
	token, _, err := svc.GenerateToken(newTestInput())
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newTestJWTService()
		later.now = func() time.Time { return testNow.Add(time.Hour) }
		_, err := later.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-of-32-characters", Issuer: "test-issuer"})
		other.now = svc.now
		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "elsewhere"})
		other.now = svc.now
		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTService_ValidateRequiresScopeClaims(t *testing.T) {
	svc := newTestJWTService()
	sign := func(c *Claims) string {
		c.Issuer = "test-issuer"
		c.ExpiresAt = jwt.NewNumericDate(testNow.Add(time.Minute))
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(svc.secret)
		require.NoError(t, err)
		return s
	}
	org, branch, user := uuid.NewString(), uuid.NewString(), uuid.NewString()

	tests := []struct {
		name   string
		claims *Claims
		want   error
	}{
		{"missing organization", &Claims{BranchID: branch, UserID: user}, ErrMissingOrgID},
		{"missing branch", &Claims{OrganizationID: org, UserID: user}, ErrMissingBranchID},
		{"missing user", &Claims{OrganizationID: org, BranchID: branch}, ErrMissingUserID},
		{"malformed organization", &Claims{OrganizationID: "acme", BranchID: branch, UserID: user}, ErrInvalidClaims},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(sign(tt.claims))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("no expiry", func(t *testing.T) {
		c := &Claims{OrganizationID: org, BranchID: branch, UserID: user}
		c.Issuer = "test-issuer"
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(svc.secret)
		require.NoError(t, err)
		_, err = svc.ValidateToken(s)
		assert.ErrorIs(t, err, ErrTokenWithoutExpiry)
	})
}
