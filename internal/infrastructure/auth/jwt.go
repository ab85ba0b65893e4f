package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingOrgID       = errors.New("missing organization_id in claims")
	ErrMissingBranchID    = errors.New("missing branch_id in claims")
	ErrMissingUserID      = errors.New("missing user_id in claims")
	ErrTokenBlacklisted   = errors.New("token has been revoked")
	ErrTokenWithoutExpiry = errors.New("token has no expiration")
)

// Permissions checked by the HTTP layer
const (
	PermStockRead      = "stock:read"
	PermStockWrite     = "stock:write"
	PermCountWrite     = "count:write"
	PermCountReconcile = "count:reconcile"
	PermOutboxAdmin    = "outbox:admin"
)

// AllPermissions is granted to development header callers
var AllPermissions = []string{
	PermStockRead, PermStockWrite, PermCountWrite, PermCountReconcile, PermOutboxAdmin,
}

// Claims carries the tenant scope a ledger request runs in
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string   `json:"organization_id"`
	BranchID       string   `json:"branch_id"`
	UserID         string   `json:"user_id"`
	Username       string   `json:"username,omitempty"`
	Permissions    []string `json:"permissions,omitempty"`
}

// JWTService signs and validates HS256 access tokens
type JWTService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	expiration := cfg.AccessTokenExpiration
	if expiration <= 0 {
		expiration = 15 * time.Minute
	}
	return &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: expiration,
		now:        time.Now,
	}
}

// GenerateTokenInput contains input for token generation
type GenerateTokenInput struct {
	Scope       shared.Scope
	UserID      uuid.UUID
	Username    string
	Permissions []string
}

// GenerateToken signs an access token for the given tenant scope
func (s *JWTService) GenerateToken(input GenerateTokenInput) (string, time.Time, error) {
	if err := input.Scope.Validate(); err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrganizationID: input.Scope.OrganizationID.String(),
		BranchID:       input.Scope.BranchID.String(),
		UserID:         input.UserID.String(),
		Username:       input.Username,
		Permissions:    input.Permissions,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateToken parses tokenString and checks signature, lifetime, issuer
// and the presence of the scope claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return nil, ErrTokenWithoutExpiry
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	switch {
	case claims.OrganizationID == "":
		return nil, ErrMissingOrgID
	case claims.BranchID == "":
		return nil, ErrMissingBranchID
	case claims.UserID == "":
		return nil, ErrMissingUserID
	}
	if _, err := claims.Scope(); err != nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// Scope parses the organization and branch claims
func (c *Claims) Scope() (shared.Scope, error) {
	org, err := uuid.Parse(c.OrganizationID)
	if err != nil {
		return shared.Scope{}, err
	}
	branch, err := uuid.Parse(c.BranchID)
	if err != nil {
		return shared.Scope{}, err
	}
	scope := shared.Scope{OrganizationID: org, BranchID: branch}
	return scope, scope.Validate()
}

// HasPermission checks if the claims contain a specific permission
func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

// RemainingTTL returns the time left until the token expires at now
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}
