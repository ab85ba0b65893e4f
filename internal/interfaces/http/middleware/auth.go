package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/auth"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PrincipalKey is where the authenticated caller lives in the gin context
	PrincipalKey = "principal"

	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "

	// Development-only identity headers
	OrganizationIDHeader = "X-Organization-ID"
	BranchIDHeader       = "X-Branch-ID"
	UserIDHeader         = "X-User-ID"
)

// Principal is the authenticated caller and the tenant scope it acts in
type Principal struct {
	Scope       shared.Scope
	UserID      string
	Permissions []string
	// Claims is nil for development header callers
	Claims *auth.Claims
}

// HasPermission checks if the principal carries a permission
func (p *Principal) HasPermission(permission string) bool {
	return slices.Contains(p.Permissions, permission)
}

// AuthConfig holds configuration for the authentication middleware
type AuthConfig struct {
	JWTService *auth.JWTService
	// TokenBlacklist is optional
	TokenBlacklist auth.TokenBlacklist
	// DevHeaders accepts identity headers when no bearer token is sent
	DevHeaders bool
	Logger     *zap.Logger
}

// Authenticate resolves the caller from a bearer token, or from identity
// headers when DevHeaders is on, and binds the tenant scope to the request.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		var (
			principal *Principal
			err       error
		)

		authHeader := c.GetHeader(AuthHeaderKey)
		switch {
		case authHeader != "":
			principal, err = principalFromToken(c, cfg, authHeader)
		case cfg.DevHeaders:
			principal, err = principalFromHeaders(c)
		default:
			err = errMissingCredentials
		}
		if err != nil {
			abortUnauthorized(c, cfg.Logger, err)
			return
		}

		c.Set(PrincipalKey, principal)

		ctx := logger.WithScope(c.Request.Context(),
			principal.Scope.OrganizationID.String(),
			principal.Scope.BranchID.String(),
		)
		ctx = logger.WithUserID(ctx, principal.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

var (
	errMissingCredentials = errors.New("missing authorization header")
	errMalformedHeader    = errors.New("invalid authorization header format")
	errInvalidDevHeaders  = errors.New("invalid identity headers")
)

func principalFromToken(c *gin.Context, cfg AuthConfig, header string) (*Principal, error) {
	if !strings.HasPrefix(header, BearerPrefix) {
		return nil, errMalformedHeader
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	if token == "" {
		return nil, errMalformedHeader
	}
	if cfg.JWTService == nil {
		return nil, auth.ErrInvalidToken
	}

	claims, err := cfg.JWTService.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	if cfg.TokenBlacklist != nil && claims.ID != "" {
		revoked, err := cfg.TokenBlacklist.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			// fail open: the revocation store being down must not stop stock movements
			cfg.Logger.Error("Failed to check token blacklist",
				zap.String("jti", claims.ID),
				zap.Error(err))
		} else if revoked {
			return nil, auth.ErrTokenBlacklisted
		}
	}

	scope, err := claims.Scope()
	if err != nil {
		return nil, auth.ErrInvalidClaims
	}
	return &Principal{
		Scope:       scope,
		UserID:      claims.UserID,
		Permissions: claims.Permissions,
		Claims:      claims,
	}, nil
}

func principalFromHeaders(c *gin.Context) (*Principal, error) {
	org, err := uuid.Parse(c.GetHeader(OrganizationIDHeader))
	if err != nil {
		return nil, errInvalidDevHeaders
	}
	branch, err := uuid.Parse(c.GetHeader(BranchIDHeader))
	if err != nil {
		return nil, errInvalidDevHeaders
	}
	userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if userID == "" {
		return nil, errInvalidDevHeaders
	}
	scope := shared.Scope{OrganizationID: org, BranchID: branch}
	if err := scope.Validate(); err != nil {
		return nil, errInvalidDevHeaders
	}
	return &Principal{
		Scope:       scope,
		UserID:      userID,
		Permissions: auth.AllPermissions,
	}, nil
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error) {
	log.Warn("Authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrTokenWithoutExpiry),
		errors.Is(err, auth.ErrMissingOrgID),
		errors.Is(err, auth.ErrMissingBranchID),
		errors.Is(err, auth.ErrMissingUserID):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	case errors.Is(err, errInvalidDevHeaders):
		message = "Identity headers must carry a valid organization, branch and user"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message, GetRequestID(c)))
}

// GetPrincipal returns the authenticated caller, or nil
func GetPrincipal(c *gin.Context) *Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return nil
}
