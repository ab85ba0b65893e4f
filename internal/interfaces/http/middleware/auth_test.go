package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/auth"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func newTestScope() shared.Scope {
	return shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New()}
}

func newTestToken(t *testing.T, svc *auth.JWTService, scope shared.Scope, perms ...string) string {
	t.Helper()
	token, _, err := svc.GenerateToken(auth.GenerateTokenInput{
		Scope:       scope,
		UserID:      uuid.New(),
		Username:    "picker",
		Permissions: perms,
	})
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var body struct {
		Success bool          `json:"success"`
		Error   *dto.ErrorInfo `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	return *body.Error
}

func authRouter(cfg AuthConfig, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Authenticate(cfg))
	r.GET("/test", handler)
	return r
}

func TestAuthenticate_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	scope := newTestScope()
	token := newTestToken(t, svc, scope, auth.PermStockRead)

	var got *Principal
	var loggedOrg string
	r := authRouter(AuthConfig{JWTService: svc}, func(c *gin.Context) {
		got = GetPrincipal(c)
		loggedOrg = logger.GetOrganizationID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, scope, got.Scope)
	assert.True(t, got.HasPermission(auth.PermStockRead))
	assert.False(t, got.HasPermission(auth.PermStockWrite))
	assert.NotNil(t, got.Claims)
	assert.Equal(t, scope.OrganizationID.String(), loggedOrg)
}

func TestAuthenticate_Rejections(t *testing.T) {
	svc := newTestJWTService()
	other := auth.NewJWTService(config.JWTConfig{Secret: "another-secret-key-of-32-characters", Issuer: "test-issuer"})

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"not bearer", "Basic abc", dto.ErrCodeUnauthorized},
		{"empty bearer", "Bearer ", dto.ErrCodeUnauthorized},
		{"garbage token", "Bearer not-a-jwt", dto.ErrCodeTokenInvalid},
		{"foreign signature", "Bearer " + newTestToken(t, other, newTestScope()), dto.ErrCodeTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := authRouter(AuthConfig{JWTService: svc}, func(c *gin.Context) {
				t.Fatal("handler must not run")
			})
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			info := decodeError(t, w)
			assert.Equal(t, tt.code, info.Code)
			assert.NotEmpty(t, info.RequestID)
		})
	}
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	svc := newTestJWTService()
	token := newTestToken(t, svc, newTestScope())
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	blacklist := auth.NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.Revoke(context.Background(), claims.ID, time.Minute))

	r := authRouter(AuthConfig{JWTService: svc, TokenBlacklist: blacklist}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, decodeError(t, w).Code)
}

type failingBlacklist struct{}

func (failingBlacklist) Revoke(context.Context, string, time.Duration) error { return assert.AnError }
func (failingBlacklist) IsRevoked(context.Context, string) (bool, error)     { return false, assert.AnError }

func TestAuthenticate_BlacklistUnavailableFailsOpen(t *testing.T) {
	svc := newTestJWTService()
	token := newTestToken(t, svc, newTestScope())

	r := authRouter(AuthConfig{JWTService: svc, TokenBlacklist: failingBlacklist{}}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticate_DevHeaders(t *testing.T) {
	scope := newTestScope()

	t.Run("accepted when enabled", func(t *testing.T) {
		var got *Principal
		r := authRouter(AuthConfig{DevHeaders: true}, func(c *gin.Context) {
			got = GetPrincipal(c)
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(OrganizationIDHeader, scope.OrganizationID.String())
		req.Header.Set(BranchIDHeader, scope.BranchID.String())
		req.Header.Set(UserIDHeader, "operator-7")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, scope, got.Scope)
		assert.Equal(t, "operator-7", got.UserID)
		assert.Nil(t, got.Claims)
		assert.ElementsMatch(t, auth.AllPermissions, got.Permissions)
	})

	t.Run("ignored when disabled", func(t *testing.T) {
		r := authRouter(AuthConfig{}, func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(OrganizationIDHeader, scope.OrganizationID.String())
		req.Header.Set(BranchIDHeader, scope.BranchID.String())
		req.Header.Set(UserIDHeader, "operator-7")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid branch rejected", func(t *testing.T) {
		r := authRouter(AuthConfig{DevHeaders: true}, func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(OrganizationIDHeader, scope.OrganizationID.String())
		req.Header.Set(BranchIDHeader, "branch-1")
		req.Header.Set(UserIDHeader, "operator-7")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeError(t, w).Code)
	})
}

func TestRequirePermission(t *testing.T) {
	svc := newTestJWTService()
	scope := newTestScope()

	newRouter := func() *gin.Engine {
		r := gin.New()
		r.Use(RequestID(), Authenticate(AuthConfig{JWTService: svc}))
		r.POST("/receipts", RequirePermission(auth.PermStockWrite), func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})
		return r
	}

	t.Run("granted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/receipts", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+newTestToken(t, svc, scope, auth.PermStockRead, auth.PermStockWrite))
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/receipts", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+newTestToken(t, svc, scope, auth.PermStockRead))
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, w).Code)
	})

	t.Run("no principal", func(t *testing.T) {
		r := gin.New()
		r.GET("/open", RequireAnyPermission(auth.PermStockRead, auth.PermOutboxAdmin), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
