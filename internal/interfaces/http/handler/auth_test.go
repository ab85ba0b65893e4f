package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/auth"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Revoke(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-that-is-long-enough",
		Issuer:                "warehouse-test",
		AccessTokenExpiration: time.Hour,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	h := NewAuthHandler(blacklist)

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1", middleware.Authenticate(middleware.AuthConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		DevHeaders:     true,
	}))
	api.POST("/auth/revoke", h.Revoke)
	api.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	token, _, err := jwtService.GenerateToken(auth.GenerateTokenInput{
		Scope:       shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New()},
		UserID:      uuid.New(),
		Username:    "picker",
		Permissions: auth.AllPermissions,
	})
	require.NoError(t, err)

	send := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusNoContent, send(http.MethodGet, "/api/v1/ping").Code)

	w := send(http.MethodPost, "/api/v1/auth/revoke")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var revoked RevokeResponse
	decode(t, w, &revoked)
	assert.NotEmpty(t, revoked.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), revoked.ExpiresAt, time.Minute)

	isRevoked, err := blacklist.IsRevoked(context.Background(), revoked.TokenID)
	require.NoError(t, err)
	assert.True(t, isRevoked)

	w = send(http.MethodGet, "/api/v1/ping")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "ERR_TOKEN_REVOKED", decode(t, w, nil).Error.Code)

	t.Run("dev identity has no token to revoke", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/revoke", nil)
		req.Header.Set(middleware.OrganizationIDHeader, uuid.NewString())
		req.Header.Set(middleware.BranchIDHeader, uuid.NewString())
		req.Header.Set(middleware.UserIDHeader, "dev")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
