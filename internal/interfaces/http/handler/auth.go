package handler

import (
	"time"

	"github.com/erp/warehouse/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles token lifecycle requests. Tokens are issued elsewhere;
// this service only verifies and revokes them.
type AuthHandler struct {
	BaseHandler
	blacklist auth.TokenBlacklist
	now       func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(blacklist auth.TokenBlacklist) *AuthHandler {
	return &AuthHandler{blacklist: blacklist, now: time.Now}
}

// RevokeResponse echoes the revoked token id and its blacklist lifetime
type RevokeResponse struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Revoke blacklists the caller's own bearer token until it would have expired.
// POST /auth/revoke
func (h *AuthHandler) Revoke(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if p.Claims == nil || p.Claims.ID == "" {
		h.BadRequest(c, "Only bearer tokens with an id can be revoked")
		return
	}

	now := h.now()
	ttl := p.Claims.RemainingTTL(now)
	if err := h.blacklist.Revoke(c.Request.Context(), p.Claims.ID, ttl); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RevokeResponse{TokenID: p.Claims.ID, ExpiresAt: now.Add(ttl)})
}
