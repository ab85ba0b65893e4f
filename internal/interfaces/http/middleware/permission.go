package middleware

import (
	"net/http"

	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequirePermission aborts with 403 unless the principal carries permission.
// It must run after Authenticate.
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission requires at least one of the listed permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}

		for _, p := range permissions {
			if principal.HasPermission(p) {
				c.Next()
				return
			}
		}

		logger.L(c.Request.Context()).Debug("Permission denied",
			zap.String("user_id", principal.UserID),
			zap.Strings("required_any", permissions),
		)
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
			dto.ErrCodeForbidden, "Permission denied", GetRequestID(c)))
	}
}
