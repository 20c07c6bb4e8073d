package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/rakapradana/toko-api/internal/models"
	appErrors "github.com/rakapradana/toko-api/pkg/errors"
	"github.com/rakapradana/toko-api/pkg/response"
)

// RequireRole enforces a minimum role for routes already behind Auth. The
// role check runs strictly after token verification: an unauthenticated
// caller sees only 401, never anything about role gating.
func RequireRole(minimum models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !claims.Role.Satisfies(minimum) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
