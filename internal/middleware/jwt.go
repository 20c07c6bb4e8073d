package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rakapradana/toko-api/internal/models"
	"github.com/rakapradana/toko-api/internal/service"
	appErrors "github.com/rakapradana/toko-api/pkg/errors"
	"github.com/rakapradana/toko-api/pkg/response"
)

// ContextUserKey is the gin context key storing verified token claims.
const ContextUserKey = "currentUser"

var classCookies = map[models.TokenClass]string{
	models.TokenClassAccess: models.CookieAccessToken,
	models.TokenClassAdmin:  models.CookieAdminToken,
}

// Auth protects routes by requiring a valid token of the given class. The
// bearer is taken from the Authorization header when present, falling back
// to the class's cookie. Claims land in the request-scoped gin context;
// nothing is shared between requests.
func Auth(tokens *service.TokenService, class models.TokenClass) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c, class)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := tokens.Verify(token, class)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func extractBearer(c *gin.Context, class models.TokenClass) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}

	if name, ok := classCookies[class]; ok {
		if cookie, err := c.Cookie(name); err == nil {
			return cookie
		}
	}
	return ""
}

// Claims returns the verified claims set by Auth, or nil.
func Claims(c *gin.Context) *models.AuthClaims {
	if v, exists := c.Get(ContextUserKey); exists {
		if claims, ok := v.(*models.AuthClaims); ok {
			return claims
		}
	}
	return nil
}
