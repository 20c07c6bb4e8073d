package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rakapradana/toko-api/pkg/middleware/requestid"
)

// New returns the CORS policy for the auth endpoints. Tokens travel in
// cookies, so responses always allow credentials and echo the caller's
// origin rather than a wildcard, which browsers refuse to pair with
// credentials. An empty allow-list admits any origin (development).
func New(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed(originSet, origin)) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+requestid.Header)
		// The auth surface is GET and POST only.
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		// Retry-After drives the storefront's login backoff UI.
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Retry-After, "+requestid.Header)
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func allowed(originSet map[string]struct{}, origin string) bool {
	_, ok := originSet[strings.TrimRight(origin, "/")]
	return ok
}
