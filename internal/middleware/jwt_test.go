package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakapradana/toko-api/internal/models"
	"github.com/rakapradana/toko-api/internal/service"
	"github.com/rakapradana/toko-api/pkg/config"
)

func newTestTokenService(t *testing.T) *service.TokenService {
	t.Helper()
	svc, err := service.NewTokenService(config.AuthConfig{
		Secret:            "test-secret",
		AccessExpiration:  time.Hour,
		RefreshExpiration: 24 * time.Hour,
		AdminExpiration:   8 * time.Hour,
		StepUpExpiration:  5 * time.Minute,
		Issuer:            "toko-api-test",
	})
	require.NoError(t, err)
	return svc
}

func newProtectedRouter(tokens *service.TokenService, class models.TokenClass, minimum models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := []gin.HandlerFunc{Auth(tokens, class)}
	if minimum != "" {
		handlers = append(handlers, RequireRole(minimum))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims := Claims(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	router.GET("/protected", handlers...)
	return router
}

func signAccess(t *testing.T, tokens *service.TokenService, role models.Role) string {
	t.Helper()
	token, _, err := tokens.SignAccess(&models.User{ID: "u1", Email: "user@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthAcceptsBearerHeader(t *testing.T) {
	tokens := newTestTokenService(t)
	router := newProtectedRouter(tokens, models.TokenClassAccess, "")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signAccess(t, tokens, models.RoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "u1")
}

func TestAuthFallsBackToCookie(t *testing.T) {
	tokens := newTestTokenService(t)
	router := newProtectedRouter(tokens, models.TokenClassAccess, "")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: models.CookieAccessToken, Value: signAccess(t, tokens, models.RoleCustomer)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHeaderTakesPrecedenceOverCookie(t *testing.T) {
	tokens := newTestTokenService(t)
	router := newProtectedRouter(tokens, models.TokenClassAccess, "")

	// Malformed header is rejected outright; the valid cookie is ignored.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	req.AddCookie(&http.Cookie{Name: models.CookieAccessToken, Value: signAccess(t, tokens, models.RoleCustomer)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	tokens := newTestTokenService(t)
	router := newProtectedRouter(tokens, models.TokenClassAccess, "")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestAuthRejectsWrongClass(t *testing.T) {
	tokens := newTestTokenService(t)
	router := newProtectedRouter(tokens, models.TokenClassAdmin, "")

	// Access token on an admin-class route fails verification.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signAccess(t, tokens, models.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleForbidsLowerRank(t *testing.T) {
	tokens := newTestTokenService(t)
	router := newProtectedRouter(tokens, models.TokenClassAccess, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signAccess(t, tokens, models.RoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestRequireRoleAdmitsHigherRank(t *testing.T) {
	tokens := newTestTokenService(t)
	router := newProtectedRouter(tokens, models.TokenClassAccess, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signAccess(t, tokens, models.RoleSuperAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
