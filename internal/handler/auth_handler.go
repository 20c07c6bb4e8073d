package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rakapradana/toko-api/internal/middleware"
	"github.com/rakapradana/toko-api/internal/models"
	"github.com/rakapradana/toko-api/internal/service"
	appErrors "github.com/rakapradana/toko-api/pkg/errors"
	"github.com/rakapradana/toko-api/pkg/response"
)

// CookieConfig controls the attributes of issued auth cookies. A cookie's
// MaxAge always equals the lifetime of the token it carries.
type CookieConfig struct {
	Domain string
	Secure bool
	// RefreshPath scopes the refresh cookie to the auth endpoints so it
	// never travels with ordinary requests.
	RefreshPath string
}

// AuthHandler wires the auth HTTP endpoints to the services.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
	metrics  *service.MetricsService
	cookies  CookieConfig
}

// NewAuthHandler creates a new handler. metrics may be nil.
func NewAuthHandler(auth *service.AuthService, sessions *service.SessionService, metrics *service.MetricsService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, metrics: metrics, cookies: cookies}
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value, path string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, path, h.cookies.Domain, h.cookies.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name, path string) {
	h.setCookie(c, name, "", path, -1)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password; tokens are set as httpOnly cookies
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, issued, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		if h.metrics != nil {
			h.metrics.IncLoginAttempt("failure")
		}
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncLoginAttempt("success")
	}

	if issued.AdminToken != "" {
		h.setCookie(c, models.CookieAdminToken, issued.AdminToken, "/", int(issued.AdminExpiresIn.Seconds()))
	} else {
		h.setCookie(c, models.CookieAccessToken, issued.AccessToken, "/", int(issued.AccessExpiresIn.Seconds()))
		h.setCookie(c, models.CookieRefreshToken, issued.RefreshToken, h.cookies.RefreshPath, int(issued.RefreshExpiresIn.Seconds()))
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange the refresh cookie for a new access-token cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(models.CookieRefreshToken)
	if err != nil || refreshToken == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	accessToken, ttl, err := h.sessions.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, models.CookieAccessToken, accessToken, "/", int(ttl.Seconds()))
	response.JSON(c, http.StatusOK, gin.H{"expires_in": int64(ttl.Seconds())}, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the refresh token and clear auth cookies; always succeeds
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(models.CookieRefreshToken)
	h.auth.Logout(c.Request.Context(), refreshToken)

	h.clearCookie(c, models.CookieAccessToken, "/")
	h.clearCookie(c, models.CookieRefreshToken, h.cookies.RefreshPath)
	h.clearCookie(c, models.CookieAdminToken, "/")

	response.JSON(c, http.StatusOK, gin.H{"message": "logged out"}, nil)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info := models.UserInfo{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  claims.Role,
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// Sessions godoc
// @Summary List own sessions
// @Description Lists the caller's live refresh sessions, oldest first
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/sessions [get]
func (h *AuthHandler) Sessions(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	infos, err := h.sessions.ListForOwner(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, infos, nil)
}

// StepUpVerify godoc
// @Summary Re-verify password
// @Description Confirms the caller's password and sets a short-lived verification cookie gating sensitive admin actions
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.StepUpRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /admin/verify [post]
func (h *AuthHandler) StepUpVerify(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.StepUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}
	req.IP = c.ClientIP()

	token, ttl, err := h.auth.IssueStepUp(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, models.CookieStepUpToken, token, "/", int(ttl.Seconds()))
	response.JSON(c, http.StatusOK, models.StepUpStatus{Verified: true, ExpiresIn: int64(ttl.Seconds())}, nil)
}

// StepUpStatus godoc
// @Summary Check verification status
// @Description Reports whether the caller holds a live verification token, without consuming it
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/verify [get]
func (h *AuthHandler) StepUpStatus(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	token, _ := c.Cookie(models.CookieStepUpToken)
	status := h.auth.CheckStepUp(token, claims.UserID)
	response.JSON(c, http.StatusOK, status, nil)
}
