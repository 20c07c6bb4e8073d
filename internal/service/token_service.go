package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rakapradana/toko-api/internal/models"
	"github.com/rakapradana/toko-api/pkg/config"
	appErrors "github.com/rakapradana/toko-api/pkg/errors"
)

// TokenService signs and verifies the compact bearer tokens used across
// the auth flows. All classes share one HS256 secret; the embedded class
// claim keeps them from being interchangeable.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	adminTTL   time.Duration
	stepUpTTL  time.Duration
	now        func() time.Time
}

// NewTokenService constructs a TokenService. A missing signing secret is a
// startup-time failure, never a silent fallback.
func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token service: signing secret is not configured")
	}
	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessExpiration,
		refreshTTL: cfg.RefreshExpiration,
		adminTTL:   cfg.AdminExpiration,
		stepUpTTL:  cfg.StepUpExpiration,
		now:        time.Now,
	}, nil
}

// RefreshTTL returns the configured refresh token lifetime. The session
// store needs it before the token itself is signed.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// SignAccess produces a short-lived access token for a regular session.
func (s *TokenService) SignAccess(user *models.User) (string, time.Duration, error) {
	token, err := s.sign(user, models.TokenClassAccess, s.accessTTL, "", "")
	return token, s.accessTTL, err
}

// SignRefresh produces a refresh token bound to the given session record.
func (s *TokenService) SignRefresh(user *models.User, sessionID string) (string, time.Duration, error) {
	token, err := s.sign(user, models.TokenClassRefresh, s.refreshTTL, sessionID, "")
	return token, s.refreshTTL, err
}

// SignAdmin produces the longer-lived elevated session token.
func (s *TokenService) SignAdmin(user *models.User) (string, time.Duration, error) {
	token, err := s.sign(user, models.TokenClassAdmin, s.adminTTL, "", "")
	return token, s.adminTTL, err
}

// SignStepUp produces a short-lived proof of recent re-authentication for
// the given purpose.
func (s *TokenService) SignStepUp(user *models.User, purpose string) (string, time.Duration, error) {
	token, err := s.sign(user, models.TokenClassStepUp, s.stepUpTTL, "", purpose)
	return token, s.stepUpTTL, err
}

func (s *TokenService) sign(user *models.User, class models.TokenClass, ttl time.Duration, sessionID, purpose string) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.AuthClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Class:     class,
		SessionID: sessionID,
		Purpose:   purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", class, err)
	}
	return signed, nil
}

// Verify parses the token and validates signature, expiry and class. A
// class mismatch is reported as plain unauthorized so callers cannot probe
// which token variants exist.
func (s *TokenService) Verify(tokenString string, expected models.TokenClass) (*models.AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, appErrors.ErrTokenExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.AuthClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Class != expected {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	return claims, nil
}
