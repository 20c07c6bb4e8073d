package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rakapradana/toko-api/internal/models"
	appErrors "github.com/rakapradana/toko-api/pkg/errors"
	"github.com/rakapradana/toko-api/pkg/hash"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// StepUpPurpose scopes step-up tokens to irreversible back-office actions.
const StepUpPurpose = "admin_action"

// AuthService validates credentials and drives the login, logout and
// step-up flows. Rate limiting is enforced by middleware before any of
// these methods run.
type AuthService struct {
	repo      authUserRepository
	sessions  *SessionService
	tokens    *TokenService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, sessions *SessionService, tokens *TokenService, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, sessions: sessions, tokens: tokens, validator: validate, logger: logger}
}

// Login authenticates a user and issues tokens. Customers receive an
// access/refresh pair backed by a session record; elevated roles receive a
// single admin-class token and an audit log entry.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, *models.IssuedTokens, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	if !hash.Verify(req.Password, user.PasswordHash) {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if !user.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	var issued *models.IssuedTokens
	var expiresIn time.Duration

	if user.Role.Elevated() {
		adminToken, adminTTL, err := s.tokens.SignAdmin(user)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign admin token")
		}
		issued = &models.IssuedTokens{AdminToken: adminToken, AdminExpiresIn: adminTTL}
		expiresIn = adminTTL

		if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &user.ID,
			Action:     models.AuditActionAdminLogin,
			Resource:   "auth",
			ResourceID: &user.ID,
			NewValues:  []byte(`{"status":"success"}`),
			IPAddress:  req.IP,
			UserAgent:  req.UserAgent,
		}); err != nil {
			s.logger.Warn("failed to record admin login audit log", zap.Error(err))
		}
	} else {
		issued, err = s.sessions.Issue(ctx, user)
		if err != nil {
			return nil, nil, err
		}
		expiresIn = issued.AccessExpiresIn
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	return &models.LoginResponse{
		User: models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
		ExpiresIn: int64(expiresIn.Seconds()),
		IssuedAt:  time.Now().UTC(),
	}, issued, nil
}

// Logout revokes the presented refresh token. Store failures are swallowed
// so logout always appears to succeed to the client.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		s.logger.Warn("failed to revoke session on logout", zap.Error(err))
	}
}

// IssueStepUp re-confirms the caller's password and signs a short-lived
// step-up token. The caller is already authenticated with an admin token;
// this proves the password was re-entered just now.
func (s *AuthService) IssueStepUp(ctx context.Context, userID string, req models.StepUpRequest) (string, time.Duration, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, appErrors.Clone(appErrors.ErrUnauthorized, "")
		}
		return "", 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	if !hash.Verify(req.Password, user.PasswordHash) {
		return "", 0, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	token, ttl, err := s.tokens.SignStepUp(user, StepUpPurpose)
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign verification token")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionStepUp,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"purpose":"` + StepUpPurpose + `"}`),
		IPAddress:  req.IP,
	}); err != nil {
		s.logger.Warn("failed to record step-up audit log", zap.Error(err))
	}

	return token, ttl, nil
}

// CheckStepUp reports whether the token proves a recent re-authentication
// by subjectID. It always answers plainly with a reason instead of
// failing: callers degrade to asking for the password again.
func (s *AuthService) CheckStepUp(token, subjectID string) models.StepUpStatus {
	if token == "" {
		return models.StepUpStatus{Verified: false, Reason: "absent"}
	}

	claims, err := s.tokens.Verify(token, models.TokenClassStepUp)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrTokenExpired) {
			return models.StepUpStatus{Verified: false, Reason: "expired"}
		}
		return models.StepUpStatus{Verified: false, Reason: "invalid"}
	}

	if claims.UserID != subjectID || claims.Purpose != StepUpPurpose {
		return models.StepUpStatus{Verified: false, Reason: "mismatched"}
	}

	expiresIn := int64(claims.ExpiresAt.Time.Sub(s.tokens.now()).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return models.StepUpStatus{Verified: true, ExpiresIn: expiresIn}
}
