package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClass distinguishes the signed token variants. Classes share the
// signing secret but are never interchangeable: a refresh token presented
// where an access token is expected must be rejected.
type TokenClass string

const (
	TokenClassAccess  TokenClass = "access"
	TokenClassRefresh TokenClass = "refresh"
	TokenClassAdmin   TokenClass = "admin"
	TokenClassStepUp  TokenClass = "stepup"
)

// Cookie names shared by the handlers and the auth guard.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
	CookieAdminToken   = "admin_token"
	CookieStepUpToken  = "stepup_token"
)

// AuthClaims is the JWT payload shared by all token classes. SessionID is
// set only on refresh tokens and binds the token to exactly one sessions
// row. Purpose is set only on step-up tokens.
type AuthClaims struct {
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Class     TokenClass `json:"token_class"`
	SessionID string     `json:"session_id,omitempty"`
	Purpose   string     `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// StepUpRequest re-confirms the caller's password for sensitive admin
// operations.
type StepUpRequest struct {
	Password string `json:"password" validate:"required"`
	IP       string `json:"-"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// IssuedTokens carries signed tokens plus their cookie lifetimes. Cookie
// MaxAge must always equal the token's own expiry. For elevated roles only
// AdminToken is set; otherwise AccessToken and RefreshToken are.
type IssuedTokens struct {
	AccessToken      string
	AccessExpiresIn  time.Duration
	RefreshToken     string
	RefreshExpiresIn time.Duration
	AdminToken       string
	AdminExpiresIn   time.Duration
}

// LoginResponse returns the identity summary; tokens travel in cookies.
type LoginResponse struct {
	User      UserInfo  `json:"user"`
	ExpiresIn int64     `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
}

// StepUpStatus reports the outcome of a step-up verification check. It is
// always a plain answer, never an error: callers degrade to asking for the
// password again.
type StepUpStatus struct {
	Verified  bool   `json:"verified"`
	ExpiresIn int64  `json:"expires_in"`
	Reason    string `json:"reason,omitempty"`
}

// SessionInfo summarises one live session for the owner's device list.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
