package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rakapradana/toko-api/internal/models"
	appErrors "github.com/rakapradana/toko-api/pkg/errors"
)

type sessionStore interface {
	Create(ctx context.Context, ownerID string, expiresAt time.Time) (string, error)
	AttachToken(ctx context.Context, id, token string) error
	FindByID(ctx context.Context, id string) (*models.SessionRecord, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.SessionRecord, error)
	DeleteExpiredBefore(ctx context.Context, now time.Time) error
}

type sessionUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SessionService owns the refresh-token session lifecycle: issuance with
// the per-owner cap, refresh validation against the stored record, and
// revocation. It is the only path that creates session records.
type SessionService struct {
	store   sessionStore
	users   sessionUserStore
	tokens  *TokenService
	logger  *zap.Logger
	metrics *MetricsService
	limit   int

	locksMu    sync.Mutex
	ownerLocks map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionService constructs a SessionService with a live-session cap of
// limit records per owner. metrics may be nil.
func NewSessionService(store sessionStore, users sessionUserStore, tokens *TokenService, logger *zap.Logger, metrics *MetricsService, limit int) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		store:      store,
		users:      users,
		tokens:     tokens,
		logger:     logger,
		metrics:    metrics,
		limit:      limit,
		ownerLocks: make(map[string]*ownerLock),
	}
}

// lockOwner serializes create+evict for a single owner so two concurrent
// logins cannot both pass the cap check and leave limit+1 records behind.
// Locks are reference counted and dropped by unlockOwner once the last
// holder releases, so the map does not grow with the owner population.
func (s *SessionService) lockOwner(ownerID string) *ownerLock {
	s.locksMu.Lock()
	l, ok := s.ownerLocks[ownerID]
	if !ok {
		l = &ownerLock{}
		s.ownerLocks[ownerID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return l
}

func (s *SessionService) unlockOwner(ownerID string, l *ownerLock) {
	l.mu.Unlock()

	s.locksMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.ownerLocks, ownerID)
	}
	s.locksMu.Unlock()
}

// Issue creates a session record and signs the access/refresh token pair.
// Expired records for the owner are swept first; if the owner is at the
// cap the oldest records are evicted FIFO. Any store failure aborts the
// issuance: a token is never returned without a durable record behind it.
func (s *SessionService) Issue(ctx context.Context, user *models.User) (*models.IssuedTokens, error) {
	lock := s.lockOwner(user.ID)
	defer s.unlockOwner(user.ID, lock)

	now := s.tokens.now().UTC()

	if err := s.store.DeleteExpiredBefore(ctx, now); err != nil {
		s.logger.Warn("failed to sweep expired sessions", zap.Error(err))
	}

	records, err := s.store.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	live := records[:0]
	for _, record := range records {
		if record.ExpiresAt.After(now) {
			live = append(live, record)
		}
	}

	// ListByOwner orders by created_at ascending, so live[0] is the oldest.
	for len(live) >= s.limit {
		if err := s.store.DeleteByID(ctx, live[0].ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
		}
		s.logger.Info("evicted oldest session at cap",
			zap.String("owner_id", user.ID),
			zap.String("session_id", live[0].ID),
		)
		if s.metrics != nil {
			s.metrics.IncSessionEvicted()
		}
		live = live[1:]
	}

	recordID, err := s.store.Create(ctx, user.ID, now.Add(s.tokens.RefreshTTL()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	refreshToken, refreshTTL, err := s.tokens.SignRefresh(user, recordID)
	if err != nil {
		s.deleteBestEffort(ctx, recordID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign refresh token")
	}

	if err := s.store.AttachToken(ctx, recordID, refreshToken); err != nil {
		s.deleteBestEffort(ctx, recordID)
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	accessToken, accessTTL, err := s.tokens.SignAccess(user)
	if err != nil {
		s.deleteBestEffort(ctx, recordID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	return &models.IssuedTokens{
		AccessToken:      accessToken,
		AccessExpiresIn:  accessTTL,
		RefreshToken:     refreshToken,
		RefreshExpiresIn: refreshTTL,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token and its record are never rotated here; only access tokens
// are reissued. The presented token must both decode to a live record id
// and match the record's stored value byte for byte, so a replayed copy of
// an old signed token dies with its record.
func (s *SessionService) Refresh(ctx context.Context, presented string) (string, time.Duration, error) {
	claims, err := s.tokens.Verify(presented, models.TokenClassRefresh)
	if err != nil {
		return "", 0, err
	}

	record, err := s.store.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Signature verified but no live record: rotation or revocation
			// already happened, or this is a replayed token. Logged with the
			// reason; the response is indistinguishable from plain expiry.
			s.logger.Warn("refresh token does not match a live session",
				zap.String("owner_id", claims.UserID),
				zap.String("session_id", claims.SessionID),
				zap.String("reason", "record_missing"),
			)
			return "", 0, appErrors.Clone(appErrors.ErrSessionExpired, "")
		}
		return "", 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	if record.Token != presented {
		s.logger.Warn("refresh token does not match a live session",
			zap.String("owner_id", claims.UserID),
			zap.String("session_id", claims.SessionID),
			zap.String("reason", "token_mismatch"),
		)
		return "", 0, appErrors.Clone(appErrors.ErrSessionExpired, "")
	}

	if record.ExpiresAt.Before(s.tokens.now().UTC()) {
		if err := s.store.DeleteByID(ctx, record.ID); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return "", 0, appErrors.Clone(appErrors.ErrSessionExpired, "")
	}

	user, err := s.users.FindByID(ctx, record.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
		}
		return "", 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if !user.Active {
		return "", 0, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	accessToken, accessTTL, err := s.tokens.SignAccess(user)
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}
	return accessToken, accessTTL, nil
}

// Revoke deletes any session record holding the presented token value. A
// missing or empty token is a no-op; the operation is idempotent.
func (s *SessionService) Revoke(ctx context.Context, presented string) error {
	if presented == "" {
		return nil
	}
	if err := s.store.DeleteByToken(ctx, presented); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	return nil
}

// ListForOwner returns the owner's live sessions for the device list.
func (s *SessionService) ListForOwner(ctx context.Context, ownerID string) ([]models.SessionInfo, error) {
	records, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	now := s.tokens.now().UTC()
	infos := make([]models.SessionInfo, 0, len(records))
	for _, record := range records {
		if record.ExpiresAt.After(now) {
			infos = append(infos, models.SessionInfo{ID: record.ID, CreatedAt: record.CreatedAt, ExpiresAt: record.ExpiresAt})
		}
	}
	return infos, nil
}

func (s *SessionService) deleteBestEffort(ctx context.Context, recordID string) {
	if err := s.store.DeleteByID(ctx, recordID); err != nil {
		s.logger.Warn("failed to clean up orphaned session record", zap.String("session_id", recordID), zap.Error(err))
	}
}
