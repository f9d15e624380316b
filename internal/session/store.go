// Package session keeps the server-side half of an access token: one row per
// issued token, so logout and password changes can invalidate it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInvalid is returned for unknown, revoked or expired sessions.
var ErrInvalid = errors.New("session invalid")

type Store struct {
	DB  *gorm.DB
	TTL time.Duration
}

func NewStore(db *gorm.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{DB: db, TTL: ttl}
}

// Create opens a session for the user and returns it.
func (s *Store) Create(ctx context.Context, userID string, now time.Time) (*models.Session, error) {
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.UTC().Add(s.TTL),
		CreatedAt: now.UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Validate checks that the session exists, belongs to the user, is not
// revoked and has not expired.
func (s *Store) Validate(ctx context.Context, id, userID string, now time.Time) error {
	var sess models.Session
	err := s.DB.WithContext(ctx).First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalid
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != userID || sess.Revoked || !now.Before(sess.ExpiresAt) {
		return ErrInvalid
	}
	return nil
}

// Revoke invalidates a single session.
func (s *Store) Revoke(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		Update("revoked", true).Error
}

// RevokeOthers invalidates every session of the user except keepID.
func (s *Store) RevokeOthers(ctx context.Context, userID, keepID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND id <> ? AND revoked = ?", userID, keepID, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

// Purge deletes revoked and expired sessions.
func (s *Store) Purge(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("revoked = ? OR expires_at < ?", true, now.UTC()).
		Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

// RunJanitor purges sessions every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, log *zap.Logger) error {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := s.Purge(ctx, now)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged sessions", zap.Int64("count", n))
			}
		}
	}
}
