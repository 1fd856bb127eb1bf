package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a JWT without verifying it.
// ok is false for tokens that are not JWTs or carry no exp claim.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return time.Time{}, false
	}
	return expiresAt.Time, true
}

// HasToken reports whether a session id and a token are persisted.
// A JWT token past its exp claim counts as absent and is reset.
func (s *Store) HasToken(ctx context.Context) bool {
	if !s.opts.Secrets.HasToken(ctx) {
		return false
	}

	token, err := s.opts.Secrets.Token(ctx)
	if err != nil {
		return false
	}
	if exp, ok := TokenExpiry(token); ok && !exp.After(time.Now()) {
		s.opts.Logger.WithField("expired_at", exp.Format(time.RFC3339)).Info("persisted token expired")
		if err := s.ResetToken(ctx); err != nil {
			s.opts.Logger.WithError(err).Warn("failed to reset expired token")
		}
		return false
	}

	s.mu.Lock()
	if s.token != token {
		s.token = token
		if uuid, err := s.opts.Secrets.UUID(ctx); err == nil {
			s.uuid = uuid
		}
	}
	s.mu.Unlock()
	return true
}

// WatchSecrets follows external changes to the persisted secrets, such as a logout from
// another console process. It returns secret.ErrWatchUnsupported for stores that cannot be watched.
func (s *Store) WatchSecrets(ctx context.Context) error {
	return s.opts.Secrets.Watch(ctx, func() {
		if s.opts.Secrets.HasToken(ctx) {
			return
		}
		if s.Token() == "" {
			return
		}
		s.opts.Logger.Info("session cleared by another process")
		s.clearState()
	})
}
