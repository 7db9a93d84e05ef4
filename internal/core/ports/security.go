package ports

import (
	"context"
	"time"

	"github.com/silianos/voyage-api/internal/core/domain"
)

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. A malformed digest is a mismatch.
	Verify(plaintext, digest string) bool
}

type TokenIssuer interface {
	Issue(identity domain.Identity, ttl time.Duration) (domain.IssuedToken, error)
	// Renew re-signs the session's identity. The new token always expires after
	// the one that produced the session.
	Renew(session *domain.Session, ttl time.Duration) (domain.IssuedToken, error)
	// Verify fails with domain.ErrInvalidToken for any malformed, expired or
	// forged token.
	Verify(token string) (*domain.Session, error)
}

// LoginThrottle counts failed logins per key.
type LoginThrottle interface {
	Allowed(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
