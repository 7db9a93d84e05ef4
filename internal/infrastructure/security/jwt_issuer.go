package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/silianos/voyage-api/internal/core/domain"
)

// tokenClaims is the wire form of a session token. The id/type/email/username
// names are read by the browser client.
type tokenClaims struct {
	ID       string               `json:"id"`
	Type     domain.PrincipalKind `json:"type"`
	Email    string               `json:"email,omitempty"`
	Username string               `json:"username,omitempty"`
	AuthTime *jwt.NumericDate     `json:"auth_time,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 session tokens. It implements ports.TokenIssuer.
type JWTIssuer struct {
	secret        []byte
	maxSessionAge time.Duration
	now           func() time.Time
	parser        *jwt.Parser
}

type JWTOption func(*JWTIssuer)

// WithMaxSessionAge bounds how long a chain of renewed tokens stays valid,
// measured from the original login. Zero disables the bound.
func WithMaxSessionAge(d time.Duration) JWTOption {
	return func(i *JWTIssuer) { i.maxSessionAge = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) JWTOption {
	return func(i *JWTIssuer) { i.now = now }
}

func NewJWTIssuer(secret string, opts ...JWTOption) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt issuer: empty signing secret")
	}
	i := &JWTIssuer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	i.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	return i, nil
}

func (i *JWTIssuer) Issue(identity domain.Identity, ttl time.Duration) (domain.IssuedToken, error) {
	now := i.now().Truncate(time.Second)
	return i.sign(identity, now, now, now.Add(ttl))
}

// Renew keeps the session's auth time and moves the expiry to now+ttl, or one
// second past the previous expiry when that is later. Token timestamps have
// second precision.
func (i *JWTIssuer) Renew(session *domain.Session, ttl time.Duration) (domain.IssuedToken, error) {
	now := i.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	if !expiresAt.After(session.ExpiresAt) {
		expiresAt = session.ExpiresAt.Truncate(time.Second).Add(time.Second)
	}
	authTime := session.AuthTime
	if authTime.IsZero() {
		authTime = now
	}
	return i.sign(session.Identity, now, authTime, expiresAt)
}

func (i *JWTIssuer) sign(identity domain.Identity, issuedAt, authTime, expiresAt time.Time) (domain.IssuedToken, error) {
	if identity.ID == "" || !identity.Kind.Valid() {
		return domain.IssuedToken{}, fmt.Errorf("sign token: incomplete identity %q/%q", identity.ID, identity.Kind)
	}

	claims := tokenClaims{
		ID:       identity.ID,
		Type:     identity.Kind,
		AuthTime: jwt.NewNumericDate(authTime),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	switch identity.Kind {
	case domain.KindCustomer:
		claims.Email = identity.Claim
	case domain.KindAdministrator:
		claims.Username = identity.Claim
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return domain.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

func (i *JWTIssuer) Verify(token string) (*domain.Session, error) {
	var claims tokenClaims
	parsed, err := i.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	identity := domain.Identity{ID: claims.ID, Kind: claims.Type}
	switch claims.Type {
	case domain.KindCustomer:
		identity.Claim = claims.Email
	case domain.KindAdministrator:
		identity.Claim = claims.Username
	default:
		return nil, domain.ErrInvalidToken
	}
	if identity.ID == "" || identity.Claim == "" {
		return nil, domain.ErrInvalidToken
	}

	// Tokens minted before auth_time existed fall back to iat.
	authTime := claims.AuthTime
	if authTime == nil {
		authTime = claims.IssuedAt
	}
	if authTime == nil {
		return nil, domain.ErrInvalidToken
	}
	if i.maxSessionAge > 0 && i.now().After(authTime.Add(i.maxSessionAge)) {
		return nil, domain.ErrInvalidToken
	}

	session := &domain.Session{
		Identity:  identity,
		TokenID:   claims.RegisteredClaims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		AuthTime:  authTime.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	return session, nil
}
