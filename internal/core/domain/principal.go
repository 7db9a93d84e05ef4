package domain

import "time"

// PrincipalKind tags who a session belongs to. The values are the ones carried
// in the token "type" claim and understood by the front-end.
type PrincipalKind string

const (
	KindCustomer      PrincipalKind = "user"
	KindAdministrator PrincipalKind = "admin"
)

func (k PrincipalKind) Valid() bool {
	return k == KindCustomer || k == KindAdministrator
}

// Identity is what a token asserts about its bearer. Claim holds the email for
// customers and the username for administrators.
type Identity struct {
	ID    string
	Kind  PrincipalKind
	Claim string
}

// Session is a verified token.
type Session struct {
	Identity
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// AuthTime is when the bearer last presented a password. Renewals keep it.
	AuthTime time.Time
}

// IssuedToken is a freshly signed bearer token.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}
