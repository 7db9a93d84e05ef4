package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/silianos/voyage-api/internal/core/domain"
	"github.com/silianos/voyage-api/internal/core/ports"
)

const (
	DefaultCustomerTTL = 7 * 24 * time.Hour
	DefaultAdminTTL    = 24 * time.Hour
)

// AuthDeps groups the collaborators of AuthService. Throttle and Audit are optional.
type AuthDeps struct {
	Customers   ports.CustomerRepository
	Admins      ports.AdminRepository
	Hasher      ports.PasswordHasher
	Tokens      ports.TokenIssuer
	Throttle    ports.LoginThrottle
	Audit       ports.AuditSink
	CustomerTTL time.Duration
	AdminTTL    time.Duration
	Log         zerolog.Logger
}

type AuthService struct {
	customers   ports.CustomerRepository
	admins      ports.AdminRepository
	hasher      ports.PasswordHasher
	tokens      ports.TokenIssuer
	throttle    ports.LoginThrottle
	audit       ports.AuditSink
	customerTTL time.Duration
	adminTTL    time.Duration
	log         zerolog.Logger
	now         func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(deps AuthDeps) *AuthService {
	s := &AuthService{
		customers:   deps.Customers,
		admins:      deps.Admins,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		throttle:    deps.Throttle,
		audit:       deps.Audit,
		customerTTL: deps.CustomerTTL,
		adminTTL:    deps.AdminTTL,
		log:         deps.Log,
		now:         time.Now,
	}
	if s.throttle == nil {
		s.throttle = noThrottle{}
	}
	if s.audit == nil {
		s.audit = discardAudit{}
	}
	if s.customerTTL <= 0 {
		s.customerTTL = DefaultCustomerTTL
	}
	if s.adminTTL <= 0 {
		s.adminTTL = DefaultAdminTTL
	}
	return s
}

// ----------------------------------------------------------------------------
// Customers
// ----------------------------------------------------------------------------

func (s *AuthService) LoginCustomer(ctx context.Context, in ports.LoginInput) (*ports.CustomerSession, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.NewValidationError("email and password are required")
	}

	throttleKey := string(domain.KindCustomer) + ":" + email
	if err := s.checkThrottle(ctx, throttleKey); err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if customer == nil {
		s.burnPasswordCheck(in.Password)
		s.loginFailed(ctx, throttleKey, domain.EventCustomerLoginFailed, domain.KindCustomer, email)
		return nil, domain.ErrInvalidCredentials
	}
	if !s.hasher.Verify(in.Password, customer.PasswordHash) {
		s.loginFailed(ctx, throttleKey, domain.EventCustomerLoginFailed, domain.KindCustomer, email)
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(customerIdentity(customer), s.customerTTL)
	if err != nil {
		return nil, err
	}
	s.resetThrottle(ctx, throttleKey)
	s.record(domain.EventCustomerLogin, domain.KindCustomer, customer.ID, email)

	return &ports.CustomerSession{Token: token, Customer: customer.View()}, nil
}

func (s *AuthService) RegisterCustomer(ctx context.Context, in ports.RegisterCustomerInput) (*ports.CustomerSession, error) {
	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" || name == "" {
		return nil, domain.NewValidationError("email, password, and name are required")
	}

	// The unique index is authoritative; this only spares a bcrypt round.
	if _, err := s.customers.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		Email:             email,
		PasswordHash:      digest,
		Name:              name,
		Phone:             optional(in.Phone),
		PreferredCurrency: domain.DefaultCurrency,
	}
	created, err := s.customers.Create(ctx, customer)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(customerIdentity(created), s.customerTTL)
	if err != nil {
		return nil, err
	}
	s.record(domain.EventCustomerRegistered, domain.KindCustomer, created.ID, email)
	s.log.Info().Str("customer_id", created.ID).Msg("customer registered")

	return &ports.CustomerSession{Token: token, Customer: created.View()}, nil
}

// UpdateProfile applies a partial profile change for the customer the token
// belongs to. The token is verified but not refreshed.
func (s *AuthService) UpdateProfile(ctx context.Context, token string, in ports.ProfileInput) (*domain.CustomerView, error) {
	session, err := s.verify(token)
	if err != nil {
		return nil, err
	}
	if session.Kind != domain.KindCustomer {
		return nil, domain.ErrForbidden
	}

	var changes domain.CustomerChanges
	if name := strings.TrimSpace(in.Name); name != "" {
		changes.Name = &name
	}
	if email := domain.NormalizeEmail(in.Email); email != "" {
		taken, err := s.customers.EmailTaken(ctx, email, session.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrDuplicateEmail
		}
		changes.Email = &email
	}
	if in.PhoneSet {
		changes.PhoneSet = true
		changes.Phone = optional(in.Phone)
	}
	if currency := strings.TrimSpace(in.PreferredCurrency); currency != "" {
		changes.PreferredCurrency = &currency
	}
	if changes.Empty() {
		return nil, domain.ErrNoFields
	}

	updated, err := s.customers.Update(ctx, session.ID, changes)
	if err != nil {
		return nil, err
	}
	s.record(domain.EventProfileUpdated, domain.KindCustomer, updated.ID, updated.Email)

	return updated.View(), nil
}

// ----------------------------------------------------------------------------
// Administrators
// ----------------------------------------------------------------------------

func (s *AuthService) LoginAdmin(ctx context.Context, in ports.LoginInput) (*ports.AdminSession, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.NewValidationError("email and password are required")
	}

	throttleKey := string(domain.KindAdministrator) + ":" + email
	if err := s.checkThrottle(ctx, throttleKey); err != nil {
		return nil, err
	}

	admin, err := s.admins.FindActiveByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if admin == nil {
		s.burnPasswordCheck(in.Password)
		s.loginFailed(ctx, throttleKey, domain.EventAdminLoginFailed, domain.KindAdministrator, email)
		return nil, domain.ErrInvalidCredentials
	}
	if !s.hasher.Verify(in.Password, admin.PasswordHash) {
		s.loginFailed(ctx, throttleKey, domain.EventAdminLoginFailed, domain.KindAdministrator, email)
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.admins.TouchLastLogin(ctx, admin.ID, now); err != nil {
		return nil, err
	}
	admin.LastLogin = &now

	token, err := s.tokens.Issue(adminIdentity(admin), s.adminTTL)
	if err != nil {
		return nil, err
	}
	s.resetThrottle(ctx, throttleKey)
	s.record(domain.EventAdminLogin, domain.KindAdministrator, admin.ID, admin.Username)

	return &ports.AdminSession{Token: token, Admin: admin.View()}, nil
}

// RegisterAdmin creates an active administrator and returns its id. No token
// is issued.
func (s *AuthService) RegisterAdmin(ctx context.Context, in ports.RegisterAdminInput) (string, error) {
	username := strings.TrimSpace(in.Username)
	email := domain.NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return "", domain.NewValidationError("username, email, and password are required")
	}

	exists, err := s.admins.Exists(ctx, username, email)
	if err != nil {
		return "", err
	}
	if exists {
		return "", domain.ErrDuplicateIdentity
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", err
	}

	created, err := s.admins.Create(ctx, &domain.Administrator{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		FullName:     optional(in.FullName),
		IsActive:     true,
	})
	if err != nil {
		return "", err
	}
	s.record(domain.EventAdminRegistered, domain.KindAdministrator, created.ID, username)
	s.log.Info().Str("admin_id", created.ID).Str("username", username).Msg("administrator registered")

	return created.ID, nil
}

// ----------------------------------------------------------------------------
// Sessions
// ----------------------------------------------------------------------------

// VerifyAndRefresh validates a token, re-reads its principal and issues a
// replacement that expires strictly later.
func (s *AuthService) VerifyAndRefresh(ctx context.Context, token string) (*ports.RefreshResult, error) {
	session, err := s.verify(token)
	if err != nil {
		return nil, err
	}

	switch session.Kind {
	case domain.KindAdministrator:
		admin, err := s.admins.FindActiveByID(ctx, session.ID)
		if err != nil {
			return nil, invalidIfMissing(err)
		}
		renewed, err := s.tokens.Renew(session, s.adminTTL)
		if err != nil {
			return nil, err
		}
		s.record(domain.EventSessionRefreshed, domain.KindAdministrator, admin.ID, admin.Username)
		return &ports.RefreshResult{Token: renewed, Kind: domain.KindAdministrator, Admin: admin.View()}, nil

	case domain.KindCustomer:
		customer, err := s.customers.FindByID(ctx, session.ID)
		if err != nil {
			return nil, invalidIfMissing(err)
		}
		renewed, err := s.tokens.Renew(session, s.customerTTL)
		if err != nil {
			return nil, err
		}
		s.record(domain.EventSessionRefreshed, domain.KindCustomer, customer.ID, customer.Email)
		return &ports.RefreshResult{Token: renewed, Kind: domain.KindCustomer, Customer: customer.View()}, nil

	default:
		return nil, domain.ErrInvalidToken
	}
}

func (s *AuthService) verify(token string) (*domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrMissingToken
	}
	session, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	return session, nil
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func (s *AuthService) checkThrottle(ctx context.Context, key string) error {
	ok, err := s.throttle.Allowed(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("login throttle check failed")
		return nil
	}
	if !ok {
		return domain.ErrTooManyAttempts
	}
	return nil
}

func (s *AuthService) loginFailed(ctx context.Context, key string, typ domain.AuthEventType, kind domain.PrincipalKind, subject string) {
	if err := s.throttle.RecordFailure(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to record login failure")
	}
	s.record(typ, kind, "", subject)
}

func (s *AuthService) resetThrottle(ctx context.Context, key string) {
	if err := s.throttle.Reset(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to reset login failures")
	}
}

// burnPasswordCheck spends the same bcrypt work as a real comparison so an
// unknown account is not distinguishable by response time.
func (s *AuthService) burnPasswordCheck(password string) {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("voyage-dummy-password")
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to prepare dummy password digest")
			return
		}
		s.dummyDigest = digest
	})
	if s.dummyDigest != "" {
		_ = s.hasher.Verify(password, s.dummyDigest)
	}
}

func (s *AuthService) record(typ domain.AuthEventType, kind domain.PrincipalKind, id, subject string) {
	s.audit.Record(domain.AuthEvent{
		Type:          typ,
		PrincipalKind: kind,
		PrincipalID:   id,
		Subject:       subject,
		OccurredAt:    s.now().UTC(),
	})
}

func customerIdentity(c *domain.Customer) domain.Identity {
	return domain.Identity{ID: c.ID, Kind: domain.KindCustomer, Claim: c.Email}
}

func adminIdentity(a *domain.Administrator) domain.Identity {
	return domain.Identity{ID: a.ID, Kind: domain.KindAdministrator, Claim: a.Username}
}

// invalidIfMissing hides a vanished principal behind the generic token error.
func invalidIfMissing(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidToken
	}
	return err
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

type noThrottle struct{}

func (noThrottle) Allowed(context.Context, string) (bool, error) { return true, nil }
func (noThrottle) RecordFailure(context.Context, string) error   { return nil }
func (noThrottle) Reset(context.Context, string) error           { return nil }

type discardAudit struct{}

func (discardAudit) Record(domain.AuthEvent) {}
