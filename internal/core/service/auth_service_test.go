package service

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/silianos/voyage-api/internal/core/domain"
	"github.com/silianos/voyage-api/internal/core/ports"
	"github.com/silianos/voyage-api/internal/infrastructure/security"
)

type authFixture struct {
	svc       *AuthService
	customers *stubCustomerRepo
	admins    *stubAdminRepo
	throttle  *stubThrottle
	audit     *recordingAudit
	tokens    *security.JWTIssuer
	hasher    *security.BcryptHasher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens, err := security.NewJWTIssuer("test-secret")
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	f := &authFixture{
		customers: newStubCustomerRepo(),
		admins:    newStubAdminRepo(),
		throttle:  newStubThrottle(3),
		audit:     &recordingAudit{},
		tokens:    tokens,
		hasher:    security.NewBcryptHasher(bcrypt.MinCost),
	}
	f.svc = NewAuthService(AuthDeps{
		Customers: f.customers,
		Admins:    f.admins,
		Hasher:    f.hasher,
		Tokens:    f.tokens,
		Throttle:  f.throttle,
		Audit:     f.audit,
		Log:       zerolog.Nop(),
	})
	return f
}

func (f *authFixture) registerCustomer(t *testing.T, email, password, name string) *ports.CustomerSession {
	t.Helper()
	sess, err := f.svc.RegisterCustomer(context.Background(), ports.RegisterCustomerInput{
		Email: email, Password: password, Name: name,
	})
	if err != nil {
		t.Fatalf("register customer: %v", err)
	}
	return sess
}

func (f *authFixture) seedAdmin(t *testing.T, username, email, password string, active bool) *domain.Administrator {
	t.Helper()
	digest, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a, err := f.admins.Create(context.Background(), &domain.Administrator{
		Username: username, Email: email, PasswordHash: digest, IsActive: active,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return a
}

// ----------------------------------------------------------------------------
// Customer registration and login
// ----------------------------------------------------------------------------

func TestAuthService_RegisterCustomer_TokenIdentifiesCustomer(t *testing.T) {
	f := newAuthFixture(t)

	sess := f.registerCustomer(t, "a@x.com", "secret123", "Ana")
	if sess.Customer.Name != "Ana" || sess.Customer.Email != "a@x.com" {
		t.Fatalf("unexpected customer view: %+v", sess.Customer)
	}
	if sess.Customer.PreferredCurrency != domain.DefaultCurrency {
		t.Fatalf("expected default currency, got %q", sess.Customer.PreferredCurrency)
	}
	if sess.Customer.Phone != nil {
		t.Fatalf("expected no phone, got %v", *sess.Customer.Phone)
	}

	session, err := f.tokens.Verify(sess.Token.Value)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if session.ID != sess.Customer.ID || session.Kind != domain.KindCustomer {
		t.Fatalf("token identity mismatch: %+v", session.Identity)
	}
	if d := time.Until(sess.Token.ExpiresAt); d < DefaultCustomerTTL-time.Minute || d > DefaultCustomerTTL {
		t.Fatalf("unexpected customer token lifetime %v", d)
	}

	stored := f.customers.customers[sess.Customer.ID]
	if stored.PasswordHash == "secret123" || !f.hasher.Verify("secret123", stored.PasswordHash) {
		t.Fatalf("password not stored as a hash")
	}
}

func TestAuthService_RegisterCustomer_Validation(t *testing.T) {
	f := newAuthFixture(t)

	cases := []ports.RegisterCustomerInput{
		{Password: "pw", Name: "Ana"},
		{Email: "a@x.com", Name: "Ana"},
		{Email: "a@x.com", Password: "pw"},
		{Email: "a@x.com", Password: "pw", Name: "   "},
	}
	for _, in := range cases {
		if _, err := f.svc.RegisterCustomer(context.Background(), in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
}

func TestAuthService_RegisterCustomer_DuplicateEmailIgnoresCase(t *testing.T) {
	f := newAuthFixture(t)
	f.registerCustomer(t, "a@x.com", "secret123", "Ana")

	_, err := f.svc.RegisterCustomer(context.Background(), ports.RegisterCustomerInput{
		Email: " A@X.COM ", Password: "other", Name: "Other",
	})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_RegisterCustomer_UniqueIndexWinsRace(t *testing.T) {
	f := newAuthFixture(t)
	f.customers.raceOnCreate = true

	_, err := f.svc.RegisterCustomer(context.Background(), ports.RegisterCustomerInput{
		Email: "a@x.com", Password: "secret123", Name: "Ana",
	})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_LoginCustomer_EmailIsCaseInsensitive(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.registerCustomer(t, "a@x.com", "secret123", "Ana")

	sess, err := f.svc.LoginCustomer(context.Background(), ports.LoginInput{Email: "A@X.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if sess.Customer.ID != reg.Customer.ID {
		t.Fatalf("expected id %s, got %s", reg.Customer.ID, sess.Customer.ID)
	}
	if sess.Token.Value == "" {
		t.Fatalf("expected token")
	}
}

func TestAuthService_LoginCustomer_UniformFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.registerCustomer(t, "a@x.com", "secret123", "Ana")

	_, wrongPassword := f.svc.LoginCustomer(context.Background(), ports.LoginInput{Email: "a@x.com", Password: "nope"})
	_, unknown := f.svc.LoginCustomer(context.Background(), ports.LoginInput{Email: "b@x.com", Password: "nope"})

	if wrongPassword != domain.ErrInvalidCredentials || unknown != domain.ErrInvalidCredentials {
		t.Fatalf("expected identical ErrInvalidCredentials, got %v / %v", wrongPassword, unknown)
	}
}

func TestAuthService_LoginCustomer_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.svc.LoginCustomer(context.Background(), ports.LoginInput{Email: "a@x.com"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.LoginCustomer(context.Background(), ports.LoginInput{Password: "pw"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthService_LoginCustomer_Throttled(t *testing.T) {
	f := newAuthFixture(t)
	f.registerCustomer(t, "a@x.com", "secret123", "Ana")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.LoginCustomer(ctx, ports.LoginInput{Email: "a@x.com", Password: "bad"}); err != domain.ErrInvalidCredentials {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// Even the right password is refused once the key is blocked.
	if _, err := f.svc.LoginCustomer(ctx, ports.LoginInput{Email: "a@x.com", Password: "secret123"}); err != domain.ErrTooManyAttempts {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}

	// Unknown accounts are throttled the same way.
	for i := 0; i < 3; i++ {
		_, _ = f.svc.LoginCustomer(ctx, ports.LoginInput{Email: "ghost@x.com", Password: "bad"})
	}
	if _, err := f.svc.LoginCustomer(ctx, ports.LoginInput{Email: "ghost@x.com", Password: "bad"}); err != domain.ErrTooManyAttempts {
		t.Fatalf("expected ErrTooManyAttempts for unknown account, got %v", err)
	}
}

func TestAuthService_LoginCustomer_SuccessResetsThrottle(t *testing.T) {
	f := newAuthFixture(t)
	f.registerCustomer(t, "a@x.com", "secret123", "Ana")
	ctx := context.Background()

	_, _ = f.svc.LoginCustomer(ctx, ports.LoginInput{Email: "a@x.com", Password: "bad"})
	if f.throttle.failures["user:a@x.com"] != 1 {
		t.Fatalf("expected one recorded failure, got %d", f.throttle.failures["user:a@x.com"])
	}

	if _, err := f.svc.LoginCustomer(ctx, ports.LoginInput{Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, ok := f.throttle.failures["user:a@x.com"]; ok {
		t.Fatalf("expected failures to be reset")
	}
}

func TestAuthService_LoginCustomer_ResetFailureIsLogged(t *testing.T) {
	f := newAuthFixture(t)
	f.registerCustomer(t, "a@x.com", "secret123", "Ana")
	f.throttle.resetErr = errors.New("redis: connection refused")

	var logs bytes.Buffer
	f.svc.log = zerolog.New(&logs)

	if _, err := f.svc.LoginCustomer(context.Background(), ports.LoginInput{Email: "a@x.com", Password: "secret123"}); err != nil {
		t.Fatalf("login must not fail on reset error: %v", err)
	}
	if !strings.Contains(logs.String(), "failed to reset login failures") || !strings.Contains(logs.String(), "user:a@x.com") {
		t.Fatalf("expected reset failure to be logged, got %q", logs.String())
	}
}

// ----------------------------------------------------------------------------
// Administrators
// ----------------------------------------------------------------------------

func TestAuthService_LoginAdmin_Success(t *testing.T) {
	f := newAuthFixture(t)
	admin := f.seedAdmin(t, "root", "root@x.com", "s3cret", true)

	sess, err := f.svc.LoginAdmin(context.Background(), ports.LoginInput{Email: "ROOT@x.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if sess.Admin.ID != admin.ID || sess.Admin.Username != "root" {
		t.Fatalf("unexpected admin view: %+v", sess.Admin)
	}
	if f.admins.admins[admin.ID].LastLogin == nil {
		t.Fatalf("expected last login to be recorded")
	}

	session, err := f.tokens.Verify(sess.Token.Value)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if session.Kind != domain.KindAdministrator || session.Claim != "root" {
		t.Fatalf("unexpected token identity: %+v", session.Identity)
	}
	if d := time.Until(sess.Token.ExpiresAt); d > DefaultAdminTTL || d < DefaultAdminTTL-time.Minute {
		t.Fatalf("unexpected admin token lifetime %v", d)
	}
}

func TestAuthService_LoginAdmin_InactiveIsInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAdmin(t, "root", "root@x.com", "s3cret", false)

	_, err := f.svc.LoginAdmin(context.Background(), ports.LoginInput{Email: "root@x.com", Password: "s3cret"})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_LoginAdmin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAdmin(t, "root", "root@x.com", "s3cret", true)

	_, err := f.svc.LoginAdmin(context.Background(), ports.LoginInput{Email: "root@x.com", Password: "guess"})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_RegisterAdmin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	id, err := f.svc.RegisterAdmin(ctx, ports.RegisterAdminInput{Username: "root", Email: "Root@X.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	stored := f.admins.admins[id]
	if stored == nil || !stored.IsActive || stored.Email != "root@x.com" || stored.FullName != nil {
		t.Fatalf("unexpected stored admin: %+v", stored)
	}

	if _, err := f.svc.RegisterAdmin(ctx, ports.RegisterAdminInput{Username: "root", Email: "other@x.com", Password: "pw"}); err != domain.ErrDuplicateIdentity {
		t.Fatalf("expected ErrDuplicateIdentity for username, got %v", err)
	}
	if _, err := f.svc.RegisterAdmin(ctx, ports.RegisterAdminInput{Username: "other", Email: "ROOT@x.com", Password: "pw"}); err != domain.ErrDuplicateIdentity {
		t.Fatalf("expected ErrDuplicateIdentity for email, got %v", err)
	}
	if _, err := f.svc.RegisterAdmin(ctx, ports.RegisterAdminInput{Username: "x", Password: "pw"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// ----------------------------------------------------------------------------
// Verify and refresh
// ----------------------------------------------------------------------------

func TestAuthService_VerifyAndRefresh_Customer(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.registerCustomer(t, "a@x.com", "secret123", "Ana")
	ctx := context.Background()

	first, err := f.svc.VerifyAndRefresh(ctx, reg.Token.Value)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	second, err := f.svc.VerifyAndRefresh(ctx, first.Token.Value)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	if first.Kind != domain.KindCustomer || first.Customer == nil || first.Admin != nil {
		t.Fatalf("unexpected refresh result: %+v", first)
	}
	if first.Token.Value == second.Token.Value {
		t.Fatalf("expected distinct tokens")
	}
	if !second.Token.ExpiresAt.After(first.Token.ExpiresAt) {
		t.Fatalf("expected strictly later expiry: %v then %v", first.Token.ExpiresAt, second.Token.ExpiresAt)
	}
}

func TestAuthService_VerifyAndRefresh_Admin(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAdmin(t, "root", "root@x.com", "s3cret", true)
	ctx := context.Background()

	sess, err := f.svc.LoginAdmin(ctx, ports.LoginInput{Email: "root@x.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	res, err := f.svc.VerifyAndRefresh(ctx, sess.Token.Value)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.Kind != domain.KindAdministrator || res.Admin == nil || res.Customer != nil {
		t.Fatalf("unexpected refresh result: %+v", res)
	}
	if !res.Token.ExpiresAt.After(sess.Token.ExpiresAt) {
		t.Fatalf("expected strictly later expiry")
	}
}

func TestAuthService_VerifyAndRefresh_Failures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.svc.VerifyAndRefresh(ctx, ""); err != domain.ErrMissingToken {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := f.svc.VerifyAndRefresh(ctx, "garbage"); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	expired, err := f.tokens.Issue(domain.Identity{ID: newID(1), Kind: domain.KindCustomer, Claim: "a@x.com"}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := f.svc.VerifyAndRefresh(ctx, expired.Value); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	// Well-formed token for a principal that no longer exists.
	ghost, err := f.tokens.Issue(domain.Identity{ID: newID(99), Kind: domain.KindCustomer, Claim: "ghost@x.com"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := f.svc.VerifyAndRefresh(ctx, ghost.Value); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for missing principal, got %v", err)
	}
}

func TestAuthService_VerifyAndRefresh_DeactivatedAdmin(t *testing.T) {
	f := newAuthFixture(t)
	admin := f.seedAdmin(t, "root", "root@x.com", "s3cret", true)
	ctx := context.Background()

	sess, err := f.svc.LoginAdmin(ctx, ports.LoginInput{Email: "root@x.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	f.admins.admins[admin.ID].IsActive = false

	if _, err := f.svc.VerifyAndRefresh(ctx, sess.Token.Value); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

// ----------------------------------------------------------------------------
// Profile
// ----------------------------------------------------------------------------

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.registerCustomer(t, "a@x.com", "secret123", "Ana")
	ctx := context.Background()

	view, err := f.svc.UpdateProfile(ctx, reg.Token.Value, ports.ProfileInput{
		Name: "Ana B", Email: "ANA@x.com", PhoneSet: true, Phone: "123", PreferredCurrency: "EUR",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if view.Name != "Ana B" || view.Email != "ana@x.com" || view.PreferredCurrency != "EUR" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Phone == nil || *view.Phone != "123" {
		t.Fatalf("expected phone 123, got %v", view.Phone)
	}
}

func TestAuthService_UpdateProfile_EmptyPhoneClears(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.registerCustomer(t, "a@x.com", "secret123", "Ana")
	ctx := context.Background()

	if _, err := f.svc.UpdateProfile(ctx, reg.Token.Value, ports.ProfileInput{PhoneSet: true, Phone: "123"}); err != nil {
		t.Fatalf("set phone: %v", err)
	}
	view, err := f.svc.UpdateProfile(ctx, reg.Token.Value, ports.ProfileInput{PhoneSet: true, Phone: ""})
	if err != nil {
		t.Fatalf("clear phone: %v", err)
	}
	if view.Phone != nil {
		t.Fatalf("expected phone cleared, got %v", *view.Phone)
	}
	if f.customers.customers[reg.Customer.ID].Phone != nil {
		t.Fatalf("expected stored phone to be null")
	}
}

func TestAuthService_UpdateProfile_AdminForbidden(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAdmin(t, "root", "root@x.com", "s3cret", true)
	ctx := context.Background()

	sess, err := f.svc.LoginAdmin(ctx, ports.LoginInput{Email: "root@x.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.svc.UpdateProfile(ctx, sess.Token.Value, ports.ProfileInput{Name: "x"}); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAuthService_UpdateProfile_Failures(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.registerCustomer(t, "a@x.com", "secret123", "Ana")
	f.registerCustomer(t, "b@x.com", "secret123", "Bob")
	ctx := context.Background()

	if _, err := f.svc.UpdateProfile(ctx, "", ports.ProfileInput{Name: "x"}); err != domain.ErrMissingToken {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := f.svc.UpdateProfile(ctx, "bad", ports.ProfileInput{Name: "x"}); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := f.svc.UpdateProfile(ctx, reg.Token.Value, ports.ProfileInput{}); err != domain.ErrNoFields {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
	if _, err := f.svc.UpdateProfile(ctx, reg.Token.Value, ports.ProfileInput{Email: "B@x.com"}); err != domain.ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	// Re-submitting one's own email is not a conflict.
	if _, err := f.svc.UpdateProfile(ctx, reg.Token.Value, ports.ProfileInput{Email: "a@x.com"}); err != nil {
		t.Fatalf("own email rejected: %v", err)
	}

	delete(f.customers.customers, reg.Customer.ID)
	if _, err := f.svc.UpdateProfile(ctx, reg.Token.Value, ports.ProfileInput{Name: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ----------------------------------------------------------------------------
// Audit
// ----------------------------------------------------------------------------

func TestAuthService_RecordsAuditTrail(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.registerCustomer(t, "a@x.com", "secret123", "Ana")
	ctx := context.Background()

	_, _ = f.svc.LoginCustomer(ctx, ports.LoginInput{Email: "a@x.com", Password: "bad"})
	_, _ = f.svc.LoginCustomer(ctx, ports.LoginInput{Email: "a@x.com", Password: "secret123"})
	_, _ = f.svc.VerifyAndRefresh(ctx, reg.Token.Value)
	_, _ = f.svc.UpdateProfile(ctx, reg.Token.Value, ports.ProfileInput{Name: "Ana B"})

	want := []domain.AuthEventType{
		domain.EventCustomerRegistered,
		domain.EventCustomerLoginFailed,
		domain.EventCustomerLogin,
		domain.EventSessionRefreshed,
		domain.EventProfileUpdated,
	}
	if got := f.audit.types(); !slices.Equal(got, want) {
		t.Fatalf("expected audit trail %v, got %v", want, got)
	}
}

func TestNewAuthService_Defaults(t *testing.T) {
	svc := NewAuthService(AuthDeps{Log: zerolog.Nop()})
	if svc.customerTTL != DefaultCustomerTTL || svc.adminTTL != DefaultAdminTTL {
		t.Fatalf("unexpected default TTLs %v / %v", svc.customerTTL, svc.adminTTL)
	}
	if svc.throttle == nil || svc.audit == nil {
		t.Fatalf("expected no-op throttle and audit")
	}
}
