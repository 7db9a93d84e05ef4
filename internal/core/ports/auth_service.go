package ports

import (
	"context"

	"github.com/silianos/voyage-api/internal/core/domain"
)

type LoginInput struct {
	Email    string
	Password string
}

type RegisterCustomerInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

type RegisterAdminInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// ProfileInput mirrors what a customer may send. Empty strings mean "not
// provided" except for Phone, which is governed by PhoneSet.
type ProfileInput struct {
	Name              string
	Email             string
	PhoneSet          bool
	Phone             string
	PreferredCurrency string
}

type CustomerSession struct {
	Token    domain.IssuedToken
	Customer *domain.CustomerView
}

type AdminSession struct {
	Token domain.IssuedToken
	Admin *domain.AdminView
}

// RefreshResult carries exactly one of Customer or Admin, selected by Kind.
type RefreshResult struct {
	Token    domain.IssuedToken
	Kind     domain.PrincipalKind
	Customer *domain.CustomerView
	Admin    *domain.AdminView
}

type AuthService interface {
	LoginCustomer(ctx context.Context, in LoginInput) (*CustomerSession, error)
	RegisterCustomer(ctx context.Context, in RegisterCustomerInput) (*CustomerSession, error)
	LoginAdmin(ctx context.Context, in LoginInput) (*AdminSession, error)
	RegisterAdmin(ctx context.Context, in RegisterAdminInput) (string, error)
	VerifyAndRefresh(ctx context.Context, token string) (*RefreshResult, error)
	UpdateProfile(ctx context.Context, token string, in ProfileInput) (*domain.CustomerView, error)
}
