package ports

import (
	"context"
	"time"

	"github.com/silianos/voyage-api/internal/core/domain"
)

// CustomerRepository persists Customers. Emails are passed already normalised.
//
// Create and Update report a unique-index violation on email as
// domain.ErrDuplicateEmail; lookups report a missing record as domain.ErrNotFound.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (*domain.Customer, error)
	FindByID(ctx context.Context, id string) (*domain.Customer, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Update(ctx context.Context, id string, changes domain.CustomerChanges) (*domain.Customer, error)
}

// AdminRepository persists Administrators. Inactive administrators are
// invisible to the FindActive lookups.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Administrator) (*domain.Administrator, error)
	FindActiveByEmail(ctx context.Context, email string) (*domain.Administrator, error)
	FindActiveByID(ctx context.Context, id string) (*domain.Administrator, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
