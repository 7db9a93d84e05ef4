package domain

import (
	"strings"
	"time"
)

const DefaultCurrency = "TND"

// Customer is an end user of the public site.
type Customer struct {
	ID                string
	Email             string
	PasswordHash      string
	Name              string
	Phone             *string
	PreferredCurrency string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CustomerView is the public projection of a Customer. Phone renders as null when unset.
type CustomerView struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Phone             *string   `json:"phone"`
	PreferredCurrency string    `json:"preferredCurrency"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (c *Customer) View() *CustomerView {
	currency := c.PreferredCurrency
	if currency == "" {
		currency = DefaultCurrency
	}
	var phone *string
	if c.Phone != nil && *c.Phone != "" {
		p := *c.Phone
		phone = &p
	}
	return &CustomerView{
		ID:                c.ID,
		Email:             c.Email,
		Name:              c.Name,
		Phone:             phone,
		PreferredCurrency: currency,
		CreatedAt:         c.CreatedAt,
	}
}

// CustomerChanges is a partial update of a Customer profile. A nil pointer
// leaves the field untouched. When PhoneSet is true Phone is written as-is,
// so a nil Phone clears the stored number.
type CustomerChanges struct {
	Name              *string
	Email             *string
	PhoneSet          bool
	Phone             *string
	PreferredCurrency *string
}

func (c CustomerChanges) Empty() bool {
	return c.Name == nil && c.Email == nil && !c.PhoneSet && c.PreferredCurrency == nil
}

// NormalizeEmail trims and lowercases an address; emails are compared in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
