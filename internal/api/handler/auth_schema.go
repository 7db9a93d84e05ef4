package handler

import (
	"bytes"
	"encoding/json"

	"github.com/silianos/voyage-api/internal/core/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerCustomerRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password"`
	Name     string `json:"name" validate:"max=120"`
	Phone    string `json:"phone" validate:"max=40"`
}

type registerAdminRequest struct {
	Username string `json:"username" validate:"max=60"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password"`
	FullName string `json:"full_name" validate:"max=120"`
}

// profileRequest accepts the currency under both spellings; preferred_currency wins.
type profileRequest struct {
	Name                   string         `json:"name" validate:"max=120"`
	Email                  string         `json:"email" validate:"omitempty,email"`
	Phone                  optionalString `json:"phone" swaggertype:"string"`
	PreferredCurrencySnake string         `json:"preferred_currency"`
	PreferredCurrencyCamel string         `json:"preferredCurrency"`
}

func (r profileRequest) currency() string {
	if r.PreferredCurrencySnake != "" {
		return r.PreferredCurrencySnake
	}
	return r.PreferredCurrencyCamel
}

// optionalString tells an omitted key apart from one that is present. Any
// falsy JSON value (null, false, 0, "") clears the field; numbers and true are
// kept in their JSON text form.
type optionalString struct {
	Set   bool
	Value string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = ""

	raw := bytes.TrimSpace(b)
	switch {
	case len(raw) == 0:
		return nil
	case raw[0] == '"':
		return json.Unmarshal(raw, &o.Value)
	case bytes.Equal(raw, []byte("null")), bytes.Equal(raw, []byte("false")):
		return nil
	case bytes.Equal(raw, []byte("true")):
		o.Value = "true"
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	if f, err := n.Float64(); err == nil && f == 0 {
		return nil
	}
	o.Value = n.String()
	return nil
}

type customerAuthResponse struct {
	Token string               `json:"token"`
	User  *domain.CustomerView `json:"user"`
}

type adminAuthResponse struct {
	Token string            `json:"token"`
	User  *domain.AdminView `json:"user"`
}

type verifyResponse struct {
	Token string `json:"token"`
	// User is a customer or administrator view depending on Type.
	User any                  `json:"user"`
	Type domain.PrincipalKind `json:"type"`
}

type profileResponse struct {
	User *domain.CustomerView `json:"user"`
}

type createdResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}
