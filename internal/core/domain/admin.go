package domain

import "time"

// Administrator is a back-office operator.
type Administrator struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FullName     *string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AdminView struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}

func (a *Administrator) View() *AdminView {
	return &AdminView{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		FullName: a.FullName,
	}
}
