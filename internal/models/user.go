package models

import (
	"strings"
	"time"
)

const MinNameLength = 3

type User struct {
	ID            string    `json:"id"`
	Name          *string   `json:"name,omitempty"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone,omitempty"`
	Associations  []string  `json:"associations"`
	EmailConsents []string  `json:"email_consents"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasName reports whether the user picked a name long enough to be shown.
func (u *User) HasName() bool {
	return u.Name != nil && len([]rune(strings.TrimSpace(*u.Name))) >= MinNameLength
}

// DisplayName falls back to the local part of the email.
func (u *User) DisplayName() string {
	if u.HasName() {
		return strings.TrimSpace(*u.Name)
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

func (u *User) HasConsent(kind string) bool {
	for _, c := range u.EmailConsents {
		if c == kind {
			return true
		}
	}
	return false
}

func (u *User) InAssociation(id string) bool {
	for _, a := range u.Associations {
		if a == id {
			return true
		}
	}
	return false
}

// Identity is what the auth provider knows about the caller.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}
