package models

import "time"

type Association struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UserID      string    `json:"user_id"`
	Admins      []string  `json:"admins"`
	Members     []string  `json:"members"`
	Private     bool      `json:"private"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *Association) IsMember(userID string) bool {
	return contains(a.Members, userID)
}

// IsAdmin treats the owner as an admin.
func (a *Association) IsAdmin(userID string) bool {
	return userID != "" && (a.UserID == userID || contains(a.Admins, userID))
}

type Invite struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	AssociationID string    `json:"association_id"`
	InvitedBy     string    `json:"invited_by"`
	CreatedAt     time.Time `json:"created_at"`
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
