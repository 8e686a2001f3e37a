package models

import "time"

type Booking struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	Duration      int       `json:"duration"` // minutes, 0 = open end
	Court         *string   `json:"court,omitempty"`
	MaxPlayers    int       `json:"max_players"` // 0 = unlimited
	Players       []string  `json:"players"`
	UserID        string    `json:"user_id"`
	AssociationID *string   `json:"association_id,omitempty"`
	FacilityID    *string   `json:"facility_id,omitempty"`
	Joinable      bool      `json:"joinable"`
	Locked        bool      `json:"locked"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EndsAt returns the end instant. A booking without duration ends when it starts.
func (b *Booking) EndsAt() time.Time {
	return b.Date.Add(time.Duration(b.Duration) * time.Minute)
}

func (b *Booking) IsHistorical(now time.Time) bool {
	return b.EndsAt().Before(now)
}

func (b *Booking) HasPlayer(userID string) bool {
	if userID == "" {
		return false
	}
	for _, p := range b.Players {
		if p == userID {
			return true
		}
	}
	return false
}

func (b *Booking) IsOwner(userID string) bool {
	return userID != "" && b.UserID == userID
}

// IsFull reports whether capacity is reached. MaxPlayers 0 is never full.
func (b *Booking) IsFull() bool {
	return b.MaxPlayers > 0 && len(b.Players) >= b.MaxPlayers
}

// SelfJoinOpen reports whether non-owners may add themselves.
func (b *Booking) SelfJoinOpen() bool {
	return b.Joinable && !b.Locked
}

// Restricted reports whether the booking is limited to an association.
func (b *Booking) Restricted() bool {
	return b.AssociationID != nil && *b.AssociationID != ""
}

// Clone returns a deep copy so snapshots survive later mutation.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.Players = append([]string(nil), b.Players...)
	c.Court = cloneString(b.Court)
	c.AssociationID = cloneString(b.AssociationID)
	c.FacilityID = cloneString(b.FacilityID)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type Guest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BookingID string    `json:"booking_id"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
}
