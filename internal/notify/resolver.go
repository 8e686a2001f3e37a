package notify

import "beachbookings/internal/models"

// Consenter is the part of a user the resolver looks at.
type Consenter struct {
	ID            string
	EmailConsents []string
}

func (c Consenter) consents(kind EventKind) bool {
	for _, k := range c.EmailConsents {
		if k == string(kind) {
			return true
		}
	}
	return false
}

func ConsentersFromUsers(users []*models.User) []Consenter {
	out := make([]Consenter, 0, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		out = append(out, Consenter{ID: u.ID, EmailConsents: u.EmailConsents})
	}
	return out
}

// ResolveRecipients returns the ids of users to notify, in input order.
// ADD goes to every consenting user; other kinds only to consenting players.
// The acting user is never included.
func ResolveRecipients(event EventKind, users []Consenter, playersInBooking []string, actingUserID string) []string {
	players := make(map[string]struct{}, len(playersInBooking))
	for _, p := range playersInBooking {
		players[p] = struct{}{}
	}

	out := make([]string, 0)
	for _, u := range users {
		if u.ID == actingUserID {
			continue
		}
		if event != EventAdd {
			if _, ok := players[u.ID]; !ok {
				continue
			}
		}
		if !u.consents(event) {
			continue
		}
		out = append(out, u.ID)
	}
	return out
}
