// Package visibility decides which bookings a viewer sees and what they may do with them.
package visibility

import (
	"sort"
	"time"

	"beachbookings/internal/models"
)

const (
	LabelJoin   = "Join"
	LabelFull   = "Full"
	LabelLocked = "Locked"
)

// Viewer is the caller looking at a listing. Empty UserID means anonymous.
type Viewer struct {
	UserID       string
	Associations []string
}

func (v Viewer) Authenticated() bool {
	return v.UserID != ""
}

func (v Viewer) inAssociation(id string) bool {
	for _, a := range v.Associations {
		if a == id {
			return true
		}
	}
	return false
}

// Result is the ordered outcome of a listing. An empty result is not an error.
type Result struct {
	Route    Route
	Bookings []*models.Booking
}

func (r Result) Empty() bool {
	return len(r.Bookings) == 0
}

// Actions is the set of mutations offered for one booking.
type Actions struct {
	Join      bool   `json:"join"`
	Leave     bool   `json:"leave"`
	Edit      bool   `json:"edit"`
	Delete    bool   `json:"delete"`
	JoinLabel string `json:"join_label"`
}

// CanSee reports whether the private-group rule lets the viewer see b at all.
func CanSee(b *models.Booking, viewer Viewer) bool {
	if !b.Restricted() {
		return true
	}
	if !viewer.Authenticated() {
		return false
	}
	return viewer.inAssociation(*b.AssociationID) || b.HasPlayer(viewer.UserID)
}

// CanSeeAt applies the rules a single-booking read shares with the listing:
// anonymous viewers only get public bookings that have not ended yet.
func CanSeeAt(b *models.Booking, viewer Viewer, now time.Time) bool {
	if !viewer.Authenticated() {
		return !b.Restricted() && !b.IsHistorical(now)
	}
	return CanSee(b, viewer)
}

// Visible filters and orders bookings for the route. The input slice is left untouched.
func Visible(bookings []*models.Booking, viewer Viewer, route Route, now time.Time) Result {
	out := make([]*models.Booking, 0, len(bookings))

	for _, b := range bookings {
		if b == nil {
			continue
		}
		if !CanSeeAt(b, viewer, now) {
			continue
		}
		if !viewer.Authenticated() {
			out = append(out, b)
			continue
		}

		historical := b.IsHistorical(now)
		if route == RouteHistory {
			if !historical {
				continue
			}
		} else if historical {
			continue
		}

		switch route {
		case RouteJoined:
			if !b.HasPlayer(viewer.UserID) {
				continue
			}
		case RouteCreated:
			if !b.IsOwner(viewer.UserID) {
				continue
			}
		}

		out = append(out, b)
	}

	descending := viewer.Authenticated() && route == RouteHistory
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})

	return Result{Route: route, Bookings: out}
}

// Ongoing reports whether now falls inside [Date, EndsAt).
func Ongoing(b *models.Booking, now time.Time) bool {
	return !now.Before(b.Date) && now.Before(b.EndsAt())
}

// ActionsFor evaluates action eligibility for one booking.
func ActionsFor(b *models.Booking, viewer Viewer, route Route, surface Surface, now time.Time) Actions {
	a := Actions{JoinLabel: JoinLabel(b, viewer)}
	if !viewer.Authenticated() {
		return a
	}

	owner := b.IsOwner(viewer.UserID)
	player := b.HasPlayer(viewer.UserID)
	ongoing := Ongoing(b, now)

	a.Join = !player && !ongoing && !b.IsFull() && (b.SelfJoinOpen() || owner)
	a.Leave = player && !ongoing
	a.Edit = owner && !(surface == SurfaceCard && route == RouteHome)
	a.Delete = owner && route != RouteHistory

	return a
}

// JoinLabel is the tri-state caption of the join button.
func JoinLabel(b *models.Booking, viewer Viewer) string {
	if b.IsFull() {
		return LabelFull
	}
	if !b.SelfJoinOpen() && !b.IsOwner(viewer.UserID) {
		return LabelLocked
	}
	return LabelJoin
}
