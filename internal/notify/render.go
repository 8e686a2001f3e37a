package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"beachbookings/internal/models"
)

const (
	dateLayout = "Monday 2 January 2006"
	timeLayout = "15:04"

	defaultActor = "Someone"
)

// Notification is one booking event ready to be delivered.
// Mutated is nil for DELETE. Recipients are email addresses.
type Notification struct {
	Event      EventKind
	Original   *models.Booking
	Mutated    *models.Booking
	ActorName  string
	Recipients []string
}

// Effective is the booking the message describes.
func (n Notification) Effective() *models.Booking {
	if n.Mutated != nil {
		return n.Mutated
	}
	return n.Original
}

// InviteNotification is an association invite to a single address.
type InviteNotification struct {
	InviterName string
	Email       string
	Association *models.Association
}

// Changes flags which scheduling fields differ between two snapshots.
type Changes struct {
	Date     bool
	Time     bool
	Duration bool
}

func (c Changes) Any() bool {
	return c.Date || c.Time || c.Duration
}

// DiffBookings compares the calendar date, the hour and minute, and the duration.
func DiffBookings(original, mutated *models.Booking, loc *time.Location) Changes {
	if original == nil || mutated == nil {
		return Changes{}
	}
	if loc == nil {
		loc = time.UTC
	}
	o := original.Date.In(loc)
	m := mutated.Date.In(loc)

	oy, om, od := o.Date()
	my, mm, md := m.Date()

	return Changes{
		Date:     oy != my || om != mm || od != md,
		Time:     o.Hour() != m.Hour() || o.Minute() != m.Minute(),
		Duration: original.Duration != mutated.Duration,
	}
}

type copyText struct {
	Subject   string
	Title     string
	Ingress   string
	Preheader string
}

// eventCopy returns the wording for an event. %s is the actor name.
func eventCopy(kind EventKind, actor string) copyText {
	switch kind {
	case EventAdd:
		return copyText{
			Subject:   "New booking available",
			Title:     "New booking",
			Ingress:   fmt.Sprintf("%s published a new booking. There might be a spot for you.", actor),
			Preheader: "A new game is open for players",
		}
	case EventModify:
		return copyText{
			Subject:   "Booking updated",
			Title:     "Booking updated",
			Ingress:   fmt.Sprintf("%s changed a booking you are playing in.", actor),
			Preheader: "Check the new details of your game",
		}
	case EventDelete:
		return copyText{
			Subject:   "Booking deleted",
			Title:     "Booking deleted",
			Ingress:   fmt.Sprintf("%s deleted a booking you were playing in.", actor),
			Preheader: "Your game has been removed",
		}
	case EventJoin:
		return copyText{
			Subject:   "New player joined",
			Title:     "New player",
			Ingress:   fmt.Sprintf("%s joined a booking you are playing in.", actor),
			Preheader: "One more player is in",
		}
	case EventLeave:
		return copyText{
			Subject:   "Player left",
			Title:     "Player left",
			Ingress:   fmt.Sprintf("%s left a booking you are playing in.", actor),
			Preheader: "A spot opened up in your game",
		}
	case EventKick:
		return copyText{
			Subject:   "Player removed",
			Title:     "Player removed",
			Ingress:   fmt.Sprintf("%s removed a player from a booking you are playing in.", actor),
			Preheader: "The player list of your game changed",
		}
	default:
		return copyText{
			Subject:   "Booking notification",
			Title:     "Booking notification",
			Ingress:   fmt.Sprintf("%s changed a booking.", actor),
			Preheader: "Something happened to a booking",
		}
	}
}

type field struct {
	Value string
	Old   string
}

type bookingMessage struct {
	copyText
	Date        field
	Time        field
	Duration    field
	Court       string
	ShowPlayers bool
	Players     int
	MaxPlayers  string
	Link        string
}

type inviteMessage struct {
	Title       string
	Preheader   string
	Inviter     string
	Association string
	Description string
	Link        string
}

var templates = template.Must(template.New("booking").Parse(bookingTemplate))

func init() {
	template.Must(templates.New("invite").Parse(inviteTemplate))
}

// Renderer produces deterministic HTML bodies for notifications.
type Renderer struct {
	baseURL string
	loc     *time.Location
}

func NewRenderer(baseURL string, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/"), loc: loc}
}

// Render returns the subject and HTML body for a booking event.
func (r *Renderer) Render(n Notification) (string, string, error) {
	b := n.Effective()
	if b == nil {
		return "", "", fmt.Errorf("notification for %s has no booking", n.Event)
	}

	actor := strings.TrimSpace(n.ActorName)
	if actor == "" {
		actor = defaultActor
	}

	changes := DiffBookings(n.Original, n.Mutated, r.loc)
	start := b.Date.In(r.loc)

	msg := bookingMessage{
		copyText:    eventCopy(n.Event, actor),
		Date:        field{Value: start.Format(dateLayout)},
		Time:        field{Value: start.Format(timeLayout)},
		Duration:    field{Value: formatDuration(b.Duration)},
		Court:       models.StringValue(b.Court),
		ShowPlayers: n.Event != EventDelete,
		Players:     len(b.Players),
		MaxPlayers:  formatMaxPlayers(b.MaxPlayers),
		Link:        r.baseURL + "/",
	}
	if changes.Date {
		msg.Date.Old = n.Original.Date.In(r.loc).Format(dateLayout)
	}
	if changes.Time {
		msg.Time.Old = n.Original.Date.In(r.loc).Format(timeLayout)
	}
	if changes.Duration {
		msg.Duration.Old = formatDuration(n.Original.Duration)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "booking", msg); err != nil {
		return "", "", fmt.Errorf("failed to render %s notification: %w", n.Event, err)
	}
	return msg.Subject, buf.String(), nil
}

// RenderInvite returns the subject and HTML body for an association invite.
func (r *Renderer) RenderInvite(n InviteNotification) (string, string, error) {
	if n.Association == nil {
		return "", "", fmt.Errorf("invite has no association")
	}
	inviter := strings.TrimSpace(n.InviterName)
	if inviter == "" {
		inviter = defaultActor
	}

	msg := inviteMessage{
		Title:       fmt.Sprintf("You are invited to %s", n.Association.Name),
		Preheader:   fmt.Sprintf("%s wants you to join %s", inviter, n.Association.Name),
		Inviter:     inviter,
		Association: n.Association.Name,
		Description: n.Association.Description,
		Link:        r.InviteLink(n.Association.ID),
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "invite", msg); err != nil {
		return "", "", fmt.Errorf("failed to render invite: %w", err)
	}
	return msg.Title, buf.String(), nil
}

// InviteLink is the deep link that accepts an invite to the association.
func (r *Renderer) InviteLink(associationID string) string {
	return fmt.Sprintf("%s/invite/%s", r.baseURL, associationID)
}

func formatDuration(minutes int) string {
	if minutes <= 0 {
		return "open"
	}
	if minutes%60 == 0 {
		h := minutes / 60
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d min", minutes)
}

func formatMaxPlayers(max int) string {
	if max == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", max)
}

const bookingTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family:Arial,sans-serif;background:#f6f1e7;margin:0;padding:24px;">
<span style="display:none;max-height:0;overflow:hidden;">{{.Preheader}}</span>
<table role="presentation" width="100%" style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;padding:24px;">
<tr><td>
<h1 style="color:#1d4e89;margin-top:0;">{{.Title}}</h1>
<p>{{.Ingress}}</p>
<table role="presentation" style="margin:16px 0;">
<tr><td><b>Date</b></td><td>{{if .Date.Old}}<s>{{.Date.Old}}</s> {{end}}{{.Date.Value}}</td></tr>
<tr><td><b>Time</b></td><td>{{if .Time.Old}}<s>{{.Time.Old}}</s> {{end}}{{.Time.Value}}</td></tr>
<tr><td><b>Duration</b></td><td>{{if .Duration.Old}}<s>{{.Duration.Old}}</s> {{end}}{{.Duration.Value}}</td></tr>
{{- if .Court}}
<tr><td><b>Court</b></td><td>{{.Court}}</td></tr>
{{- end}}
{{- if .ShowPlayers}}
<tr><td><b>Players</b></td><td>{{.Players}} / {{.MaxPlayers}}</td></tr>
{{- end}}
</table>
<p><a href="{{.Link}}" style="background:#f2a541;color:#ffffff;padding:10px 18px;border-radius:4px;text-decoration:none;">Open Beach Bookings</a></p>
</td></tr>
</table>
</body>
</html>
`

const inviteTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family:Arial,sans-serif;background:#f6f1e7;margin:0;padding:24px;">
<span style="display:none;max-height:0;overflow:hidden;">{{.Preheader}}</span>
<table role="presentation" width="100%" style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;padding:24px;">
<tr><td>
<h1 style="color:#1d4e89;margin-top:0;">{{.Title}}</h1>
<p>{{.Inviter}} invited you to join <b>{{.Association}}</b> on Beach Bookings.</p>
{{- if .Description}}
<p><i>{{.Description}}</i></p>
{{- end}}
<p><a href="{{.Link}}" style="background:#f2a541;color:#ffffff;padding:10px 18px;border-radius:4px;text-decoration:none;">Accept invite</a></p>
</td></tr>
</table>
</body>
</html>
`
