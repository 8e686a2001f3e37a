package domain

import (
	"context"
	"time"

	"beachbookings/internal/models"
	"beachbookings/internal/visibility"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Repository interface {
	Ping(ctx context.Context) error

	GetBookings(ctx context.Context) ([]*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	UpdateBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id string) error
	AddPlayer(ctx context.Context, bookingID, userID string) (*models.Booking, error)
	RemovePlayer(ctx context.Context, bookingID, userID string) (*models.Booking, error)

	GetUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error

	GetAssociations(ctx context.Context) ([]*models.Association, error)
	GetAssociation(ctx context.Context, id string) (*models.Association, error)
	CreateAssociation(ctx context.Context, association *models.Association) error
	UpdateAssociation(ctx context.Context, association *models.Association) error
	DeleteAssociation(ctx context.Context, id string) error

	GetGuests(ctx context.Context, bookingID string) ([]*models.Guest, error)
	GetGuest(ctx context.Context, id string) (*models.Guest, error)
	CreateGuest(ctx context.Context, guest *models.Guest) error
	DeleteGuest(ctx context.Context, id string) error

	CreateInvite(ctx context.Context, invite *models.Invite) error
	GetInvitesByEmail(ctx context.Context, email string) ([]*models.Invite, error)
	DeleteInvite(ctx context.Context, id string) error

	GetFacilities(ctx context.Context) ([]*models.Facility, error)
	GetFacility(ctx context.Context, id string) (*models.Facility, error)
	SetFacilities(ctx context.Context, facilities []*models.Facility) error
}

// RateLimiter counts hits per key inside a fixed window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type DraftRepository interface {
	RateLimiter
	GetDraft(ctx context.Context, userID string) (*models.Draft, error)
	SetDraft(ctx context.Context, draft *models.Draft) error
	ClearDraft(ctx context.Context, userID string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Mailer delivers one HTML message to a set of addresses.
type Mailer interface {
	Send(ctx context.Context, recipients []string, subject, html string) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	DeleteBookingRow(ctx context.Context, bookingID string) error
	ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID string, booking *models.Booking) error
	EnqueueFullSync(ctx context.Context) error
}

type BookingInput struct {
	Date        time.Time `json:"date"`
	Duration    int       `json:"duration"`
	Court       string    `json:"court"`
	MaxPlayers  int       `json:"max_players"`
	Players     []string  `json:"players"`
	Facility    string    `json:"facility_id"`
	Association string    `json:"association_id"`
	Joinable    *bool     `json:"joinable"`
	Locked      bool      `json:"locked"`
}

// BookingView is a booking together with what the viewer may do with it.
type BookingView struct {
	*models.Booking
	Actions visibility.Actions `json:"actions"`
	Ongoing bool               `json:"ongoing"`
	Guests  []*models.Guest    `json:"guests,omitempty"`
}

type BookingService interface {
	ListBookings(ctx context.Context, viewer visibility.Viewer, route visibility.Route) ([]*BookingView, error)
	GetBooking(ctx context.Context, viewer visibility.Viewer, id string) (*BookingView, error)
	CreateBooking(ctx context.Context, actor *models.User, in BookingInput) (*models.Booking, error)
	UpdateBooking(ctx context.Context, actor *models.User, id string, in BookingInput) (*models.Booking, error)
	DeleteBooking(ctx context.Context, actor *models.User, id string) error
	JoinBooking(ctx context.Context, actor *models.User, id string) (*models.Booking, error)
	LeaveBooking(ctx context.Context, actor *models.User, id string) (*models.Booking, error)
	KickPlayer(ctx context.Context, actor *models.User, id, playerID string) (*models.Booking, error)
	AddGuest(ctx context.Context, actor *models.User, bookingID, name string) (*models.Guest, error)
	RemoveGuest(ctx context.Context, actor *models.User, bookingID, guestID string) error
}

type UserService interface {
	Resolve(ctx context.Context, identity *models.Identity) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, name, phone *string) (*models.User, error)
	UpdateConsents(ctx context.Context, userID string, consents []string) (*models.User, error)
	DisplayNames(ctx context.Context) (map[string]string, error)
}

type AssociationService interface {
	ListForUser(ctx context.Context, user *models.User) ([]*models.Association, error)
	GetAssociation(ctx context.Context, user *models.User, id string) (*models.Association, error)
	CreateAssociation(ctx context.Context, user *models.User, name, description string, private bool) (*models.Association, error)
	Invite(ctx context.Context, user *models.User, associationID, email string) (*models.Invite, error)
	AcceptInvite(ctx context.Context, user *models.User, associationID string) (*models.Association, error)
	Leave(ctx context.Context, user *models.User, associationID string) error
}

type FacilityService interface {
	GetFacilities(ctx context.Context) ([]*models.Facility, error)
	GetFacility(ctx context.Context, id string) (*models.Facility, error)
}

type DraftService interface {
	Load(ctx context.Context, userID string) (*models.Draft, error)
	Save(ctx context.Context, userID string, fields map[string]interface{}) (*models.Draft, error)
	Clear(ctx context.Context, userID string) error
}
