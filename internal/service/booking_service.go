package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"beachbookings/internal/database"
	"beachbookings/internal/domain"
	"beachbookings/internal/events"
	"beachbookings/internal/metrics"
	"beachbookings/internal/models"
	"beachbookings/internal/notify"
	"beachbookings/internal/visibility"

	"github.com/rs/zerolog"
)

// Notifier hands rendered notifications to the mail sink without waiting for delivery.
type Notifier interface {
	Dispatch(n notify.Notification)
	DispatchInvite(n notify.InviteNotification)
}

var busEvents = map[notify.EventKind]string{
	notify.EventAdd:    events.EventBookingAdded,
	notify.EventModify: events.EventBookingModified,
	notify.EventDelete: events.EventBookingDeleted,
	notify.EventJoin:   events.EventPlayerJoined,
	notify.EventLeave:  events.EventPlayerLeft,
	notify.EventKick:   events.EventPlayerKicked,
}

type BookingService struct {
	repo         domain.Repository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	notifier     Notifier
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, notifier Notifier, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:         repo,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// ViewerFor builds the visibility viewer for a user. Nil means anonymous.
func ViewerFor(user *models.User) visibility.Viewer {
	if user == nil {
		return visibility.Viewer{}
	}
	return visibility.Viewer{UserID: user.ID, Associations: user.Associations}
}

func (s *BookingService) ListBookings(ctx context.Context, viewer visibility.Viewer, route visibility.Route) ([]*domain.BookingView, error) {
	bookings, err := s.repo.GetBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	now := s.now()
	result := visibility.Visible(bookings, viewer, route, now)

	views := make([]*domain.BookingView, 0, len(result.Bookings))
	for _, b := range result.Bookings {
		views = append(views, &domain.BookingView{
			Booking: b,
			Actions: visibility.ActionsFor(b, viewer, route, visibility.SurfaceCard, now),
			Ongoing: visibility.Ongoing(b, now),
		})
	}
	return views, nil
}

// GetBooking returns one booking with detail-surface actions.
// Bookings the viewer may not see are reported as not found.
func (s *BookingService) GetBooking(ctx context.Context, viewer visibility.Viewer, id string) (*domain.BookingView, error) {
	b, err := s.visibleBooking(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	guests, err := s.repo.GetGuests(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guests: %w", err)
	}

	now := s.now()
	return &domain.BookingView{
		Booking: b,
		Actions: visibility.ActionsFor(b, viewer, routeOf(b, now), visibility.SurfaceDetail, now),
		Ongoing: visibility.Ongoing(b, now),
		Guests:  guests,
	}, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, actor *models.User, in domain.BookingInput) (*models.Booking, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if err := s.validateInput(ctx, actor, in); err != nil {
		return nil, err
	}

	players := uniquePlayers(in.Players)
	if in.MaxPlayers > 0 && len(players) > in.MaxPlayers {
		return nil, invalid("%d players exceed max players %d", len(players), in.MaxPlayers)
	}

	joinable := true
	if in.Joinable != nil {
		joinable = *in.Joinable
	}

	booking := &models.Booking{
		Date:          in.Date,
		Duration:      in.Duration,
		Court:         models.StringPtr(strings.TrimSpace(in.Court)),
		MaxPlayers:    in.MaxPlayers,
		Players:       players,
		UserID:        actor.ID,
		AssociationID: models.StringPtr(in.Association),
		FacilityID:    models.StringPtr(in.Facility),
		Joinable:      joinable,
		Locked:        in.Locked,
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.afterMutation(ctx, notify.EventAdd, nil, booking, actor, "")
	return booking, nil
}

// UpdateBooking edits scheduling and access fields. Players are not touched.
func (s *BookingService) UpdateBooking(ctx context.Context, actor *models.User, id string, in domain.BookingInput) (*models.Booking, error) {
	original, err := s.actionableBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !s.actions(original, actor).Edit {
		return nil, ErrNotAllowed
	}
	if err := s.validateInput(ctx, actor, in); err != nil {
		return nil, err
	}
	if in.MaxPlayers > 0 && len(original.Players) > in.MaxPlayers {
		return nil, invalid("max players %d is below the %d players already in", in.MaxPlayers, len(original.Players))
	}

	mutated := original.Clone()
	mutated.Date = in.Date
	mutated.Duration = in.Duration
	mutated.Court = models.StringPtr(strings.TrimSpace(in.Court))
	mutated.MaxPlayers = in.MaxPlayers
	mutated.AssociationID = models.StringPtr(in.Association)
	mutated.FacilityID = models.StringPtr(in.Facility)
	if in.Joinable != nil {
		mutated.Joinable = *in.Joinable
	}
	mutated.Locked = in.Locked

	if err := s.repo.UpdateBooking(ctx, mutated); err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	s.afterMutation(ctx, notify.EventModify, original, mutated, actor, "")
	return mutated, nil
}

func (s *BookingService) DeleteBooking(ctx context.Context, actor *models.User, id string) error {
	original, err := s.actionableBooking(ctx, actor, id)
	if err != nil {
		return err
	}
	if !s.actions(original, actor).Delete {
		return ErrNotAllowed
	}

	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	s.afterMutation(ctx, notify.EventDelete, original, nil, actor, "")
	return nil
}

// JoinBooking adds the actor to the players. Capacity is checked against the
// snapshot read here, so concurrent joins may overfill a booking.
func (s *BookingService) JoinBooking(ctx context.Context, actor *models.User, id string) (*models.Booking, error) {
	original, err := s.actionableBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !s.actions(original, actor).Join {
		return nil, ErrNotAllowed
	}

	mutated, err := s.repo.AddPlayer(ctx, id, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to join booking: %w", err)
	}

	s.afterMutation(ctx, notify.EventJoin, original, mutated, actor, actor.ID)
	return mutated, nil
}

func (s *BookingService) LeaveBooking(ctx context.Context, actor *models.User, id string) (*models.Booking, error) {
	original, err := s.actionableBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !s.actions(original, actor).Leave {
		return nil, ErrNotAllowed
	}

	mutated, err := s.repo.RemovePlayer(ctx, id, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to leave booking: %w", err)
	}

	s.afterMutation(ctx, notify.EventLeave, original, mutated, actor, actor.ID)
	return mutated, nil
}

// KickPlayer lets the owner remove another player.
func (s *BookingService) KickPlayer(ctx context.Context, actor *models.User, id, playerID string) (*models.Booking, error) {
	original, err := s.actionableBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !original.IsOwner(actor.ID) {
		return nil, ErrNotAllowed
	}
	if !original.HasPlayer(playerID) {
		return nil, invalid("user %s is not a player", playerID)
	}

	mutated, err := s.repo.RemovePlayer(ctx, id, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to kick player: %w", err)
	}

	s.afterMutation(ctx, notify.EventKick, original, mutated, actor, playerID)
	return mutated, nil
}

// AddGuest registers a named guest. Only the owner and players may bring guests.
func (s *BookingService) AddGuest(ctx context.Context, actor *models.User, bookingID, name string) (*models.Guest, error) {
	b, err := s.actionableBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsOwner(actor.ID) && !b.HasPlayer(actor.ID) {
		return nil, ErrNotAllowed
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("guest name is required")
	}

	guest := &models.Guest{Name: name, BookingID: b.ID, InvitedBy: actor.ID}
	if err := s.repo.CreateGuest(ctx, guest); err != nil {
		return nil, fmt.Errorf("failed to add guest: %w", err)
	}
	return guest, nil
}

func (s *BookingService) RemoveGuest(ctx context.Context, actor *models.User, bookingID, guestID string) error {
	b, err := s.actionableBooking(ctx, actor, bookingID)
	if err != nil {
		return err
	}

	guest, err := s.repo.GetGuest(ctx, guestID)
	if err != nil {
		return err
	}
	if guest.BookingID != b.ID {
		return fmt.Errorf("guest %s: %w", guestID, database.ErrNotFound)
	}
	if !b.IsOwner(actor.ID) && guest.InvitedBy != actor.ID {
		return ErrNotAllowed
	}

	if err := s.repo.DeleteGuest(ctx, guestID); err != nil {
		return fmt.Errorf("failed to remove guest: %w", err)
	}
	return nil
}

func (s *BookingService) visibleBooking(ctx context.Context, viewer visibility.Viewer, id string) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibility.CanSeeAt(b, viewer, s.now()) {
		return nil, fmt.Errorf("booking %s: %w", id, database.ErrNotFound)
	}
	return b, nil
}

func (s *BookingService) actionableBooking(ctx context.Context, actor *models.User, id string) (*models.Booking, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return s.visibleBooking(ctx, ViewerFor(actor), id)
}

func (s *BookingService) actions(b *models.Booking, actor *models.User) visibility.Actions {
	now := s.now()
	return visibility.ActionsFor(b, ViewerFor(actor), routeOf(b, now), visibility.SurfaceDetail, now)
}

// routeOf places a single booking on the listing it would appear under.
func routeOf(b *models.Booking, now time.Time) visibility.Route {
	if b.IsHistorical(now) {
		return visibility.RouteHistory
	}
	return visibility.RouteHome
}

func (s *BookingService) validateInput(ctx context.Context, actor *models.User, in domain.BookingInput) error {
	if in.Date.IsZero() {
		return invalid("date is required")
	}
	if in.Duration < 0 {
		return invalid("duration must not be negative")
	}
	if in.MaxPlayers < 0 {
		return invalid("max players must not be negative")
	}

	if in.Association != "" && !actor.InAssociation(in.Association) {
		return ErrNotAllowed
	}

	if in.Facility == "" {
		return nil
	}
	facility, err := s.repo.GetFacility(ctx, in.Facility)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return invalid("unknown facility %q", in.Facility)
		}
		return fmt.Errorf("failed to load facility: %w", err)
	}
	if court := strings.TrimSpace(in.Court); court != "" && !facility.HasCourt(court) {
		return invalid("facility %s has no court %q", facility.Name, court)
	}
	if in.Duration > 0 && !facility.AllowsDuration(strconv.Itoa(in.Duration)) {
		return invalid("facility %s does not offer %d minute slots", facility.Name, in.Duration)
	}
	return nil
}

// afterMutation runs once the store has accepted a change. Nothing here can fail the request.
func (s *BookingService) afterMutation(ctx context.Context, kind notify.EventKind, original, mutated *models.Booking, actor *models.User, target string) {
	effective := mutated
	if effective == nil {
		effective = original
	}

	metrics.IncBookingEvent(kind.String())
	s.publishEvent(kind, effective, actor, target)

	if kind == notify.EventDelete {
		s.enqueueSync(ctx, models.SyncTaskDelete, effective.ID, nil)
	} else {
		s.enqueueSync(ctx, models.SyncTaskUpsert, effective.ID, effective)
	}

	s.notify(ctx, kind, original, mutated, actor)
}

func (s *BookingService) publishEvent(kind notify.EventKind, b *models.Booking, actor *models.User, target string) {
	if s.eventBus == nil {
		return
	}

	eventType := busEvents[kind]
	payload := events.BookingEventPayload{
		BookingID:     b.ID,
		Event:         kind.String(),
		ActorID:       actor.ID,
		ActorName:     actor.DisplayName(),
		OwnerID:       b.UserID,
		Date:          b.Date,
		Duration:      b.Duration,
		Players:       b.Players,
		MaxPlayers:    b.MaxPlayers,
		AssociationID: models.StringValue(b.AssociationID),
		TargetUserID:  target,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, taskType, bookingID string, b *models.Booking) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, bookingID, b); err != nil {
		s.logger.Error().Err(err).Str("booking_id", bookingID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

// notify resolves recipients over the players before and after the change,
// so a kicked player still hears about it.
func (s *BookingService) notify(ctx context.Context, kind notify.EventKind, original, mutated *models.Booking, actor *models.User) {
	if s.notifier == nil {
		return
	}

	users, err := s.repo.GetUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("event", kind.String()).Msg("failed to load users for notification")
		return
	}

	effective := mutated
	if effective == nil {
		effective = original
	}
	if kind == notify.EventAdd && effective.Restricted() {
		users = audienceOf(effective, users)
	}

	var players []string
	if original != nil {
		players = append(players, original.Players...)
	}
	if mutated != nil {
		players = append(players, mutated.Players...)
	}

	ids := notify.ResolveRecipients(kind, notify.ConsentersFromUsers(users), players, actor.ID)

	s.notifier.Dispatch(notify.Notification{
		Event:      kind,
		Original:   original,
		Mutated:    mutated,
		ActorName:  actor.DisplayName(),
		Recipients: emailsOf(users, ids),
	})
}

// audienceOf keeps the users the private-group rule lets see b.
func audienceOf(b *models.Booking, users []*models.User) []*models.User {
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u != nil && visibility.CanSee(b, ViewerFor(u)) {
			out = append(out, u)
		}
	}
	return out
}

func emailsOf(users []*models.User, ids []string) []string {
	byID := make(map[string]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.Email
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if email := byID[id]; email != "" {
			out = append(out, email)
		}
	}
	return out
}

func uniquePlayers(players []string) []string {
	seen := make(map[string]struct{}, len(players))
	out := make([]string, 0, len(players))
	for _, p := range players {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
