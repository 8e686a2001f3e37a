package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"beachbookings/internal/domain"
	"beachbookings/internal/events"
	"beachbookings/internal/models"
	"beachbookings/internal/notify"

	"github.com/rs/zerolog"
)

const (
	inviteLimit  = 20
	inviteWindow = time.Hour
)

type AssociationService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	notifier Notifier
	limiter  domain.RateLimiter
	logger   *zerolog.Logger
}

func NewAssociationService(repo domain.Repository, eventBus domain.EventPublisher, notifier Notifier, limiter domain.RateLimiter, logger *zerolog.Logger) *AssociationService {
	return &AssociationService{
		repo:     repo,
		eventBus: eventBus,
		notifier: notifier,
		limiter:  limiter,
		logger:   logger,
	}
}

// ListForUser returns the associations the user belongs to or administers.
func (s *AssociationService) ListForUser(ctx context.Context, user *models.User) ([]*models.Association, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	all, err := s.repo.GetAssociations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list associations: %w", err)
	}

	out := make([]*models.Association, 0)
	for _, a := range all {
		if a.IsMember(user.ID) || a.IsAdmin(user.ID) || user.InAssociation(a.ID) {
			out = append(out, a)
		}
	}
	return out, nil
}

// GetAssociation hides private associations from non-members who hold no invite.
func (s *AssociationService) GetAssociation(ctx context.Context, user *models.User, id string) (*models.Association, error) {
	a, err := s.repo.GetAssociation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Private {
		return a, nil
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if a.IsMember(user.ID) || a.IsAdmin(user.ID) {
		return a, nil
	}

	invited, err := s.hasInvite(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if !invited {
		return nil, ErrNotAllowed
	}
	return a, nil
}

// CreateAssociation makes the creator owner, admin and member.
func (s *AssociationService) CreateAssociation(ctx context.Context, user *models.User, name, description string, private bool) (*models.Association, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if len([]rune(name)) < models.MinNameLength {
		return nil, invalid("association name must be at least %d characters", models.MinNameLength)
	}

	a := &models.Association{
		Name:        name,
		Description: strings.TrimSpace(description),
		UserID:      user.ID,
		Admins:      []string{user.ID},
		Members:     []string{user.ID},
		Private:     private,
	}
	if err := s.repo.CreateAssociation(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create association: %w", err)
	}

	if err := s.addToUser(ctx, user, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// Invite stores a pending invite and mails the invitee. Admins only.
func (s *AssociationService) Invite(ctx context.Context, user *models.User, associationID, email string) (*models.Invite, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	a, err := s.repo.GetAssociation(ctx, associationID)
	if err != nil {
		return nil, err
	}
	if !a.IsAdmin(user.ID) {
		return nil, ErrNotAllowed
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, invalid("bad email %q", email)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.CheckRateLimit(ctx, "invite:"+user.ID, inviteLimit, inviteWindow)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("invite rate limit check failed")
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	if existing, err := s.repo.GetUserByEmail(ctx, addr.Address); err == nil && a.IsMember(existing.ID) {
		return nil, invalid("%s is already a member", addr.Address)
	}

	invite := &models.Invite{
		Email:         addr.Address,
		AssociationID: a.ID,
		InvitedBy:     user.ID,
	}
	if err := s.repo.CreateInvite(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	if s.eventBus != nil {
		payload := events.InviteEventPayload{AssociationID: a.ID, Email: invite.Email, InvitedBy: user.ID}
		if err := s.eventBus.PublishJSON(events.EventInviteSent, payload); err != nil {
			s.logger.Error().Err(err).Str("association_id", a.ID).Msg("publish event error")
		}
	}

	if s.notifier != nil {
		s.notifier.DispatchInvite(notify.InviteNotification{
			InviterName: user.DisplayName(),
			Email:       invite.Email,
			Association: a,
		})
	}
	return invite, nil
}

// AcceptInvite consumes the pending invite addressed to the user's email.
func (s *AssociationService) AcceptInvite(ctx context.Context, user *models.User, associationID string) (*models.Association, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	invites, err := s.repo.GetInvitesByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load invites: %w", err)
	}
	var invite *models.Invite
	for _, inv := range invites {
		if inv.AssociationID == associationID {
			invite = inv
			break
		}
	}
	if invite == nil {
		return nil, ErrNotAllowed
	}

	a, err := s.repo.GetAssociation(ctx, associationID)
	if err != nil {
		return nil, err
	}
	if !a.IsMember(user.ID) {
		a.Members = append(a.Members, user.ID)
		if err := s.repo.UpdateAssociation(ctx, a); err != nil {
			return nil, fmt.Errorf("failed to add member: %w", err)
		}
	}

	if err := s.addToUser(ctx, user, a.ID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteInvite(ctx, invite.ID); err != nil {
		s.logger.Warn().Err(err).Str("invite_id", invite.ID).Msg("failed to delete accepted invite")
	}

	if s.eventBus != nil {
		payload := events.InviteEventPayload{AssociationID: a.ID, Email: invite.Email, InvitedBy: invite.InvitedBy}
		if err := s.eventBus.PublishJSON(events.EventInviteAccepted, payload); err != nil {
			s.logger.Error().Err(err).Str("association_id", a.ID).Msg("publish event error")
		}
	}
	return a, nil
}

// Leave removes the user from members and admins. The owner cannot leave.
func (s *AssociationService) Leave(ctx context.Context, user *models.User, associationID string) error {
	if user == nil {
		return ErrUnauthenticated
	}

	a, err := s.repo.GetAssociation(ctx, associationID)
	if err != nil {
		return err
	}
	if a.UserID == user.ID {
		return ErrNotAllowed
	}
	if !a.IsMember(user.ID) && !a.IsAdmin(user.ID) && !user.InAssociation(a.ID) {
		return ErrNotAllowed
	}

	a.Members = without(a.Members, user.ID)
	a.Admins = without(a.Admins, user.ID)
	if err := s.repo.UpdateAssociation(ctx, a); err != nil {
		return fmt.Errorf("failed to update association: %w", err)
	}

	user.Associations = without(user.Associations, a.ID)
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *AssociationService) hasInvite(ctx context.Context, user *models.User, associationID string) (bool, error) {
	invites, err := s.repo.GetInvitesByEmail(ctx, user.Email)
	if err != nil {
		return false, fmt.Errorf("failed to load invites: %w", err)
	}
	for _, inv := range invites {
		if inv.AssociationID == associationID {
			return true, nil
		}
	}
	return false, nil
}

func (s *AssociationService) addToUser(ctx context.Context, user *models.User, associationID string) error {
	if user.InAssociation(associationID) {
		return nil
	}
	user.Associations = append(user.Associations, associationID)
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
