package service

import (
	"context"
	"fmt"
	"strings"

	"beachbookings/internal/domain"
	"beachbookings/internal/models"
	"beachbookings/internal/notify"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// Resolve upserts the user behind an authenticated identity and returns the stored record.
func (s *UserService) Resolve(ctx context.Context, identity *models.Identity) (*models.User, error) {
	if identity == nil || strings.TrimSpace(identity.UserID) == "" {
		return nil, ErrUnauthenticated
	}

	user := &models.User{
		ID:    identity.UserID,
		Email: strings.TrimSpace(identity.Email),
	}
	if name := strings.TrimSpace(identity.Name); len([]rune(name)) >= models.MinNameLength {
		user.Name = &name
	}

	if err := s.repo.CreateOrUpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return s.repo.GetUser(ctx, identity.UserID)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdateProfile changes the fields that are not nil. An empty string clears the field.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, name, phone *string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		switch {
		case trimmed == "":
			user.Name = nil
		case len([]rune(trimmed)) < models.MinNameLength:
			return nil, invalid("name must be at least %d characters", models.MinNameLength)
		default:
			user.Name = &trimmed
		}
	}
	if phone != nil {
		user.Phone = models.StringPtr(strings.TrimSpace(*phone))
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// UpdateConsents replaces the email consent list.
func (s *UserService) UpdateConsents(ctx context.Context, userID string, consents []string) (*models.User, error) {
	normalized, err := notify.NormalizeConsents(consents)
	if err != nil {
		return nil, invalid("%v", err)
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.EmailConsents = normalized

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update consents: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Strs("consents", normalized).Msg("email consents updated")
	return user, nil
}

// DisplayNames maps every known user id to the name shown in listings and exports.
func (s *UserService) DisplayNames(ctx context.Context) (map[string]string, error) {
	users, err := s.repo.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}
