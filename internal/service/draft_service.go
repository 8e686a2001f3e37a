package service

import (
	"context"
	"fmt"
	"time"

	"beachbookings/internal/domain"
	"beachbookings/internal/models"

	"github.com/rs/zerolog"
)

// DraftService keeps one booking-form draft per user. Stores may return
// expired drafts, so expiry is checked here on every load.
type DraftService struct {
	repo   domain.DraftRepository
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time
}

func NewDraftService(repo domain.DraftRepository, ttl time.Duration, logger *zerolog.Logger) *DraftService {
	if ttl <= 0 {
		ttl = models.DefaultDraftTTL * time.Second
	}
	return &DraftService{repo: repo, ttl: ttl, logger: logger, now: time.Now}
}

func (s *DraftService) Load(ctx context.Context, userID string) (*models.Draft, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	draft, err := s.repo.GetDraft(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if draft == nil {
		return nil, nil
	}

	if draft.Expired(s.now()) {
		if err := s.repo.ClearDraft(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to clear expired draft")
		}
		return nil, nil
	}
	return draft, nil
}

func (s *DraftService) Save(ctx context.Context, userID string, fields map[string]interface{}) (*models.Draft, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if fields == nil {
		fields = make(map[string]interface{})
	}

	now := s.now()
	draft := &models.Draft{
		UserID:    userID,
		Fields:    fields,
		SavedAt:   now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.SetDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

func (s *DraftService) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if err := s.repo.ClearDraft(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}
