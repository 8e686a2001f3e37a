package repository

import (
	"context"
	"sync/atomic"
	"time"

	"beachbookings/internal/domain"
	"beachbookings/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverDraftRepository uses primary until it fails, then serves from fallback
// and probes primary again once per recoveryInterval.
type FailoverDraftRepository struct {
	primary   domain.DraftRepository
	fallback  domain.DraftRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverDraftRepository(primary, fallback domain.DraftRepository, logger *zerolog.Logger) *FailoverDraftRepository {
	return &FailoverDraftRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverDraftRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverDraftRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary draft repository failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverDraftRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary draft repository recovered")
	}
}

func (r *FailoverDraftRepository) GetDraft(ctx context.Context, userID string) (*models.Draft, error) {
	if r.usePrimary() {
		draft, err := r.primary.GetDraft(ctx, userID)
		if err == nil {
			r.markUp()
			return draft, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetDraft(ctx, userID)
}

func (r *FailoverDraftRepository) SetDraft(ctx context.Context, draft *models.Draft) error {
	if r.usePrimary() {
		err := r.primary.SetDraft(ctx, draft)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetDraft(ctx, draft)
}

func (r *FailoverDraftRepository) ClearDraft(ctx context.Context, userID string) error {
	// fallback may hold a copy written while primary was down
	_ = r.fallback.ClearDraft(ctx, userID)

	if r.usePrimary() {
		err := r.primary.ClearDraft(ctx, userID)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return nil
}

func (r *FailoverDraftRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
