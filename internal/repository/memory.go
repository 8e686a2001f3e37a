package repository

import (
	"context"
	"sync"
	"time"

	"beachbookings/internal/models"
)

// MemoryDraftRepository keeps drafts in process memory. Expiry is left to the caller.
type MemoryDraftRepository struct {
	drafts sync.Map

	mu         sync.Mutex
	rateLimits map[string]*rateLimitEntry
}

func NewMemoryDraftRepository() *MemoryDraftRepository {
	return &MemoryDraftRepository{rateLimits: make(map[string]*rateLimitEntry)}
}

func (r *MemoryDraftRepository) GetDraft(_ context.Context, userID string) (*models.Draft, error) {
	val, ok := r.drafts.Load(userID)
	if !ok {
		return nil, nil
	}
	return copyDraft(val.(*models.Draft)), nil
}

func (r *MemoryDraftRepository) SetDraft(_ context.Context, draft *models.Draft) error {
	r.drafts.Store(draft.UserID, copyDraft(draft))
	return nil
}

func (r *MemoryDraftRepository) ClearDraft(_ context.Context, userID string) error {
	r.drafts.Delete(userID)
	return nil
}

func copyDraft(d *models.Draft) *models.Draft {
	c := *d
	c.Fields = make(map[string]interface{}, len(d.Fields))
	for k, v := range d.Fields {
		c.Fields[k] = v
	}
	return &c
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryDraftRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}
