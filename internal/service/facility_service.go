package service

import (
	"context"
	"fmt"

	"beachbookings/internal/domain"
	"beachbookings/internal/models"

	"github.com/rs/zerolog"
)

type FacilityService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewFacilityService(repo domain.Repository, logger *zerolog.Logger) *FacilityService {
	return &FacilityService{repo: repo, logger: logger}
}

// Seed stores the facilities from config. An empty list leaves the store untouched.
func (s *FacilityService) Seed(ctx context.Context, facilities []*models.Facility) error {
	if len(facilities) == 0 {
		return nil
	}
	if err := s.repo.SetFacilities(ctx, facilities); err != nil {
		return fmt.Errorf("failed to seed facilities: %w", err)
	}
	s.logger.Info().Int("count", len(facilities)).Msg("facilities seeded")
	return nil
}

func (s *FacilityService) GetFacilities(ctx context.Context) ([]*models.Facility, error) {
	return s.repo.GetFacilities(ctx)
}

func (s *FacilityService) GetFacility(ctx context.Context, id string) (*models.Facility, error) {
	return s.repo.GetFacility(ctx, id)
}
