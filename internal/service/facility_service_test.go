package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"beachbookings/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestFacilityService_Seed(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("empty list is a no-op", func(t *testing.T) {
		repo := new(mockRepo)
		s := NewFacilityService(repo, &logger)

		assert.NoError(t, s.Seed(ctx, nil))
		repo.AssertNotCalled(t, "SetFacilities", mock.Anything, mock.Anything)
	})

	t.Run("stores facilities", func(t *testing.T) {
		repo := new(mockRepo)
		s := NewFacilityService(repo, &logger)
		facilities := []*models.Facility{{ID: "north", Name: "North Beach"}}
		repo.On("SetFacilities", ctx, facilities).Return(nil)

		assert.NoError(t, s.Seed(ctx, facilities))
		repo.AssertExpectations(t)
	})

	t.Run("store error is wrapped", func(t *testing.T) {
		repo := new(mockRepo)
		s := NewFacilityService(repo, &logger)
		facilities := []*models.Facility{{ID: "north", Name: "North Beach"}}
		storeErr := errors.New("disk full")
		repo.On("SetFacilities", ctx, facilities).Return(storeErr)

		err := s.Seed(ctx, facilities)
		assert.ErrorIs(t, err, storeErr)
		assert.Contains(t, err.Error(), "failed to seed facilities")
	})
}

func TestFacilityService_Get(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	repo := new(mockRepo)
	s := NewFacilityService(repo, &logger)

	north := &models.Facility{ID: "north", Name: "North Beach"}
	repo.On("GetFacilities", ctx).Return([]*models.Facility{north}, nil)
	repo.On("GetFacility", ctx, "north").Return(north, nil)

	all, err := s.GetFacilities(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 1)

	f, err := s.GetFacility(ctx, "north")
	assert.NoError(t, err)
	assert.Equal(t, "North Beach", f.Name)
}
