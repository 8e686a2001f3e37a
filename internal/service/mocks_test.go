package service

import (
	"context"
	"time"

	"beachbookings/internal/models"
	"beachbookings/internal/notify"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRepo) GetBookings(ctx context.Context) ([]*models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) UpdateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) DeleteBooking(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) AddPlayer(ctx context.Context, bookingID, userID string) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) RemovePlayer(ctx context.Context, bookingID, userID string) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) GetUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *mockRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepo) CreateOrUpdateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) UpdateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) GetAssociations(ctx context.Context) ([]*models.Association, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Association), args.Error(1)
}

func (m *mockRepo) GetAssociation(ctx context.Context, id string) (*models.Association, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Association), args.Error(1)
}

func (m *mockRepo) CreateAssociation(ctx context.Context, a *models.Association) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepo) UpdateAssociation(ctx context.Context, a *models.Association) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepo) DeleteAssociation(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) GetGuests(ctx context.Context, bookingID string) ([]*models.Guest, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Guest), args.Error(1)
}

func (m *mockRepo) GetGuest(ctx context.Context, id string) (*models.Guest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Guest), args.Error(1)
}

func (m *mockRepo) CreateGuest(ctx context.Context, g *models.Guest) error {
	return m.Called(ctx, g).Error(0)
}

func (m *mockRepo) DeleteGuest(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) CreateInvite(ctx context.Context, inv *models.Invite) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockRepo) GetInvitesByEmail(ctx context.Context, email string) ([]*models.Invite, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Invite), args.Error(1)
}

func (m *mockRepo) DeleteInvite(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) GetFacilities(ctx context.Context) ([]*models.Facility, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Facility), args.Error(1)
}

func (m *mockRepo) GetFacility(ctx context.Context, id string) (*models.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Facility), args.Error(1)
}

func (m *mockRepo) SetFacilities(ctx context.Context, f []*models.Facility) error {
	return m.Called(ctx, f).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType, bookingID string, b *models.Booking) error {
	return m.Called(ctx, taskType, bookingID, b).Error(0)
}

func (m *mockSyncWorker) EnqueueFullSync(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Dispatch(n notify.Notification) {
	m.Called(n)
}

func (m *mockNotifier) DispatchInvite(n notify.InviteNotification) {
	m.Called(n)
}

type mockDraftRepo struct {
	mock.Mock
}

func (m *mockDraftRepo) GetDraft(ctx context.Context, userID string) (*models.Draft, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Draft), args.Error(1)
}

func (m *mockDraftRepo) SetDraft(ctx context.Context, d *models.Draft) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockDraftRepo) ClearDraft(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockDraftRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
