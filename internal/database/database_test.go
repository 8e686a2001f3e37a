package database

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"beachbookings/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	return db
}

func newBooking(owner string, start time.Time) *models.Booking {
	return &models.Booking{
		Date:       start,
		Duration:   90,
		Court:      models.StringPtr("A"),
		MaxPlayers: 4,
		Players:    []string{owner},
		UserID:     owner,
		Joinable:   true,
	}
}

func TestNewDB_FileCreatesDirectory(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "nested", "beach.db")
	db, err := NewDB(path, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping(context.Background()))
}

func TestBookingsCRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	start := time.Date(2025, 8, 1, 17, 0, 0, 0, time.UTC)
	b := newBooking("owner", start)
	b.AssociationID = models.StringPtr("g1")

	require.NoError(t, db.CreateBooking(ctx, b))
	require.NotEmpty(t, b.ID)
	assert.False(t, b.CreatedAt.IsZero())

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(start))
	assert.Equal(t, 90, got.Duration)
	assert.Equal(t, "A", models.StringValue(got.Court))
	assert.Equal(t, "g1", models.StringValue(got.AssociationID))
	assert.Nil(t, got.FacilityID)
	assert.Equal(t, []string{"owner"}, got.Players)
	assert.True(t, got.Joinable)
	assert.False(t, got.Locked)

	got.Duration = 120
	got.Court = nil
	got.Joinable = false
	got.Date = start.Add(time.Hour)
	require.NoError(t, db.UpdateBooking(ctx, got))

	updated, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, updated.Duration)
	assert.Nil(t, updated.Court)
	assert.False(t, updated.Joinable)
	assert.True(t, updated.Date.Equal(start.Add(time.Hour)))

	other := newBooking("other", start.Add(-24*time.Hour))
	require.NoError(t, db.CreateBooking(ctx, other))

	all, err := db.GetBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, other.ID, all[0].ID)

	require.NoError(t, db.DeleteBooking(ctx, b.ID))
	_, err = db.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.DeleteBooking(ctx, b.ID), ErrNotFound)
	assert.ErrorIs(t, db.UpdateBooking(ctx, &models.Booking{ID: "missing"}), ErrNotFound)
}

func TestGetBookings_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	all, err := db.GetBookings(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestPlayers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	b := newBooking("owner", time.Now().Add(time.Hour))
	require.NoError(t, db.CreateBooking(ctx, b))

	got, err := db.AddPlayer(ctx, b.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "u1"}, got.Players)

	_, err = db.AddPlayer(ctx, b.ID, "u1")
	assert.ErrorIs(t, err, ErrDuplicatePlayer)

	got, err = db.RemovePlayer(ctx, b.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, got.Players)

	_, err = db.RemovePlayer(ctx, b.ID, "owner")
	assert.ErrorIs(t, err, ErrPlayerNotInBooking)

	_, err = db.AddPlayer(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, stored.Players)
}

func TestPlayers_StoreDoesNotEnforceCapacity(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "concurrency.db"), &logger)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	b := newBooking("owner", time.Now().Add(time.Hour))
	b.MaxPlayers = 2
	require.NoError(t, db.CreateBooking(ctx, b))

	const numGoroutines = 5
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			_, _ = db.AddPlayer(ctx, b.ID, string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	stored, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	// the store never drops a join, and never duplicates one
	assert.Len(t, stored.Players, numGoroutines+1)
	seen := map[string]bool{}
	for _, p := range stored.Players {
		assert.False(t, seen[p])
		seen[p] = true
	}
}

func TestGuests(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	b := newBooking("owner", time.Now().Add(time.Hour))
	require.NoError(t, db.CreateBooking(ctx, b))

	g := &models.Guest{Name: "Cousin", BookingID: b.ID, InvitedBy: "owner"}
	require.NoError(t, db.CreateGuest(ctx, g))
	require.NotEmpty(t, g.ID)

	guests, err := db.GetGuests(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, guests, 1)
	assert.Equal(t, "Cousin", guests[0].Name)

	fetched, err := db.GetGuest(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, fetched.BookingID)

	require.NoError(t, db.DeleteGuest(ctx, g.ID))
	assert.ErrorIs(t, db.DeleteGuest(ctx, g.ID), ErrNotFound)
	_, err = db.GetGuest(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.CreateGuest(ctx, &models.Guest{Name: "Friend", BookingID: b.ID, InvitedBy: "owner"}))
	require.NoError(t, db.DeleteBooking(ctx, b.ID))
	guests, err = db.GetGuests(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, guests)

	err = db.CreateGuest(ctx, &models.Guest{Name: "Orphan", BookingID: "missing", InvitedBy: "owner"})
	assert.Error(t, err)
}

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	u := &models.User{ID: "u1", Email: "Kari@Example.com", Name: models.StringPtr("Kari")}
	require.NoError(t, db.CreateOrUpdateUser(ctx, u))

	got, err := db.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Kari", models.StringValue(got.Name))
	assert.Empty(t, got.Associations)
	assert.Empty(t, got.EmailConsents)

	got.EmailConsents = []string{"ADD", "JOIN"}
	got.Associations = []string{"g1"}
	got.Phone = models.StringPtr("+4712345678")
	require.NoError(t, db.UpdateUser(ctx, got))

	// upsert on next sight keeps profile fields
	require.NoError(t, db.CreateOrUpdateUser(ctx, &models.User{ID: "u1", Email: "kari@new.example.com"}))
	got, err = db.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "kari@new.example.com", got.Email)
	assert.Equal(t, "Kari", models.StringValue(got.Name))
	assert.Equal(t, []string{"ADD", "JOIN"}, got.EmailConsents)
	assert.Equal(t, []string{"g1"}, got.Associations)

	byEmail, err := db.GetUserByEmail(ctx, "KARI@new.example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	_, err = db.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.UpdateUser(ctx, &models.User{ID: "missing"}), ErrNotFound)

	require.NoError(t, db.CreateOrUpdateUser(ctx, &models.User{ID: "u2", Email: "per@example.com"}))
	users, err := db.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAssociationsAndInvites(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	a := &models.Association{
		Name:    "Sandkassa",
		UserID:  "owner",
		Admins:  []string{"owner"},
		Members: []string{"owner"},
		Private: true,
	}
	require.NoError(t, db.CreateAssociation(ctx, a))
	require.NotEmpty(t, a.ID)

	a.Members = append(a.Members, "m1")
	a.Description = "Tuesday games"
	require.NoError(t, db.UpdateAssociation(ctx, a))

	got, err := db.GetAssociation(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "m1"}, got.Members)
	assert.Equal(t, "Tuesday games", got.Description)
	assert.True(t, got.Private)

	list, err := db.GetAssociations(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	inv := &models.Invite{Email: " New@Example.com ", AssociationID: a.ID, InvitedBy: "owner"}
	require.NoError(t, db.CreateInvite(ctx, inv))
	firstID := inv.ID

	again := &models.Invite{Email: "new@example.com", AssociationID: a.ID, InvitedBy: "m1"}
	require.NoError(t, db.CreateInvite(ctx, again))
	assert.Equal(t, firstID, again.ID)

	invites, err := db.GetInvitesByEmail(ctx, "NEW@example.com")
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, "m1", invites[0].InvitedBy)

	require.NoError(t, db.DeleteInvite(ctx, firstID))
	assert.ErrorIs(t, db.DeleteInvite(ctx, firstID), ErrNotFound)

	assert.Error(t, db.CreateInvite(ctx, &models.Invite{Email: "x@example.com", AssociationID: "missing", InvitedBy: "owner"}))

	require.NoError(t, db.DeleteAssociation(ctx, a.ID))
	_, err = db.GetAssociation(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFacilities(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	facilities := []*models.Facility{
		{ID: "nordre", Name: "Nordre", Courts: []string{"A", "B"}, Durations: []string{"60", "90"}},
		{ID: "bygdoy", Name: "Bygdøy"},
	}
	require.NoError(t, db.SetFacilities(ctx, facilities))

	list, err := db.GetFacilities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	f, err := db.GetFacility(ctx, "nordre")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, f.Courts)

	facilities[0].Courts = []string{"C"}
	require.NoError(t, db.SetFacilities(ctx, facilities[:1]))
	f, err = db.GetFacility(ctx, "nordre")
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, f.Courts, "cache is refreshed after sync")

	_, err = db.GetFacility(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDB_ErrorPaths(t *testing.T) {
	db := setupTestDB(t)
	db.Close() // Close the DB to trigger errors

	ctx := context.Background()

	_, err := db.GetBookings(ctx)
	assert.Error(t, err)
	assert.Error(t, db.CreateBooking(ctx, &models.Booking{}))
	_, err = db.AddPlayer(ctx, "b", "u")
	assert.Error(t, err)
	assert.Error(t, db.CreateOrUpdateUser(ctx, &models.User{ID: "u"}))
	_, err = db.GetUsers(ctx)
	assert.Error(t, err)
	assert.Error(t, db.SetFacilities(ctx, nil))
	assert.Error(t, db.CreateSyncTask(ctx, &models.SyncTask{}))
	assert.Error(t, db.Ping(ctx))
}
