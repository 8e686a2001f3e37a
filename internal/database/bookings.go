package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"beachbookings/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, date, duration, court, max_players, players, user_id,
                 association_id, facility_id, joinable, locked, created_at, updated_at`

func scanBooking(row scanner) (*models.Booking, error) {
	var b models.Booking
	var players string
	err := row.Scan(
		&b.ID, &b.Date, &b.Duration, &b.Court, &b.MaxPlayers, &players, &b.UserID,
		&b.AssociationID, &b.FacilityID, &b.Joinable, &b.Locked, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if b.Players, err = decodeList(players); err != nil {
		return nil, fmt.Errorf("booking %s players: %w", b.ID, err)
	}
	return &b, nil
}

// GetBookings returns every booking. Filtering is done by the caller.
func (db *DB) GetBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY date ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", id, notFound(err))
	}
	return b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	players, err := encodeList(booking.Players)
	if err != nil {
		return err
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}

	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, query,
		booking.ID,
		booking.Date.UTC(),
		booking.Duration,
		booking.Court,
		booking.MaxPlayers,
		players,
		booking.UserID,
		booking.AssociationID,
		booking.FacilityID,
		booking.Joinable,
		booking.Locked,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

// UpdateBooking overwrites the editable fields. Players are kept as stored.
func (db *DB) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	query := `UPDATE bookings SET date = ?, duration = ?, court = ?, max_players = ?,
                 association_id = ?, facility_id = ?, joinable = ?, locked = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		booking.Date.UTC(),
		booking.Duration,
		booking.Court,
		booking.MaxPlayers,
		booking.AssociationID,
		booking.FacilityID,
		booking.Joinable,
		booking.Locked,
		now,
		booking.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to update booking %s: %w", booking.ID, err)
	}
	booking.UpdatedAt = now
	return nil
}

func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM guests WHERE booking_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete guests of booking: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to delete booking %s: %w", id, err)
	}

	return tx.Commit()
}

// AddPlayer appends userID to the player list. Capacity is not checked here.
func (db *DB) AddPlayer(ctx context.Context, bookingID, userID string) (*models.Booking, error) {
	return db.updatePlayers(ctx, bookingID, func(players []string) ([]string, error) {
		for _, p := range players {
			if p == userID {
				return nil, ErrDuplicatePlayer
			}
		}
		return append(players, userID), nil
	})
}

func (db *DB) RemovePlayer(ctx context.Context, bookingID, userID string) (*models.Booking, error) {
	return db.updatePlayers(ctx, bookingID, func(players []string) ([]string, error) {
		out := make([]string, 0, len(players))
		found := false
		for _, p := range players {
			if p == userID {
				found = true
				continue
			}
			out = append(out, p)
		}
		if !found {
			return nil, ErrPlayerNotInBooking
		}
		return out, nil
	})
}

func (db *DB) updatePlayers(ctx context.Context, bookingID string, change func([]string) ([]string, error)) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(tx.QueryRowContext(ctx, query, bookingID))
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", bookingID, notFound(err))
	}

	players, err := change(booking.Players)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeList(players)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE bookings SET players = ?, updated_at = ? WHERE id = ?`, encoded, now, bookingID); err != nil {
		return nil, fmt.Errorf("failed to update players: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit players update: %w", err)
	}

	booking.Players = players
	booking.UpdatedAt = now
	return booking, nil
}

func (db *DB) GetGuests(ctx context.Context, bookingID string) ([]*models.Guest, error) {
	query := `SELECT id, name, booking_id, invited_by, created_at FROM guests WHERE booking_id = ? ORDER BY created_at ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guests: %w", err)
	}
	defer rows.Close()

	guests := make([]*models.Guest, 0)
	for rows.Next() {
		var g models.Guest
		if err := rows.Scan(&g.ID, &g.Name, &g.BookingID, &g.InvitedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, &g)
	}
	return guests, rows.Err()
}

func (db *DB) CreateGuest(ctx context.Context, guest *models.Guest) error {
	if guest.ID == "" {
		guest.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO guests (id, name, booking_id, invited_by, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, guest.ID, guest.Name, guest.BookingID, guest.InvitedBy, now); err != nil {
		return fmt.Errorf("failed to create guest: %w", err)
	}
	guest.CreatedAt = now
	return nil
}

func (db *DB) DeleteGuest(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM guests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to delete guest %s: %w", id, err)
	}
	return nil
}

// GetGuest is used to check that a guest belongs to the booking being edited.
func (db *DB) GetGuest(ctx context.Context, id string) (*models.Guest, error) {
	var g models.Guest
	query := `SELECT id, name, booking_id, invited_by, created_at FROM guests WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.BookingID, &g.InvitedBy, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	return &g, nil
}
