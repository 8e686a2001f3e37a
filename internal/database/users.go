package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"beachbookings/internal/models"
)

const userColumns = `id, name, email, phone, associations, email_consents, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var associations, consents string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &associations, &consents, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if u.Associations, err = decodeList(associations); err != nil {
		return nil, fmt.Errorf("user %s associations: %w", u.ID, err)
	}
	if u.EmailConsents, err = decodeList(consents); err != nil {
		return nil, fmt.Errorf("user %s consents: %w", u.ID, err)
	}
	return &u, nil
}

func (db *DB) GetUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, notFound(err))
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER(?) ORDER BY created_at ASC LIMIT 1`
	u, err := scanUser(db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", notFound(err))
	}
	return u, nil
}

// CreateOrUpdateUser inserts the user or refreshes the email of an existing one.
// Profile fields of an existing user are left alone.
func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	associations, err := encodeList(user.Associations)
	if err != nil {
		return err
	}
	consents, err := encodeList(user.EmailConsents)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                email = excluded.email,
                updated_at = excluded.updated_at`
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		associations,
		consents,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create or update user: %w", err)
	}
	return nil
}

func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	associations, err := encodeList(user.Associations)
	if err != nil {
		return err
	}
	consents, err := encodeList(user.EmailConsents)
	if err != nil {
		return err
	}

	query := `UPDATE users SET name = ?, email = ?, phone = ?, associations = ?, email_consents = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query, user.Name, user.Email, user.Phone, associations, consents, now, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	user.UpdatedAt = now
	return nil
}
