package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"beachbookings/internal/models"

	"github.com/google/uuid"
)

const associationColumns = `id, name, description, user_id, admins, members, private, created_at, updated_at`

func scanAssociation(row scanner) (*models.Association, error) {
	var a models.Association
	var admins, members string
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.UserID, &admins, &members, &a.Private, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if a.Admins, err = decodeList(admins); err != nil {
		return nil, fmt.Errorf("association %s admins: %w", a.ID, err)
	}
	if a.Members, err = decodeList(members); err != nil {
		return nil, fmt.Errorf("association %s members: %w", a.ID, err)
	}
	return &a, nil
}

func (db *DB) GetAssociations(ctx context.Context) ([]*models.Association, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+associationColumns+` FROM associations ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get associations: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Association, 0)
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan association: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate associations: %w", err)
	}
	return list, nil
}

func (db *DB) GetAssociation(ctx context.Context, id string) (*models.Association, error) {
	a, err := scanAssociation(db.QueryRowContext(ctx, `SELECT `+associationColumns+` FROM associations WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get association %s: %w", id, notFound(err))
	}
	return a, nil
}

func (db *DB) CreateAssociation(ctx context.Context, a *models.Association) error {
	admins, err := encodeList(a.Admins)
	if err != nil {
		return err
	}
	members, err := encodeList(a.Members)
	if err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	query := `INSERT INTO associations (` + associationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, query, a.ID, a.Name, a.Description, a.UserID, admins, members, a.Private, now, now); err != nil {
		return fmt.Errorf("failed to create association: %w", err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (db *DB) UpdateAssociation(ctx context.Context, a *models.Association) error {
	admins, err := encodeList(a.Admins)
	if err != nil {
		return err
	}
	members, err := encodeList(a.Members)
	if err != nil {
		return err
	}

	query := `UPDATE associations SET name = ?, description = ?, admins = ?, members = ?, private = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query, a.Name, a.Description, admins, members, a.Private, now, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update association: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to update association %s: %w", a.ID, err)
	}
	a.UpdatedAt = now
	return nil
}

func (db *DB) DeleteAssociation(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invites WHERE association_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete invites: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM associations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete association: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to delete association %s: %w", id, err)
	}
	return tx.Commit()
}

// CreateInvite stores an invite. Re-inviting the same address refreshes it.
func (db *DB) CreateInvite(ctx context.Context, invite *models.Invite) error {
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	invite.Email = strings.ToLower(strings.TrimSpace(invite.Email))

	query := `INSERT INTO invites (id, email, association_id, invited_by, created_at) VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(email, association_id) DO UPDATE SET
                invited_by = excluded.invited_by,
                created_at = excluded.created_at`
	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, query, invite.ID, invite.Email, invite.AssociationID, invite.InvitedBy, now); err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}

	// при повторном приглашении id остается прежним
	err := db.QueryRowContext(ctx, `SELECT id FROM invites WHERE email = ? AND association_id = ?`,
		invite.Email, invite.AssociationID).Scan(&invite.ID)
	if err != nil {
		return fmt.Errorf("failed to read invite id: %w", err)
	}
	invite.CreatedAt = now
	return nil
}

func (db *DB) GetInvitesByEmail(ctx context.Context, email string) ([]*models.Invite, error) {
	query := `SELECT id, email, association_id, invited_by, created_at FROM invites WHERE email = ? ORDER BY created_at ASC`
	rows, err := db.QueryContext(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get invites: %w", err)
	}
	defer rows.Close()

	invites := make([]*models.Invite, 0)
	for rows.Next() {
		var inv models.Invite
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.AssociationID, &inv.InvitedBy, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, &inv)
	}
	return invites, rows.Err()
}

func (db *DB) DeleteInvite(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM invites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to delete invite %s: %w", id, err)
	}
	return nil
}
