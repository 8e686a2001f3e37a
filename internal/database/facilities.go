package database

import (
	"context"
	"fmt"
	"time"

	"beachbookings/internal/models"
)

const facilityColumns = `id, name, address, courts, durations, created_at, updated_at`

func scanFacility(row scanner) (*models.Facility, error) {
	var f models.Facility
	var courts, durations string
	if err := row.Scan(&f.ID, &f.Name, &f.Address, &courts, &durations, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if f.Courts, err = decodeList(courts); err != nil {
		return nil, err
	}
	if f.Durations, err = decodeList(durations); err != nil {
		return nil, err
	}
	return &f, nil
}

// SetFacilities upserts the configured facilities and refreshes the cache.
func (db *DB) SetFacilities(ctx context.Context, facilities []*models.Facility) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO facilities (` + facilityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                address = excluded.address,
                courts = excluded.courts,
                durations = excluded.durations,
                updated_at = excluded.updated_at`
	now := time.Now().UTC()
	for _, f := range facilities {
		courts, err := encodeList(f.Courts)
		if err != nil {
			return err
		}
		durations, err := encodeList(f.Durations)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, f.ID, f.Name, f.Address, courts, durations, now, now); err != nil {
			return fmt.Errorf("failed to upsert facility %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit facilities: %w", err)
	}

	db.mu.Lock()
	db.facilitiesCache = make(map[string]*models.Facility, len(facilities))
	db.mu.Unlock()

	if db.logger != nil {
		db.logger.Info().Int("count", len(facilities)).Msg("Facilities synced")
	}
	return nil
}

func (db *DB) GetFacilities(ctx context.Context) ([]*models.Facility, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+facilityColumns+` FROM facilities ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get facilities: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Facility, 0)
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan facility: %w", err)
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

func (db *DB) GetFacility(ctx context.Context, id string) (*models.Facility, error) {
	db.mu.RLock()
	cached, ok := db.facilitiesCache[id]
	db.mu.RUnlock()
	if ok {
		return cached, nil
	}

	f, err := scanFacility(db.QueryRowContext(ctx, `SELECT `+facilityColumns+` FROM facilities WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get facility %s: %w", id, notFound(err))
	}

	db.mu.Lock()
	db.facilitiesCache[id] = f
	db.mu.Unlock()
	return f, nil
}
