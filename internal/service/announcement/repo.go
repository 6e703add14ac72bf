package announcement

import (
	"context"
	"database/sql"
	dberr "errors"
	"time"

	"github.com/memorywall/memorywall/pkg/errors"
)

// Announcement is an administrative broadcast message shown in the gallery.
type Announcement struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository persists announcements.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps the shared connection pool.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a new announcement. When active, any previously active
// announcement is deactivated in the same transaction so the gallery shows
// at most one.
func (r *Repository) Insert(ctx context.Context, a *Announcement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	if a.Active {
		if _, err := tx.ExecContext(ctx, `UPDATE announcements SET active = FALSE WHERE active`); err != nil {
			return storageErr(err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO announcements (id, message, active, created_at)
		VALUES ($1, $2, $3, NOW())
	`, a.ID, a.Message, a.Active); err != nil {
		return storageErr(err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr(err)
	}
	return nil
}

// GetActive returns the currently active announcement, newest first.
func (r *Repository) GetActive(ctx context.Context) (*Announcement, error) {
	var a Announcement
	err := r.db.QueryRowContext(ctx, `
		SELECT id, message, active, created_at FROM announcements
		WHERE active ORDER BY created_at DESC LIMIT 1
	`).Scan(&a.ID, &a.Message, &a.Active, &a.CreatedAt)
	if err != nil {
		if dberr.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &a, nil
}

// Deactivate clears the active flag on one announcement.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE announcements SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func storageErr(err error) error {
	return errors.Wrap(errors.ErrStorageUnavailable, err.Error())
}
