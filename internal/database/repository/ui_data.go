package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// UIDataRepo handles ui_data.
type UIDataRepo struct {
	db *sql.DB
}

func NewUIDataRepo(db *sql.DB) *UIDataRepo { return &UIDataRepo{db: db} }

func (r *UIDataRepo) Upsert(ctx context.Context, d UIData) error {
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO ui_data(key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;
	`, d.Key, d.Value, d.UpdatedAt)
	return err
}

// Get returns nil, nil when key was never saved.
func (r *UIDataRepo) Get(ctx context.Context, key string) (*UIData, error) {
	row := r.db.QueryRowContext(ctx, `SELECT key, value, updated_at FROM ui_data WHERE key = ?`, key)
	var d UIData
	if err := row.Scan(&d.Key, &d.Value, &d.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// GetMany returns the saved values among keys. Missing keys are absent from
// the result.
func (r *UIDataRepo) GetMany(ctx context.Context, keys []string) ([]UIData, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := `SELECT key, value, updated_at FROM ui_data WHERE key IN (?` + strings.Repeat(",?", len(keys)-1) + `) ORDER BY key`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UIData
	for rows.Next() {
		var d UIData
		if err := rows.Scan(&d.Key, &d.Value, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *UIDataRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ui_data WHERE key = ?`, key)
	return err
}
