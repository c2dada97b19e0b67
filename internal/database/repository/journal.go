package repository

import (
	"context"
	"database/sql"
)

// JournalRepo handles the devtools journal tables.
type JournalRepo struct {
	db *sql.DB
}

func NewJournalRepo(db *sql.DB) *JournalRepo { return &JournalRepo{db: db} }

func (r *JournalRepo) CreateSession(ctx context.Context, s JournalSession) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO journal_sessions(id, started_at, initial) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET initial=excluded.initial;
	`, s.ID, s.StartedAt, s.Initial)
	return err
}

func (r *JournalRepo) Append(ctx context.Context, rec JournalRecord) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO journal_records(id, session_id, seq, action_type, action, state, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`, rec.ID, rec.SessionID, rec.Seq, rec.ActionType, rec.Action, rec.State, rec.RecordedAt)
	return err
}

// Sessions lists sessions newest first with their record counts.
func (r *JournalRepo) Sessions(ctx context.Context, limit int) ([]JournalSession, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT s.id, s.started_at, s.initial, COUNT(r.id)
	FROM journal_sessions s
	LEFT JOIN journal_records r ON r.session_id = s.id
	GROUP BY s.id
	ORDER BY s.started_at DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JournalSession
	for rows.Next() {
		var s JournalSession
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.Initial, &s.Records); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Records returns the records of a session in dispatch order.
func (r *JournalRepo) Records(ctx context.Context, sessionID string) ([]JournalRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, session_id, seq, action_type, action, state, recorded_at
	FROM journal_records WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JournalRecord
	for rows.Next() {
		var rec JournalRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Seq, &rec.ActionType, &rec.Action, &rec.State, &rec.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune drops the records of session older than keep most recent ones.
func (r *JournalRepo) Prune(ctx context.Context, sessionID string, keep int) error {
	_, err := r.db.ExecContext(ctx, `
	DELETE FROM journal_records
	WHERE session_id = ? AND seq <= (SELECT COALESCE(MAX(seq), 0) FROM journal_records WHERE session_id = ?) - ?`,
		sessionID, sessionID, keep)
	return err
}
