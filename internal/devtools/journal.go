package devtools

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jask/adminstate/internal/database/repository"
)

// Journal is an Inspector persisting records to sqlite. Each Init opens a new
// session; MaxAge bounds the records kept per session.
type Journal struct {
	repo    *repository.JournalRepo
	maxAge  int
	timeout time.Duration
	session string
}

func NewJournal(db *sql.DB, maxAge int) *Journal {
	return &Journal{repo: repository.NewJournalRepo(db), maxAge: maxAge, timeout: 5 * time.Second}
}

// Session is the id of the current session, empty before Init.
func (j *Journal) Session() string { return j.session }

func (j *Journal) Init(state any) error {
	raw, err := Marshal(state)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	id := uuid.NewString()
	if err := j.repo.CreateSession(ctx, repository.JournalSession{
		ID:        id,
		StartedAt: time.Now().UTC(),
		Initial:   raw,
	}); err != nil {
		return fmt.Errorf("devtools: journal session: %w", err)
	}
	j.session = id
	return nil
}

func (j *Journal) Send(rec Record) error {
	if j.session == "" {
		return fmt.Errorf("devtools: journal not initialised")
	}
	action, err := Marshal(rec.Action)
	if err != nil {
		return err
	}
	state, err := Marshal(rec.State)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if err := j.repo.Append(ctx, repository.JournalRecord{
		ID:         rec.ID.String(),
		SessionID:  j.session,
		Seq:        rec.Seq,
		ActionType: rec.Type,
		Action:     action,
		State:      state,
		RecordedAt: rec.At.UTC(),
	}); err != nil {
		return fmt.Errorf("devtools: journal append: %w", err)
	}
	if j.maxAge > 0 && rec.Seq%uint64(j.maxAge) == 0 {
		return j.repo.Prune(ctx, j.session, j.maxAge)
	}
	return nil
}
