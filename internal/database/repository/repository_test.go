package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/adminstate/internal/database"
	"github.com/jask/adminstate/internal/database/repository"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "adminui.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUIDataRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUIDataRepo(openDB(t))

	got, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, repo.Upsert(ctx, repository.UIData{Key: "layout", Value: []byte(`{"cols":2}`)}))
	require.NoError(t, repo.Upsert(ctx, repository.UIData{Key: "layout", Value: []byte(`{"cols":3}`)}))
	require.NoError(t, repo.Upsert(ctx, repository.UIData{Key: "theme", Value: []byte(`"dark"`)}))

	got, err = repo.Get(ctx, "layout")
	require.NoError(t, err)
	require.Equal(t, `{"cols":3}`, string(got.Value))

	many, err := repo.GetMany(ctx, []string{"theme", "layout", "nope"})
	require.NoError(t, err)
	require.Len(t, many, 2)
	require.Equal(t, "layout", many[0].Key)

	require.NoError(t, repo.Delete(ctx, "layout"))
	got, err = repo.Get(ctx, "layout")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestJournalSessionsAndPrune(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewJournalRepo(openDB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.CreateSession(ctx, repository.JournalSession{ID: "s1", StartedAt: now, Initial: []byte(`{}`)}))
	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Append(ctx, repository.JournalRecord{
			ID:         "r" + string(rune('0'+i)),
			SessionID:  "s1",
			Seq:        uint64(i),
			ActionType: "INC",
			RecordedAt: now,
		}))
	}

	sessions, err := repo.Sessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, 5, sessions[0].Records)

	require.NoError(t, repo.Prune(ctx, "s1", 2))
	recs, err := repo.Records(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, uint64(4), recs[0].Seq)
	require.Equal(t, uint64(5), recs[1].Seq)
}
