package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/adminstate/internal/database"
	"github.com/jask/adminstate/internal/database/repository"
)

func TestLocalAuth(t *testing.T) {
	auth := localAuth{ttl: time.Hour}
	_, _, err := auth.Login(context.Background(), "admin", "")
	require.Error(t, err)

	token, expires, err := auth.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expires.After(time.Now()))
}

func TestLocalQueries(t *testing.T) {
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "adminui.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	repo := repository.NewJournalRepo(db)
	require.NoError(t, repo.CreateSession(ctx, repository.JournalSession{ID: "s1", StartedAt: database.Now(), Initial: []byte(`{}`)}))

	queries := localQueries(db)
	require.Len(t, queries, 2)

	nodes, err := queries[0].Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	jobs, err := queries[1].Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "s1", jobs.([]map[string]any)[0]["id"])
}
