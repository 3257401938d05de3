package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/testutil"
)

func TestMemoryRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMemoryRepository(db)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db)

	for _, key := range []string{"tono", "emojis", "longitud"} {
		require.NoError(t, repo.Create(ctx, &model.MemoryNote{
			UserID: profile.ID,
			Kind:   model.MemoryPreference,
			Key:    key,
			Value:  "v",
		}))
	}

	notes, err := repo.ListByUser(ctx, profile.ID, 2)
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	notes, err = repo.ListByUser(ctx, profile.ID, 0)
	require.NoError(t, err)
	require.Len(t, notes, 3)

	n, err := repo.Delete(ctx, profile.ID, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Delete(ctx, "someone-else", notes[1].ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
