package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/testutil"
)

func TestCredentialRepository_CRUD(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCredentialRepository(db)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db)
	cred := testutil.TestCredential(t, db, profile.ID, model.ProviderOpenAI)

	found, err := repo.GetByProvider(ctx, profile.ID, model.ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, cred.ID, found.ID)

	require.NoError(t, repo.UpdateKey(ctx, cred.ID, "new-ciphertext", "9999"))
	found, err = repo.GetByID(ctx, profile.ID, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-ciphertext", found.EncryptedKey)
	assert.Equal(t, "9999", found.KeyHint)

	n, err := repo.SetActive(ctx, profile.ID, cred.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	found, err = repo.GetByID(ctx, profile.ID, cred.ID)
	require.NoError(t, err)
	assert.False(t, found.Active)

	n, err = repo.Delete(ctx, profile.ID, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(ctx, profile.ID, cred.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCredentialRepository_ScopedToOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCredentialRepository(db)
	ctx := context.Background()
	owner := testutil.TestProfile(t, db)
	intruder := testutil.TestProfile(t, db)
	cred := testutil.TestCredential(t, db, owner.ID, model.ProviderAnthropic)

	n, err := repo.Delete(ctx, intruder.ID, cred.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.SetActive(ctx, intruder.ID, cred.ID, false)
	require.NoError(t, err)
	assert.Zero(t, n)

	creds, err := repo.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestCredentialRepository_UniquePerProvider(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCredentialRepository(db)
	profile := testutil.TestProfile(t, db)
	testutil.TestCredential(t, db, profile.ID, model.ProviderDeepSeek)

	err := repo.Create(context.Background(), &model.APICredential{
		UserID:       profile.ID,
		Provider:     model.ProviderDeepSeek,
		EncryptedKey: "x",
	})
	assert.Error(t, err)
}
