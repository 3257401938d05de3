package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/repository"
	"github.com/agentpilot/web/internal/testutil"
)

func setupProfileService(t *testing.T) (*ProfileService, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	profiles := repository.NewProfileRepository(db)
	ledger := NewLedgerService(db, profiles, repository.NewTransactionRepository(db), testConfig())
	return NewProfileService(profiles, repository.NewMemoryRepository(db), ledger), db
}

func TestProfileService_Overview(t *testing.T) {
	svc, db := setupProfileService(t)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db, testutil.WithCredits(95))
	testutil.TestTransaction(t, db, profile.ID, model.TxBonus, 50)
	testutil.TestTransaction(t, db, profile.ID, model.TxPurchase, 100)
	testutil.TestTransaction(t, db, profile.ID, model.TxConsumption, -55)

	ov, err := svc.Overview(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, 95, ov.Profile.Credits)
	assert.Equal(t, int64(100), ov.Acquired)
	assert.Equal(t, int64(55), ov.Consumed)
	assert.Len(t, ov.Recent, 3)

	_, err = svc.Overview(ctx, "missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileService_GetByExternalID(t *testing.T) {
	svc, db := setupProfileService(t)
	profile := testutil.TestProfile(t, db, testutil.WithTelegram(77))

	got, err := svc.GetByExternalID(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, got.ID)

	_, err = svc.GetByExternalID(context.Background(), 78)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileService_UpdateTraining(t *testing.T) {
	svc, db := setupProfileService(t)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db)

	tp, err := svc.UpdateTraining(ctx, profile.ID, model.TrainingProfile{
		Description:   "  Emprendedor tech  ",
		WritingStyle:  "Casual",
		Values:        []string{"honestidad", " ", "honestidad", "claridad"},
		FixedHashtags: []string{"IA", "#startups"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Emprendedor tech", tp.Description)
	assert.Equal(t, "casual", tp.WritingStyle)
	assert.Equal(t, "es", tp.PrimaryLanguage)
	assert.Equal(t, []string{"honestidad", "claridad"}, tp.Values)
	assert.Equal(t, []string{"#IA", "#startups"}, tp.FixedHashtags)

	stored := reloadProfile(t, db, profile.ID)
	assert.Equal(t, *tp, stored.TrainingProfile)

	_, err = svc.UpdateTraining(ctx, profile.ID, model.TrainingProfile{WritingStyle: "poetico"})
	assert.ErrorIs(t, err, ErrInvalidWritingStyle)

	_, err = svc.UpdateTraining(ctx, "missing", model.TrainingProfile{})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileService_Memory(t *testing.T) {
	svc, db := setupProfileService(t)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db)

	note, err := svc.AddMemory(ctx, profile.ID, model.MemoryPreference, "tono", "cercano")
	require.NoError(t, err)

	_, err = svc.AddMemory(ctx, profile.ID, "rumor", "k", "v")
	assert.ErrorIs(t, err, ErrInvalidMemoryKind)
	_, err = svc.AddMemory(ctx, profile.ID, model.MemoryFeedback, "", "v")
	assert.ErrorIs(t, err, ErrMemoryFieldsMissing)

	notes, err := svc.Memory(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	assert.ErrorIs(t, svc.DeleteMemory(ctx, "someone-else", note.ID), ErrMemoryNotFound)
	require.NoError(t, svc.DeleteMemory(ctx, profile.ID, note.ID))
	assert.ErrorIs(t, svc.DeleteMemory(ctx, profile.ID, note.ID), ErrMemoryNotFound)
}

func TestProfileService_Statement(t *testing.T) {
	svc, db := setupProfileService(t)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db, testutil.WithCredits(45))
	testutil.TestTransaction(t, db, profile.ID, model.TxBonus, 50)
	testutil.TestTransaction(t, db, profile.ID, model.TxConsumption, -5)

	pdf, err := svc.Statement(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = svc.Statement(ctx, "missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
