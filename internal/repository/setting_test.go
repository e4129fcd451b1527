package repository

import (
	"context"
	"testing"

	"marketgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingRepository_Upsert(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewSettingRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, "confidence_threshold")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	require.NoError(t, repo.Upsert(ctx, &models.ModerationSetting{Key: "confidence_threshold", Value: "70", Type: models.SettingInt}))
	admin := uint(1)
	require.NoError(t, repo.Upsert(ctx, &models.ModerationSetting{Key: "confidence_threshold", Value: "80", Type: models.SettingInt, UpdatedBy: &admin}))
	require.NoError(t, repo.Upsert(ctx, &models.ModerationSetting{Key: "auto_moderation_enabled", Value: "true", Type: models.SettingBool}))

	got, err := repo.Get(ctx, "confidence_threshold")
	require.NoError(t, err)
	assert.Equal(t, "80", got.Value)
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, admin, *got.UpdatedBy)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "auto_moderation_enabled", all[0].Key)
}
