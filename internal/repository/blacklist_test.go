package repository

import (
	"context"
	"testing"

	"marketgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistRepository(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewBlacklistRepository(db)
	ctx := context.Background()

	entries := []*models.BlacklistEntry{
		{Type: models.BlacklistWord, Value: "revolucion", IsActive: true},
		{Type: models.BlacklistEmail, Value: "estafa@example.com", IsActive: true},
		{Type: models.BlacklistPhrase, Value: "pago adelantado", IsActive: true},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
	}

	require.NoError(t, repo.Deactivate(ctx, entries[2].ID))
	assert.True(t, models.HasCode(repo.Deactivate(ctx, entries[2].ID), models.CodeNotFound))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "revolucion", active[0].Value)

	words, err := repo.ListActive(ctx, models.BlacklistWord, models.BlacklistPhrase)
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, models.BlacklistWord, words[0].Type)

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
