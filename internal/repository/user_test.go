package repository

import (
	"context"
	"testing"

	"marketgate/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_IncrementStrikes_SQL(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		mockBehavior func(mock sqlmock.Sqlmock)
		want         int
		wantCode     string
	}{
		{
			name: "Success",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE "users" SET "moderation_strikes"=moderation_strikes \+ \$1 WHERE id = \$2`).
					WithArgs(1, 7).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1`).
					WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"moderation_strikes"}).AddRow(3))
				mock.ExpectCommit()
			},
			want: 3,
		},
		{
			name: "Not Found",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE "users" SET "moderation_strikes"=moderation_strikes \+ \$1 WHERE id = \$2`).
					WithArgs(1, 7).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewUserRepository(db)
			tt.mockBehavior(mock)

			got, err := repo.IncrementStrikes(ctx, 7)
			if tt.wantCode != "" {
				assert.True(t, models.HasCode(err, tt.wantCode), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_EnforcementLifecycle(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "seller", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, user))

	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementStrikes(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.NoError(t, repo.Ban(ctx, user.ID, "too many strikes"))
	banned, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)
	assert.Equal(t, "too many strikes", banned.BanReason)
	assert.NotNil(t, banned.BannedAt)
	assert.Equal(t, 3, banned.ModerationStrikes)

	require.NoError(t, repo.Unban(ctx, user.ID))
	require.NoError(t, repo.ResetStrikes(ctx, user.ID))
	restored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsBanned)
	assert.Empty(t, restored.BanReason)
	assert.Nil(t, restored.BannedAt)
	assert.Zero(t, restored.ModerationStrikes)
}

func TestUserRepository_MissingUser(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 42)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = repo.IncrementStrikes(ctx, 42)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	assert.True(t, models.HasCode(repo.Ban(ctx, 42, "x"), models.CodeNotFound))
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "dup"}))
	err := repo.Create(ctx, &models.User{Username: "dup"})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}
