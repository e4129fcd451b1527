package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"marketgate/internal/models"
	"marketgate/internal/notifications"
	"marketgate/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcementService_BanNotifiesOwner(t *testing.T) {
	db := setupSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := repository.NewUserRepository(db)
	audit := NewAuditService(repository.NewAuditRepository(db))
	svc := NewEnforcementService(users, audit, notifications.NewNotifier(rdb))
	ctx := context.Background()

	user := &models.User{Username: "seller", Role: models.RoleUser}
	require.NoError(t, users.Create(ctx, user))

	sub := rdb.Subscribe(ctx, notifications.UserChannel(user.ID))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	out, err := svc.RecordRejection(ctx, user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, StrikeOutcome{Strikes: 1}, out)

	out, err = svc.RecordRejection(ctx, user.ID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, StrikeOutcome{Strikes: 2, Banned: true}, out)

	select {
	case msg := <-sub.Channel():
		var event notifications.ModerationEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, notifications.EventAccountBanned, event.Type)
		assert.Contains(t, event.Message, "2 infracciones")
	case <-time.After(2 * time.Second):
		t.Fatal("no ban notification received")
	}

	_, err = svc.EnsureCanSubmit(ctx, user.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	// Further rejections count but do not ban twice.
	out, err = svc.RecordRejection(ctx, user.ID, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, StrikeOutcome{Strikes: 3}, out)

	var bans int64
	require.NoError(t, db.Model(&models.AuditLogEntry{}).Where("action = ?", models.AuditUserBanned).Count(&bans).Error)
	assert.Equal(t, int64(1), bans)
}

func TestEnforcementService_UnbanAndResetStrikes(t *testing.T) {
	db := setupSQLiteDB(t)
	users := repository.NewUserRepository(db)
	audit := NewAuditService(repository.NewAuditRepository(db))
	svc := NewEnforcementService(users, audit, nil)
	ctx := context.Background()

	user := &models.User{Username: "seller", Role: models.RoleUser}
	require.NoError(t, users.Create(ctx, user))
	_, err := svc.RecordRejection(ctx, user.ID, 1, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Unban(ctx, 99, user.ID))
	got, err := svc.EnsureCanSubmit(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ModerationStrikes)

	require.NoError(t, svc.ResetStrikes(ctx, 99, user.ID))
	got, err = users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ModerationStrikes)

	entries, err := audit.ByTarget(ctx, models.TargetUser, idString(user.ID), 10, 0)
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{
		models.AuditStrikeAdded, models.AuditUserBanned, models.AuditUserUnbanned, models.AuditStrikesReset,
	}, actions)

	assert.True(t, models.HasCode(svc.Unban(ctx, 99, 12345), models.CodeNotFound))
}
