package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPollInterval = 10 * time.Millisecond

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no message queued")
		return ""
	}
}

func TestParseUserChannel(t *testing.T) {
	id, ok := ParseUserChannel(UserChannel(42))
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, ch := range []string{"notifications:user:", "notifications:user:abc", "notifications:user:4x", "chat:conv:4", "notifications:user:0"} {
		_, ok := ParseUserChannel(ch)
		assert.False(t, ok, ch)
	}
}

func TestHub_BroadcastReachesOnlyOwner(t *testing.T) {
	hub := NewHub()
	owner, err := hub.Register(1, nil)
	require.NoError(t, err)
	other, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.Broadcast(1, `{"type":"listing_approved"}`)

	assert.Equal(t, `{"type":"listing_approved"}`, receive(t, owner))
	assert.Empty(t, other.send)
	_ = hub.Shutdown(context.Background())
}

func TestHub_ConnectionLimitsAndUnregister(t *testing.T) {
	hub := NewHub()
	clients := make([]*Client, 0, maxConnsPerUser)
	for i := 0; i < maxConnsPerUser; i++ {
		c, err := hub.Register(5, nil)
		require.NoError(t, err)
		clients = append(clients, c)
	}
	_, err := hub.Register(5, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)
	assert.Equal(t, maxConnsPerUser, hub.Connections(5))

	hub.UnregisterClient(clients[0])
	hub.UnregisterClient(clients[0])
	assert.Equal(t, maxConnsPerUser-1, hub.Connections(5))
	_, ok := <-clients[0].send
	assert.False(t, ok)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Zero(t, hub.Connections(5))
	_, err = hub.Register(5, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_StartWiringRelaysPublishedEvents(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	notifier := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, notifier))

	client, err := hub.Register(9, nil)
	require.NoError(t, err)

	require.NoError(t, notifier.PublishModeration(ctx, 9, ModerationEvent{
		Type:      EventListingHeld,
		ListingID: 4,
		Message:   "Tu anuncio está en revisión",
	}))
	assert.Contains(t, receive(t, client), `"type":"listing_held"`)

	require.NoError(t, notifier.PublishUser(ctx, 10, "not for nine"))
	assert.Never(t, func() bool { return len(client.send) > 0 }, 20*testPollInterval, testPollInterval)

	_ = hub.Shutdown(context.Background())
}

func TestHub_StartWiringWithoutRedis(t *testing.T) {
	assert.NoError(t, NewHub().StartWiring(context.Background(), NewNotifier(nil)))
}
