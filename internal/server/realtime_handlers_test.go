package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"marketgate/internal/models"
	"marketgate/internal/notifications"

	"github.com/alicebob/miniredis/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves env.app on a loopback port; websocket upgrades need a real connection.
func (e *testEnv) listen(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = e.app.Listener(ln) }()
	t.Cleanup(func() { _ = e.app.Shutdown() })
	return ln.Addr().String()
}

func dialModeration(t *testing.T, addr string, header http.Header) (*gorillaws.Conn, *http.Response, error) {
	return gorillaws.DefaultDialer.Dial("ws://"+addr+"/api/ws/moderation", header)
}

func TestModerationSocket_RelaysOwnerEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnvWithRedis(t, rdb)
	require.NoError(t, env.srv.StartRealtime(context.Background()))
	t.Cleanup(func() { env.srv.stopRealtime() })
	seller := env.createUser(t, "seller", models.RoleUser)
	addr := env.listen(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token(t, seller.ID))
	conn, _, err := dialModeration(t, addr, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.srv.hub.Connections(seller.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	payload, err := json.Marshal(map[string]any{
		"title":       "Bicicleta de montaña",
		"description": "Rodado 26, frenos nuevos, poco uso.",
		"price":       120,
	})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/api/listings", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, seller.ID))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var submitted struct {
		Listing models.Listing `json:"listing"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event notifications.ModerationEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, notifications.EventListingApproved, event.Type)
	assert.Equal(t, submitted.Listing.ID, event.ListingID)
}

func TestModerationSocket_RequiresAuth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnvWithRedis(t, rdb)
	addr := env.listen(t)

	_, resp, err := dialModeration(t, addr, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestModerationSocket_PlainRequestNeedsUpgrade(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnvWithRedis(t, rdb)
	seller := env.createUser(t, "seller", models.RoleUser)

	resp, _ := env.do(t, http.MethodGet, "/api/ws/moderation", seller.ID, nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestModerationSocket_UnavailableWithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller", models.RoleUser)

	resp, _ := env.do(t, http.MethodGet, "/api/ws/moderation", seller.ID, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
