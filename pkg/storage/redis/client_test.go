package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(Config{URL: "redis://" + mr.Addr(), PoolSize: 5})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

type payload struct {
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}

func TestNewClient(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		_, err := NewClient(Config{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid redis URL")
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, err := NewClient(Config{URL: "redis://127.0.0.1:1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to redis")
	})
}

func TestClient_JSONRoundTrip(t *testing.T) {
	client, mr := setupClient(t)
	ctx := context.Background()

	require.NoError(t, client.SetJSON(ctx, "k", payload{Name: "meetup", Seats: 40}, time.Minute))

	var got payload
	found, err := client.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "meetup", Seats: 40}, got)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	require.NoError(t, client.Delete(ctx, "k"))
	found, err = client.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_GetJSONCorrupt(t *testing.T) {
	client, mr := setupClient(t)
	require.NoError(t, mr.Set("broken", "{not json"))

	var got payload
	found, err := client.GetJSON(context.Background(), "broken", &got)
	assert.Error(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("broken"), "corrupt value should be deleted")
}

func TestClient_PublishJSON(t *testing.T) {
	client, _ := setupClient(t)
	ctx := context.Background()

	sub := client.Raw().Subscribe(ctx, "rsvp:promotions")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, client.PublishJSON(ctx, "rsvp:promotions", payload{Name: "promoted"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"promoted","seats":0}`, msg.Payload)
}
