package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/sightline/internal/models"
)

func TestRedisPublisher_PublishesOnSessionChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := rdb.Subscribe(ctx, Channel("dev-1"))
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	p := NewRedisPublisher(rdb)
	require.NoError(t, p.Publish(ctx, "dev-1", models.Event{Type: models.EventReady}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "session:dev-1:events", msg.Channel)

	var ev models.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	require.Equal(t, models.EventReady, ev.Type)
	require.Equal(t, "dev-1", ev.SessionID)
	require.False(t, ev.At.IsZero())
}
