package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yoockh/sightline/internal/models"
)

// Publisher emits session events; the live client and the device both listen on the session channel.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, ev models.Event) error
}

// Channel is the pub/sub channel carrying events of one session.
func Channel(sessionID string) string {
	return "session:" + sessionID + ":events"
}

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, sessionID string, ev models.Event) error {
	ev.SessionID = sessionID
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel(sessionID), b).Err()
}
