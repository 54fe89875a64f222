package services

import (
	"context"
	"time"

	"github.com/yoockh/sightline/internal/cache"
)

// ReadinessGate answers "is a fresh, unconsumed image pair stored for this session".
type ReadinessGate interface {
	MarkReady(ctx context.Context, sessionID string) error
	MarkNotReady(ctx context.Context, sessionID string) error
	IsReady(ctx context.Context, sessionID string) (bool, error)
}

type readyState struct {
	ReadyAt time.Time `json:"ready_at"`
}

type cacheGate struct {
	c   cache.Cache
	ttl time.Duration
	now func() time.Time
}

// NewReadinessGate stores the flag in c. A ready flag older than ttl reads as not ready; ttl <= 0 disables staleness.
func NewReadinessGate(c cache.Cache, ttl time.Duration) ReadinessGate {
	return &cacheGate{c: c, ttl: ttl, now: time.Now}
}

func readyKey(sessionID string) string {
	return "talk:" + sessionID + ":ready"
}

func (g *cacheGate) MarkReady(ctx context.Context, sessionID string) error {
	return g.c.SetJSON(ctx, readyKey(sessionID), readyState{ReadyAt: g.now().UTC()}, g.ttl)
}

func (g *cacheGate) MarkNotReady(ctx context.Context, sessionID string) error {
	return g.c.Del(ctx, readyKey(sessionID))
}

func (g *cacheGate) IsReady(ctx context.Context, sessionID string) (bool, error) {
	var st readyState
	hit, err := g.c.GetJSON(ctx, readyKey(sessionID), &st)
	if err != nil || !hit {
		return false, err
	}
	// the cache TTL is the primary expiry; this covers backends with coarse expiry
	if g.ttl > 0 && g.now().Sub(st.ReadyAt) > g.ttl {
		return false, nil
	}
	return true, nil
}
