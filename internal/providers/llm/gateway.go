package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/sightline/internal/models"
)

// FallbackReply is spoken whenever the reasoning service cannot produce an answer.
const FallbackReply = "I am not able to understand the scene clearly."

const defaultTimeout = 20 * time.Second

// Gateway is the fail-soft boundary to the reasoning service: Send always yields a reply.
type Gateway struct {
	provider Provider
	timeout  time.Duration
	log      *logrus.Logger
}

func NewGateway(p Provider, timeout time.Duration, l *logrus.Logger) *Gateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if l == nil {
		l = logrus.New()
	}
	return &Gateway{provider: p, timeout: timeout, log: l}
}

// Send returns the model reply, or FallbackReply with fallback=true on any failure.
func (g *Gateway) Send(ctx context.Context, req models.ReasoningRequest) (reply string, fallback bool) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.provider.Generate(ctx, req)
	entry := g.log.WithFields(logrus.Fields{
		"decision":    req.Decision,
		"image_parts": len(req.ImageParts()),
		"latency_ms":  time.Since(start).Milliseconds(),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			entry = entry.WithField("timeout", g.timeout.String())
		}
		entry.WithError(err).Warn("reasoning failed, using fallback reply")
		return FallbackReply, true
	}
	entry.Debug("reasoning reply")
	return text, false
}
