package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/sightline/internal/models"
)

type fakeProvider struct {
	reply string
	err   error
	delay time.Duration
}

func (f *fakeProvider) Generate(ctx context.Context, _ models.ReasoningRequest) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeProvider) Close() error { return nil }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestGateway_PassesReplyThrough(t *testing.T) {
	g := NewGateway(&fakeProvider{reply: "There is a chair ahead."}, time.Second, quietLogger())
	reply, fallback := g.Send(context.Background(), visualRequest())
	require.False(t, fallback)
	require.Equal(t, "There is a chair ahead.", reply)
}

func TestGateway_ErrorBecomesFallback(t *testing.T) {
	g := NewGateway(&fakeProvider{err: errors.New("connection refused")}, time.Second, quietLogger())
	reply, fallback := g.Send(context.Background(), visualRequest())
	require.True(t, fallback)
	require.Equal(t, FallbackReply, reply)
}

func TestGateway_TimeoutBecomesFallback(t *testing.T) {
	g := NewGateway(&fakeProvider{reply: "late", delay: time.Second}, 20*time.Millisecond, quietLogger())

	start := time.Now()
	reply, fallback := g.Send(context.Background(), visualRequest())
	require.True(t, fallback)
	require.Equal(t, FallbackReply, reply)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGateway_Upstream500IsFailSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewGeminiAPI("k", srv.URL, "m")
	require.NoError(t, err)

	reply, fallback := NewGateway(p, time.Second, quietLogger()).Send(context.Background(), visualRequest())
	require.True(t, fallback)
	require.Equal(t, FallbackReply, reply)
}
