package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/sightline/internal/cache"
	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/storage"
)

var (
	jpegA = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("scene-a")...)
	jpegB = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("scene-b")...)
	pngC  = append([]byte("\x89PNG\r\n\x1a\n"), []byte("scene-c")...)
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeReasoner struct {
	mu       sync.Mutex
	reply    string
	fallback bool
	onSend   func(ctx context.Context)
	reqs     []models.ReasoningRequest
}

func (f *fakeReasoner) Send(ctx context.Context, req models.ReasoningRequest) (string, bool) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.onSend != nil {
		f.onSend(ctx)
	}
	return f.reply, f.fallback
}

func (f *fakeReasoner) requests() []models.ReasoningRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ReasoningRequest(nil), f.reqs...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, sessionID string, ev models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev.SessionID = sessionID
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeTalkLogs struct {
	mu      sync.Mutex
	queries []string
	replies []models.TalkReply
}

func (f *fakeTalkLogs) Record(_ context.Context, query string, reply models.TalkReply, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.replies = append(f.replies, reply)
	return nil
}

func (f *fakeTalkLogs) ListBySession(context.Context, string, int64) ([]models.TalkLog, error) {
	return nil, nil
}

type talkHarness struct {
	svc      TalkService
	store    *storage.DiskStore
	gate     ReadinessGate
	reasoner *fakeReasoner
	pub      *recordingPublisher
	logs     *fakeTalkLogs
}

func newTalkHarness(t *testing.T, classifier Classifier) *talkHarness {
	t.Helper()

	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	h := &talkHarness{
		store:    store,
		gate:     NewReadinessGate(cache.NewMemoryCache(time.Minute), 5*time.Minute),
		reasoner: &fakeReasoner{reply: "There is a chair ahead.\nNext step:\nWalk around it."},
		pub:      &recordingPublisher{},
		logs:     &fakeTalkLogs{},
	}
	h.svc = NewTalkService(TalkDeps{
		Store:      h.store,
		Gate:       h.gate,
		Classifier: classifier,
		Reasoner:   h.reasoner,
		Publisher:  h.pub,
		Logs:       h.logs,
		Log:        quietLogger(),
	})
	return h
}

func (h *talkHarness) ready(t *testing.T, sessionID string) bool {
	t.Helper()
	ok, err := h.svc.IsReady(context.Background(), sessionID)
	require.NoError(t, err)
	return ok
}
