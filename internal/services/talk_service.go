package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/sightline/internal/events"
	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/storage"
	"github.com/yoockh/sightline/internal/utils"
)

// Reasoner sends one request and always yields a reply text; fallback reports a substituted reply.
type Reasoner interface {
	Send(ctx context.Context, req models.ReasoningRequest) (reply string, fallback bool)
}

// TalkService owns the talk-mode state of every session: the landing store and the readiness gate.
type TalkService interface {
	UploadBatch(ctx context.Context, sessionID string, batch models.UploadBatch) error
	UploadImage(ctx context.Context, sessionID string, tag models.ImageTag, data []byte) (ready bool, err error)
	StartCapture(ctx context.Context, sessionID string) error
	Query(ctx context.Context, sessionID, text string) (*models.TalkReply, error)
	IsReady(ctx context.Context, sessionID string) (bool, error)
}

type TalkDeps struct {
	Store      storage.LandingStore
	Gate       ReadinessGate
	Classifier Classifier
	Assembler  *Assembler
	Reasoner   Reasoner
	Publisher  events.Publisher
	Logs       TalkLogService // optional
	Log        *logrus.Logger

	CleanupTimeout time.Duration
}

type talkService struct {
	store      storage.LandingStore
	gate       ReadinessGate
	classifier Classifier
	assembler  *Assembler
	reasoner   Reasoner
	pub        events.Publisher
	logs       TalkLogService
	log        *logrus.Logger

	locks          *sessionLocks
	cleanupTimeout time.Duration
	cleanupTries   uint
}

func NewTalkService(d TalkDeps) TalkService {
	if d.Classifier == nil {
		d.Classifier = NewKeywordClassifier()
	}
	if d.Assembler == nil {
		d.Assembler = NewAssembler()
	}
	if d.Log == nil {
		d.Log = logrus.New()
	}
	if d.CleanupTimeout <= 0 {
		d.CleanupTimeout = 10 * time.Second
	}
	return &talkService{
		store:          d.Store,
		gate:           d.Gate,
		classifier:     d.Classifier,
		assembler:      d.Assembler,
		reasoner:       d.Reasoner,
		pub:            d.Publisher,
		logs:           d.Logs,
		log:            d.Log,
		locks:          newSessionLocks(),
		cleanupTimeout: d.CleanupTimeout,
		cleanupTries:   5,
	}
}

const maxSessionIDLen = 128

// SessionKey returns the id every per-session resource is keyed on: the store slot, the readiness
// flag, the lock and the event channel. Ids the landing store would have to rewrite are rejected,
// so two distinct ids never share a slot.
func SessionKey(sessionID string) (string, error) {
	s := strings.TrimSpace(sessionID)
	if s == "" {
		return models.DefaultSessionID, nil
	}
	if len(s) > maxSessionIDLen || storage.SafeSegment(s) != s {
		return "", utils.E(utils.CodeInvalidArgument, "SessionKey", "session id may only contain letters, digits, '-' and '_'", nil)
	}
	return s, nil
}

// imageFrom sniffs the payload; non-image payloads report ok=false.
func imageFrom(data []byte) (img models.Image, ok bool) {
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return models.Image{Data: data, MIMEType: "image/jpeg"}, false
	}
	return models.Image{Data: data, MIMEType: ct}, true
}

func (s *talkService) UploadBatch(ctx context.Context, sessionID string, batch models.UploadBatch) error {
	const op = "TalkService.UploadBatch"
	sessionID, err := SessionKey(sessionID)
	if err != nil {
		return err
	}

	if len(batch.Previous) == 0 || len(batch.Current) == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "both previous and current images are required", utils.ErrIncompleteUploadBatch)
	}
	if _, ok := imageFrom(batch.Previous); !ok {
		return utils.E(utils.CodeInvalidArgument, op, "previous is not an image", utils.ErrIncompleteUploadBatch)
	}
	if _, ok := imageFrom(batch.Current); !ok {
		return utils.E(utils.CodeInvalidArgument, op, "current is not an image", utils.ErrIncompleteUploadBatch)
	}

	release, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "session busy", err)
	}
	defer release()

	if err := s.gate.MarkNotReady(ctx, sessionID); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to reset readiness", err)
	}
	if err := s.store.Put(ctx, sessionID, models.TagPrevious, batch.Previous); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to store previous image", err)
	}
	if err := s.store.Put(ctx, sessionID, models.TagCurrent, batch.Current); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to store current image", err)
	}
	if err := s.gate.MarkReady(ctx, sessionID); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to mark ready", err)
	}

	s.emit(ctx, sessionID, models.Event{Type: models.EventReady})
	return nil
}

// UploadImage stores one tag. The session becomes ready once both tags are stored.
func (s *talkService) UploadImage(ctx context.Context, sessionID string, tag models.ImageTag, data []byte) (bool, error) {
	const op = "TalkService.UploadImage"
	sessionID, err := SessionKey(sessionID)
	if err != nil {
		return false, err
	}

	if !tag.Valid() {
		return false, utils.Ef(utils.CodeInvalidArgument, op, nil, "tag %q must be previous or current", tag)
	}
	if _, ok := imageFrom(data); len(data) == 0 || !ok {
		return false, utils.E(utils.CodeInvalidArgument, op, "image payload is empty or not an image", nil)
	}

	release, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return false, utils.E(utils.CodeUnavailable, op, "session busy", err)
	}
	defer release()

	if err := s.gate.MarkNotReady(ctx, sessionID); err != nil {
		return false, utils.E(utils.CodeUnavailable, op, "failed to reset readiness", err)
	}
	if err := s.store.Put(ctx, sessionID, tag, data); err != nil {
		return false, utils.E(utils.CodeUnavailable, op, "failed to store image", err)
	}

	other := models.TagCurrent
	if tag == models.TagCurrent {
		other = models.TagPrevious
	}
	if _, err := s.store.Get(ctx, sessionID, other); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return false, nil
		}
		return false, utils.E(utils.CodeUnavailable, op, "failed to check stored pair", err)
	}

	if err := s.gate.MarkReady(ctx, sessionID); err != nil {
		return false, utils.E(utils.CodeUnavailable, op, "failed to mark ready", err)
	}
	s.emit(ctx, sessionID, models.Event{Type: models.EventReady})
	return true, nil
}

// StartCapture invalidates the stored pair and asks the device for a new one.
func (s *talkService) StartCapture(ctx context.Context, sessionID string) error {
	const op = "TalkService.StartCapture"
	sessionID, err := SessionKey(sessionID)
	if err != nil {
		return err
	}

	release, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "session busy", err)
	}
	defer release()

	if err := s.gate.MarkNotReady(ctx, sessionID); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to reset readiness", err)
	}
	if err := s.store.DeleteAll(ctx, sessionID); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("failed to purge images on capture start")
	}

	s.emit(ctx, sessionID, models.Event{Type: models.EventBeginCapture})
	s.emit(ctx, sessionID, models.Event{Type: models.EventNotReady})
	return nil
}

func (s *talkService) IsReady(ctx context.Context, sessionID string) (bool, error) {
	const op = "TalkService.IsReady"

	sessionID, err := SessionKey(sessionID)
	if err != nil {
		return false, err
	}
	ready, err := s.gate.IsReady(ctx, sessionID)
	if err != nil {
		return false, utils.E(utils.CodeUnavailable, op, "failed to read readiness", err)
	}
	return ready, nil
}

// Query always yields a reply for a non-empty text; errors are for invalid input or cancellation only.
func (s *talkService) Query(ctx context.Context, sessionID, text string) (*models.TalkReply, error) {
	const op = "TalkService.Query"
	sessionID, err := SessionKey(sessionID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "text is required", nil)
	}

	release, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "session busy", err)
	}
	defer release()

	start := time.Now()
	decision := s.classifier.Classify(text)

	var out *models.TalkReply
	if decision == models.DecisionGeneralKnowledge {
		out = s.answerGeneral(ctx, sessionID, text)
	} else {
		out = s.answerVisual(ctx, sessionID, text)
	}

	s.deliver(ctx, text, out, time.Since(start))
	return out, nil
}

func (s *talkService) answerGeneral(ctx context.Context, sessionID, text string) *models.TalkReply {
	req, _ := s.assembler.Assemble(models.DecisionGeneralKnowledge, text, nil)
	reply, fallback := s.reasoner.Send(ctx, req)
	return &models.TalkReply{
		SessionID: sessionID,
		Decision:  models.DecisionGeneralKnowledge,
		Reply:     reply,
		Fallback:  fallback,
	}
}

func (s *talkService) answerVisual(ctx context.Context, sessionID, text string) *models.TalkReply {
	entry := s.log.WithField("session_id", sessionID)

	ready, err := s.gate.IsReady(ctx, sessionID)
	if err != nil {
		entry.WithError(err).Warn("readiness check failed, treating as not ready")
	}
	if !ready {
		return notReady(sessionID)
	}

	pair, err := s.loadPair(ctx, sessionID)
	if err != nil {
		// gate says ready but the store disagrees
		entry.WithError(err).Warn("ready flag without a stored pair, resetting")
		if err := s.gate.MarkNotReady(context.WithoutCancel(ctx), sessionID); err != nil {
			entry.WithError(err).Error("failed to reset readiness")
		}
		return notReady(sessionID)
	}

	req, err := s.assembler.Assemble(models.DecisionVisualContext, text, pair)
	if err != nil {
		return notReady(sessionID)
	}

	reply, fallback := s.reasoner.Send(ctx, req)
	s.consume(ctx, sessionID)

	return &models.TalkReply{
		SessionID: sessionID,
		Decision:  models.DecisionVisualContext,
		Reply:     reply,
		Fallback:  fallback,
		Consumed:  true,
	}
}

func notReady(sessionID string) *models.TalkReply {
	return &models.TalkReply{
		SessionID: sessionID,
		Decision:  models.DecisionVisualContext,
		Reply:     NotReadyReply,
		NotReady:  true,
	}
}

func (s *talkService) loadPair(ctx context.Context, sessionID string) (*models.ImagePair, error) {
	prev, err := s.store.Get(ctx, sessionID, models.TagPrevious)
	if err != nil {
		return nil, err
	}
	cur, err := s.store.Get(ctx, sessionID, models.TagCurrent)
	if err != nil {
		return nil, err
	}
	p, _ := imageFrom(prev)
	c, _ := imageFrom(cur)
	return &models.ImagePair{Previous: p, Current: c}, nil
}

// consume resets the gate and purges the pair after the reasoning call returned.
// It runs detached from the caller so a cancelled request still invalidates the scene.
func (s *talkService) consume(ctx context.Context, sessionID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cleanupTimeout)
	defer cancel()

	entry := s.log.WithField("session_id", sessionID)

	if err := s.retry(ctx, func() error { return s.gate.MarkNotReady(ctx, sessionID) }); err != nil {
		entry.WithError(err).Error("failed to reset readiness after query")
	}
	if err := s.retry(ctx, func() error { return s.store.DeleteAll(ctx, sessionID) }); err != nil {
		entry.WithError(err).Error("failed to purge consumed images")
	}

	s.emit(ctx, sessionID, models.Event{Type: models.EventNotReady})
}

func (s *talkService) retry(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.cleanupTries))
	return err
}

func (s *talkService) deliver(ctx context.Context, query string, out *models.TalkReply, took time.Duration) {
	ctx = context.WithoutCancel(ctx)

	s.emit(ctx, out.SessionID, models.Event{Type: models.EventReply, Reply: out})

	s.log.WithFields(logrus.Fields{
		"session_id": out.SessionID,
		"decision":   out.Decision,
		"fallback":   out.Fallback,
		"not_ready":  out.NotReady,
		"took_ms":    took.Milliseconds(),
	}).Info("talk reply delivered")

	if s.logs == nil {
		return
	}
	if err := s.logs.Record(ctx, query, *out, took); err != nil {
		s.log.WithError(err).WithField("session_id", out.SessionID).Warn("failed to record talk log")
	}
}

func (s *talkService) emit(ctx context.Context, sessionID string, ev models.Event) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(context.WithoutCancel(ctx), sessionID, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"event":      ev.Type,
		}).Warn("failed to publish event")
	}
}
