package services

import (
	"context"
	"time"

	"github.com/yoockh/sightline/internal/models"
	mongorepo "github.com/yoockh/sightline/internal/repositories/mongo"
	"github.com/yoockh/sightline/internal/utils"
)

type TalkLogService interface {
	Record(ctx context.Context, query string, reply models.TalkReply, took time.Duration) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.TalkLog, error)
}

type talkLogService struct {
	logs mongorepo.TalkLogRepository
	ttl  time.Duration
}

func NewTalkLogService(logs mongorepo.TalkLogRepository, ttl time.Duration) TalkLogService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &talkLogService{logs: logs, ttl: ttl}
}

func (s *talkLogService) Record(ctx context.Context, query string, reply models.TalkReply, took time.Duration) error {
	const op = "TalkLogService.Record"

	if reply.SessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	now := time.Now().UTC()
	doc := &models.TalkLog{
		SessionID: reply.SessionID,
		Query:     query,
		Decision:  reply.Decision,
		Reply:     reply.Reply,
		Fallback:  reply.Fallback,
		Consumed:  reply.Consumed,
		NotReady:  reply.NotReady,

		ProcessingTimeMS: took.Milliseconds(),
		Timestamp:        now,
		ExpiresAt:        now.Add(s.ttl),
	}
	if err := s.logs.Insert(ctx, doc); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to insert talk log", err)
	}
	return nil
}

func (s *talkLogService) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.TalkLog, error) {
	const op = "TalkLogService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	out, err := s.logs.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list talk logs", err)
	}
	return out, nil
}
