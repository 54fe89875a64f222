package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
)

type memTalkLogRepo struct {
	docs []models.TalkLog
}

func (r *memTalkLogRepo) Insert(_ context.Context, l *models.TalkLog) error {
	r.docs = append(r.docs, *l)
	return nil
}

func (r *memTalkLogRepo) ListBySession(_ context.Context, sessionID string, _ int64) ([]models.TalkLog, error) {
	var out []models.TalkLog
	for _, d := range r.docs {
		if d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func TestTalkLog_RecordSetsExpiry(t *testing.T) {
	repo := &memTalkLogRepo{}
	svc := NewTalkLogService(repo, time.Hour)
	ctx := context.Background()

	reply := models.TalkReply{SessionID: "dev1", Decision: models.DecisionVisualContext, Reply: "ok", Consumed: true}
	require.NoError(t, svc.Record(ctx, visualQuery, reply, 1500*time.Millisecond))

	require.Len(t, repo.docs, 1)
	doc := repo.docs[0]
	assert.Equal(t, visualQuery, doc.Query)
	assert.Equal(t, int64(1500), doc.ProcessingTimeMS)
	assert.Equal(t, time.Hour, doc.ExpiresAt.Sub(doc.Timestamp))
	assert.True(t, doc.Consumed)

	got, err := svc.ListBySession(ctx, "dev1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	err = svc.Record(ctx, "q", models.TalkReply{}, 0)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
