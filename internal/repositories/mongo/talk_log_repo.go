package mongo

import (
	"context"
	"time"

	"github.com/yoockh/sightline/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TalkLogRepository interface {
	Insert(ctx context.Context, l *models.TalkLog) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.TalkLog, error)
}

type talkLogRepo struct {
	col *mongo.Collection
}

func NewTalkLogRepo(db *mongo.Database) TalkLogRepository {
	return &talkLogRepo{col: db.Collection("talk_logs")}
}

func (r *talkLogRepo) Insert(ctx context.Context, l *models.TalkLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, l)
	return err
}

// ListBySession returns newest first.
func (r *talkLogRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.TalkLog, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TalkLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
