package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EmergencyRepository interface {
	Create(ctx context.Context, e *models.EmergencySession) error
	GetByEmergencyID(ctx context.Context, emergencyID string) (*models.EmergencySession, error)
	LatestActiveByDevice(ctx context.Context, deviceID string) (*models.EmergencySession, error)
	SetRelay(ctx context.Context, emergencyID string, relay models.EmergencyRelay) error
	IncPhotoCount(ctx context.Context, emergencyID string) error
	Resolve(ctx context.Context, emergencyID string, resolvedAt time.Time) error
}

type emergencyRepo struct {
	col *mongo.Collection
}

func NewEmergencyRepo(db *mongo.Database) EmergencyRepository {
	return &emergencyRepo{col: db.Collection("emergency_sessions")}
}

func (r *emergencyRepo) Create(ctx context.Context, e *models.EmergencySession) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, e)
	return err
}

func (r *emergencyRepo) GetByEmergencyID(ctx context.Context, emergencyID string) (*models.EmergencySession, error) {
	var e models.EmergencySession
	err := r.col.FindOne(ctx, bson.M{"emergency_id": emergencyID}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &e, err
}

func (r *emergencyRepo) LatestActiveByDevice(ctx context.Context, deviceID string) (*models.EmergencySession, error) {
	var e models.EmergencySession
	err := r.col.FindOne(ctx,
		bson.M{"device_id": deviceID, "status": models.EmergencyActive},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &e, err
}

func (r *emergencyRepo) SetRelay(ctx context.Context, emergencyID string, relay models.EmergencyRelay) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"emergency_id": emergencyID},
		bson.M{"$set": bson.M{"relay": relay}},
	)
	return err
}

func (r *emergencyRepo) IncPhotoCount(ctx context.Context, emergencyID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"emergency_id": emergencyID},
		bson.M{"$inc": bson.M{"photo_count": 1}},
	)
	return err
}

func (r *emergencyRepo) Resolve(ctx context.Context, emergencyID string, resolvedAt time.Time) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"emergency_id": emergencyID},
		bson.M{"$set": bson.M{
			"status":      models.EmergencyResolved,
			"resolved_at": resolvedAt.UTC(),
		}},
	)
	return err
}
