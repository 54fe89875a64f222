package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeviceRepository interface {
	GetByID(ctx context.Context, deviceID string) (*models.Device, error)
	Upsert(ctx context.Context, d *models.Device) error
	Touch(ctx context.Context, deviceID string, seenAt time.Time) error
}

type deviceRepo struct {
	db *gorm.DB
}

func NewDeviceRepo(db *gorm.DB) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) GetByID(ctx context.Context, deviceID string) (*models.Device, error) {
	var d models.Device
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &d, err
}

func (r *deviceRepo) Upsert(ctx context.Context, d *models.Device) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner_name", "telegram_chat_id", "emergency_contacts", "metadata", "updated_at"}),
		}).
		Create(d).Error
}

func (r *deviceRepo) Touch(ctx context.Context, deviceID string, seenAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("device_id = ?", deviceID).
		Update("last_seen_at", seenAt.UTC()).Error
}
