package postgres

import (
	"context"

	"github.com/yoockh/sightline/internal/models"
	"gorm.io/gorm"
)

type LocationRepository interface {
	Insert(ctx context.Context, p *models.LocationPing) error
	LatestByDevice(ctx context.Context, deviceID string, limit int) ([]models.LocationPing, error)
}

type locationRepo struct {
	db *gorm.DB
}

func NewLocationRepo(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) Insert(ctx context.Context, p *models.LocationPing) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *locationRepo) LatestByDevice(ctx context.Context, deviceID string, limit int) ([]models.LocationPing, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.LocationPing
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
