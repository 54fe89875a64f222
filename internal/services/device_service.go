package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/sightline/internal/models"
	pgrepo "github.com/yoockh/sightline/internal/repositories/postgres"
	"github.com/yoockh/sightline/internal/utils"
)

type DeviceService interface {
	Upsert(ctx context.Context, d *models.Device) (*models.Device, error)
	Get(ctx context.Context, deviceID string) (*models.Device, error)
	RecordLocation(ctx context.Context, deviceID string, lat, lng, accuracyM float64) (*models.LocationPing, error)
	ListLocations(ctx context.Context, deviceID string, limit int) ([]models.LocationPing, error)
}

type deviceService struct {
	devices   pgrepo.DeviceRepository
	locations pgrepo.LocationRepository
}

func NewDeviceService(devices pgrepo.DeviceRepository, locations pgrepo.LocationRepository) DeviceService {
	return &deviceService{devices: devices, locations: locations}
}

func (s *deviceService) Upsert(ctx context.Context, d *models.Device) (*models.Device, error) {
	const op = "DeviceService.Upsert"

	if d == nil || strings.TrimSpace(d.DeviceID) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "device_id is required", nil)
	}
	d.DeviceID = strings.TrimSpace(d.DeviceID)
	d.UpdatedAt = time.Now().UTC()

	contacts := d.EmergencyContacts[:0]
	for _, c := range d.EmergencyContacts {
		if c = strings.TrimSpace(c); c != "" {
			contacts = append(contacts, c)
		}
	}
	d.EmergencyContacts = contacts

	if err := s.devices.Upsert(ctx, d); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to upsert device", err)
	}
	return d, nil
}

func (s *deviceService) Get(ctx context.Context, deviceID string) (*models.Device, error) {
	const op = "DeviceService.Get"

	if deviceID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "device_id is required", nil)
	}
	d, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "device not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get device", err)
	}
	return d, nil
}

func (s *deviceService) RecordLocation(ctx context.Context, deviceID string, lat, lng, accuracyM float64) (*models.LocationPing, error) {
	const op = "DeviceService.RecordLocation"

	if deviceID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "device_id is required", nil)
	}
	if !(models.GeoPoint{Lat: lat, Lng: lng}).Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "lat must be within [-90,90] and lng within [-180,180]", nil)
	}
	if accuracyM < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "accuracy_m must be >= 0", nil)
	}

	now := time.Now().UTC()
	p := &models.LocationPing{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		Lat:        lat,
		Lng:        lng,
		AccuracyM:  accuracyM,
		RecordedAt: now,
	}
	if err := s.locations.Insert(ctx, p); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to record location", err)
	}
	// unknown devices have no row to touch; that is not an error
	_ = s.devices.Touch(ctx, deviceID, now)
	return p, nil
}

func (s *deviceService) ListLocations(ctx context.Context, deviceID string, limit int) ([]models.LocationPing, error) {
	const op = "DeviceService.ListLocations"

	if deviceID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "device_id is required", nil)
	}
	out, err := s.locations.LatestByDevice(ctx, deviceID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list locations", err)
	}
	return out, nil
}
