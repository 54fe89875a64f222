package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/sightline/internal/events"
	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/providers/notify"
	mongorepo "github.com/yoockh/sightline/internal/repositories/mongo"
	"github.com/yoockh/sightline/internal/utils"
)

const defaultEmergencyMessage = "Emergency button pressed"

type EmergencyService interface {
	Trigger(ctx context.Context, deviceID, message string, origin *models.GeoPoint) (*models.EmergencySession, error)
	AttachPhoto(ctx context.Context, emergencyID string, photo []byte, caption string) (*models.EmergencySession, error)
	Resolve(ctx context.Context, emergencyID string) (*models.EmergencySession, error)
	Get(ctx context.Context, emergencyID string) (*models.EmergencySession, error)
}

// DeviceLookup is the subset of DeviceService the relay needs.
type DeviceLookup interface {
	Get(ctx context.Context, deviceID string) (*models.Device, error)
}

type emergencyService struct {
	sessions mongorepo.EmergencyRepository
	devices  DeviceLookup           // optional
	relay    notify.Notifier        // optional
	contacts notify.ContactNotifier // optional
	pub      events.Publisher       // optional
	log      *logrus.Logger
}

func NewEmergencyService(
	sessions mongorepo.EmergencyRepository,
	devices DeviceLookup,
	relay notify.Notifier,
	contacts notify.ContactNotifier,
	pub events.Publisher,
	l *logrus.Logger,
) EmergencyService {
	if l == nil {
		l = logrus.New()
	}
	return &emergencyService{sessions: sessions, devices: devices, relay: relay, contacts: contacts, pub: pub, log: l}
}

func (s *emergencyService) Trigger(ctx context.Context, deviceID, message string, origin *models.GeoPoint) (*models.EmergencySession, error) {
	const op = "EmergencyService.Trigger"

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "device_id is required", nil)
	}
	if origin != nil && !origin.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "origin is out of range", nil)
	}
	if strings.TrimSpace(message) == "" {
		message = defaultEmergencyMessage
	}

	e := &models.EmergencySession{
		EmergencyID: uuid.NewString(),
		DeviceID:    deviceID,
		Message:     message,
		Status:      models.EmergencyActive,
		Origin:      origin,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, e); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create emergency session", err)
	}

	// relay failures are recorded on the session, never returned
	ctx = context.WithoutCancel(ctx)
	device := s.lookupDevice(ctx, deviceID)
	chatID := ""
	if device != nil {
		chatID = device.TelegramChatID
	}

	e.Relay = s.relayAlert(ctx, chatID, e, device)
	if err := s.sessions.SetRelay(ctx, e.EmergencyID, e.Relay); err != nil {
		s.log.WithError(err).WithField("emergency_id", e.EmergencyID).Warn("failed to store relay outcome")
	}

	if device != nil && len(device.EmergencyContacts) > 0 && s.contacts != nil {
		if err := s.contacts.NotifyContacts(ctx, deviceID, device.EmergencyContacts, message); err != nil {
			s.log.WithError(err).WithField("device_id", deviceID).Warn("failed to notify emergency contacts")
		}
	}

	if s.pub != nil {
		if err := s.pub.Publish(ctx, deviceID, models.Event{Type: models.EventEmergency, Text: message}); err != nil {
			s.log.WithError(err).WithField("device_id", deviceID).Warn("failed to publish emergency event")
		}
	}
	return e, nil
}

func (s *emergencyService) relayAlert(ctx context.Context, chatID string, e *models.EmergencySession, device *models.Device) models.EmergencyRelay {
	var out models.EmergencyRelay
	if s.relay == nil {
		out.LastError = "no relay configured"
		return out
	}

	who := e.DeviceID
	if device != nil && device.OwnerName != "" {
		who = device.OwnerName + " (" + e.DeviceID + ")"
	}
	text := fmt.Sprintf("EMERGENCY from %s: %s\nid: %s", who, e.Message, e.EmergencyID)

	if err := s.relay.SendText(ctx, chatID, text); err != nil {
		out.LastError = err.Error()
		s.log.WithError(err).WithField("emergency_id", e.EmergencyID).Warn("failed to relay alert")
	} else {
		out.AlertSent = true
	}

	if e.Origin != nil {
		if err := s.relay.SendLocation(ctx, chatID, e.Origin.Lat, e.Origin.Lng); err != nil {
			out.LastError = err.Error()
			s.log.WithError(err).WithField("emergency_id", e.EmergencyID).Warn("failed to relay location")
		} else {
			out.LocationSent = true
		}
	}
	return out
}

func (s *emergencyService) lookupDevice(ctx context.Context, deviceID string) *models.Device {
	if s.devices == nil {
		return nil
	}
	d, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		if !utils.IsCode(err, utils.CodeNotFound) {
			s.log.WithError(err).WithField("device_id", deviceID).Warn("device lookup failed")
		}
		return nil
	}
	return d
}

func (s *emergencyService) AttachPhoto(ctx context.Context, emergencyID string, photo []byte, caption string) (*models.EmergencySession, error) {
	const op = "EmergencyService.AttachPhoto"

	if len(photo) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "photo is required", nil)
	}
	switch http.DetectContentType(photo) {
	case "image/jpeg", "image/png":
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "photo must be JPEG or PNG", nil)
	}

	e, err := s.Get(ctx, emergencyID)
	if err != nil {
		return nil, err
	}
	if e.Status != models.EmergencyActive {
		return nil, utils.E(utils.CodeConflict, op, "emergency is already resolved", nil)
	}

	if err := s.sessions.IncPhotoCount(ctx, emergencyID); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count photo", err)
	}
	e.PhotoCount++

	if s.relay != nil {
		chatID := ""
		if d := s.lookupDevice(ctx, e.DeviceID); d != nil {
			chatID = d.TelegramChatID
		}
		if caption == "" {
			caption = fmt.Sprintf("Emergency %s photo #%d", e.EmergencyID, e.PhotoCount)
		}
		if err := s.relay.SendPhoto(context.WithoutCancel(ctx), chatID, photo, caption); err != nil {
			s.log.WithError(err).WithField("emergency_id", emergencyID).Warn("failed to relay photo")
		}
	}
	return e, nil
}

func (s *emergencyService) Resolve(ctx context.Context, emergencyID string) (*models.EmergencySession, error) {
	const op = "EmergencyService.Resolve"

	e, err := s.Get(ctx, emergencyID)
	if err != nil {
		return nil, err
	}
	if e.Status == models.EmergencyResolved {
		return e, nil
	}

	now := time.Now().UTC()
	if err := s.sessions.Resolve(ctx, emergencyID, now); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to resolve emergency", err)
	}
	e.Status = models.EmergencyResolved
	e.ResolvedAt = &now

	if s.relay != nil {
		chatID := ""
		if d := s.lookupDevice(ctx, e.DeviceID); d != nil {
			chatID = d.TelegramChatID
		}
		text := fmt.Sprintf("Emergency %s from %s resolved.", e.EmergencyID, e.DeviceID)
		if err := s.relay.SendText(context.WithoutCancel(ctx), chatID, text); err != nil {
			s.log.WithError(err).WithField("emergency_id", emergencyID).Warn("failed to relay resolution")
		}
	}
	return e, nil
}

func (s *emergencyService) Get(ctx context.Context, emergencyID string) (*models.EmergencySession, error) {
	const op = "EmergencyService.Get"

	if emergencyID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "emergency_id is required", nil)
	}
	e, err := s.sessions.GetByEmergencyID(ctx, emergencyID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "emergency not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get emergency", err)
	}
	return e, nil
}
