package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EmergencyActive   = "active"
	EmergencyResolved = "resolved"
)

type EmergencySession struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EmergencyID string             `bson:"emergency_id" json:"emergency_id"` // uuid v4
	DeviceID    string             `bson:"device_id" json:"device_id"`

	Message string         `bson:"message" json:"message"`
	Status  string         `bson:"status" json:"status"` // active|resolved
	Origin  *GeoPoint      `bson:"origin,omitempty" json:"origin,omitempty"`
	Relay   EmergencyRelay `bson:"relay" json:"relay"`

	PhotoCount int `bson:"photo_count" json:"photo_count"`

	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// EmergencyRelay records what reached the notification channel.
type EmergencyRelay struct {
	AlertSent    bool   `bson:"alert_sent" json:"alert_sent"`
	LocationSent bool   `bson:"location_sent" json:"location_sent"`
	LastError    string `bson:"last_error,omitempty" json:"last_error,omitempty"`
}

type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
