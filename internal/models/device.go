package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type Device struct {
	DeviceID  string `gorm:"column:device_id;type:text;primaryKey" json:"device_id"`
	OwnerName string `gorm:"column:owner_name;type:text" json:"owner_name"`

	// Telegram chat for this device's alerts; empty means the default relay chat.
	TelegramChatID string `gorm:"column:telegram_chat_id;type:text" json:"telegram_chat_id"`

	EmergencyContacts pq.StringArray `gorm:"column:emergency_contacts;type:text[]" json:"emergency_contacts"`

	// free-form device info (firmware, camera model, ...)
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`

	LastSeenAt *time.Time `gorm:"column:last_seen_at;type:timestamptz" json:"last_seen_at,omitempty"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Device) TableName() string { return "devices" }

type LocationPing struct {
	ID         string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DeviceID   string    `gorm:"column:device_id;type:text;index" json:"device_id"`
	Lat        float64   `gorm:"column:lat;type:double precision" json:"lat"`
	Lng        float64   `gorm:"column:lng;type:double precision" json:"lng"`
	AccuracyM  float64   `gorm:"column:accuracy_m;type:double precision" json:"accuracy_m,omitempty"`
	RecordedAt time.Time `gorm:"column:recorded_at;type:timestamptz;index" json:"recorded_at"`
}

func (LocationPing) TableName() string { return "location_pings" }
