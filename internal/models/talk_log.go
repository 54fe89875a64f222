package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TalkLog is one answered talk-mode query.
type TalkLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`

	Query    string   `bson:"query" json:"query"`
	Decision Decision `bson:"decision" json:"decision"`
	Reply    string   `bson:"reply" json:"reply"`
	Fallback bool     `bson:"fallback" json:"fallback"`
	Consumed bool     `bson:"consumed" json:"consumed"`
	NotReady bool     `bson:"not_ready" json:"not_ready"`

	ProcessingTimeMS int64     `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
