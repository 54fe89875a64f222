package storage

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/yoockh/sightline/internal/models"
)

// LandingStore keeps the most recent upload per image tag and session.
// Get returns utils.ErrNotFound for an absent image; DeleteAll ignores absent images.
type LandingStore interface {
	Put(ctx context.Context, sessionID string, tag models.ImageTag, data []byte) error
	Get(ctx context.Context, sessionID string, tag models.ImageTag) ([]byte, error)
	DeleteAll(ctx context.Context, sessionID string) error
}

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SafeSegment maps a session id to a single path/object-name segment.
func SafeSegment(sessionID string) string {
	s := unsafeSegment.ReplaceAllString(sessionID, "_")
	if s == "" {
		return models.DefaultSessionID
	}
	return s
}

func objectName(sessionID string, tag models.ImageTag) string {
	return "talk/" + SafeSegment(sessionID) + "/" + string(tag) + ".jpg"
}

// contentType is the sniffed image type of data, so a PNG frame is not served as JPEG.
func contentType(data []byte) string {
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "application/octet-stream"
}
