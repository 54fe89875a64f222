package stt

import (
	"context"
	"errors"
	"strings"
)

// Provider turns a spoken talk-mode query into text.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}

var ErrNoSpeech = errors.New("no speech recognized")

// NormalizeLanguage maps short codes to BCP-47 tags; empty means en-US.
func NormalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "", "en", "en-US":
		return "en-US"
	case "hi", "hi-IN":
		return "hi-IN"
	case "id", "id-ID":
		return "id-ID"
	default:
		return v
	}
}
