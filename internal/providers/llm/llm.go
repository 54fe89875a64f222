package llm

import (
	"context"
	"errors"

	"github.com/yoockh/sightline/internal/models"
)

// Provider sends one assembled request to a vision-language model and returns its reply text.
type Provider interface {
	Generate(ctx context.Context, req models.ReasoningRequest) (string, error)
	Close() error
}

var ErrEmptyReply = errors.New("reasoning response has no text part")
