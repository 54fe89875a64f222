package llm

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"

	"github.com/yoockh/sightline/internal/models"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &VertexGemini{client: c, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Generate(ctx context.Context, req models.ReasoningRequest) (string, error) {
	// a model per call: SystemInstruction differs by branch and the model value is not safe to mutate concurrently
	m := v.client.GenerativeModel(v.modelName)
	if req.SystemInstruction != "" {
		m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(req.SystemInstruction)}}
	}

	resp, err := m.GenerateContent(ctx, toVertexParts(req)...)
	if err != nil {
		return "", err
	}
	return firstVertexText(resp)
}

func toVertexParts(req models.ReasoningRequest) []vertexgenai.Part {
	parts := make([]vertexgenai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		switch p.Kind {
		case models.PartImage:
			mime := p.MIMEType
			if mime == "" {
				mime = "image/jpeg"
			}
			parts = append(parts, vertexgenai.Blob{MIMEType: mime, Data: p.Data})
		default:
			parts = append(parts, vertexgenai.Text(p.Text))
		}
	}
	return parts
}

func firstVertexText(resp *vertexgenai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyReply
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", ErrEmptyReply
	}
	for _, part := range cand.Content.Parts {
		if t, ok := part.(vertexgenai.Text); ok && strings.TrimSpace(string(t)) != "" {
			return string(t), nil
		}
	}
	return "", ErrEmptyReply
}
