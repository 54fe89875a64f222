package services

import (
	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
)

// Assembler builds reasoning requests. It does no I/O; the caller supplies the pair.
type Assembler struct {
	guide   string
	general string
}

func NewAssembler() *Assembler {
	return &Assembler{guide: guideInstruction, general: generalInstruction}
}

// Assemble returns utils.ErrImagesNotReady for a visual decision without a pair.
func (a *Assembler) Assemble(decision models.Decision, text string, pair *models.ImagePair) (models.ReasoningRequest, error) {
	if decision == models.DecisionGeneralKnowledge {
		return models.ReasoningRequest{
			Decision:          decision,
			SystemInstruction: a.general,
			Parts:             []models.ContentPart{models.TextPart(text)},
		}, nil
	}

	if pair == nil || len(pair.Previous.Data) == 0 || len(pair.Current.Data) == 0 {
		return models.ReasoningRequest{}, utils.ErrImagesNotReady
	}

	return models.ReasoningRequest{
		Decision:          models.DecisionVisualContext,
		SystemInstruction: a.guide,
		Parts: []models.ContentPart{
			models.TextPart(previousLabel),
			models.ImagePart(models.TagPrevious, pair.Previous),
			models.TextPart(currentLabel),
			models.ImagePart(models.TagCurrent, pair.Current),
			models.TextPart(text),
		},
	}, nil
}
