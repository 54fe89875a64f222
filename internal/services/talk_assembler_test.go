package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
)

func TestAssembler_GeneralKnowledgeHasNoImages(t *testing.T) {
	a := NewAssembler()
	pair := &models.ImagePair{
		Previous: models.Image{Data: jpegA, MIMEType: "image/jpeg"},
		Current:  models.Image{Data: jpegB, MIMEType: "image/jpeg"},
	}

	req, err := a.Assemble(models.DecisionGeneralKnowledge, generalQuery, pair)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionGeneralKnowledge, req.Decision)
	assert.Empty(t, req.ImageParts())
	require.Len(t, req.Parts, 1)
	assert.Equal(t, generalQuery, req.Parts[0].Text)
	assert.NotContains(t, req.SystemInstruction, "end with")
}

func TestAssembler_VisualOrdersPreviousThenCurrent(t *testing.T) {
	a := NewAssembler()
	pair := &models.ImagePair{
		Previous: models.Image{Data: jpegA, MIMEType: "image/jpeg"},
		Current:  models.Image{Data: pngC, MIMEType: "image/png"},
	}

	req, err := a.Assemble(models.DecisionVisualContext, visualQuery, pair)
	require.NoError(t, err)

	kinds := make([]models.PartKind, 0, len(req.Parts))
	for _, p := range req.Parts {
		kinds = append(kinds, p.Kind)
	}
	assert.Equal(t, []models.PartKind{
		models.PartText, models.PartImage, models.PartText, models.PartImage, models.PartText,
	}, kinds)

	imgs := req.ImageParts()
	assert.Equal(t, models.TagPrevious, imgs[0].Tag)
	assert.Equal(t, jpegA, imgs[0].Data)
	assert.Equal(t, models.TagCurrent, imgs[1].Tag)
	assert.Equal(t, "image/png", imgs[1].MIMEType)
	assert.Equal(t, visualQuery, req.Parts[4].Text)

	for _, rule := range []string{"Never ask questions", "Never offer options", "1 to 3 short sentences", "warn about it first", "Next step:"} {
		assert.Contains(t, req.SystemInstruction, rule)
	}
}

func TestAssembler_VisualWithoutPair(t *testing.T) {
	a := NewAssembler()

	_, err := a.Assemble(models.DecisionVisualContext, visualQuery, nil)
	assert.ErrorIs(t, err, utils.ErrImagesNotReady)

	_, err = a.Assemble(models.DecisionVisualContext, visualQuery, &models.ImagePair{
		Previous: models.Image{Data: jpegA},
	})
	assert.ErrorIs(t, err, utils.ErrImagesNotReady)
}
