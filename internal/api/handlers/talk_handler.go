package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/sightline/internal/api/middleware"
	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/services"
	"github.com/yoockh/sightline/internal/utils"
)

type TalkHandler struct {
	svc services.TalkService
}

func NewTalkHandler(svc services.TalkService) *TalkHandler {
	return &TalkHandler{svc: svc}
}

// UploadImages accepts a multipart batch with both "previous" and "current".
func (h *TalkHandler) UploadImages(c *gin.Context) {
	const op = "TalkHandler.UploadImages"
	sessionID := sessionParam(c)

	prev, err := readFormFile(c, string(models.TagPrevious))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid multipart field 'previous'", err))
		return
	}
	cur, err := readFormFile(c, string(models.TagCurrent))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid multipart field 'current'", err))
		return
	}

	if err := h.svc.UploadBatch(c.Request.Context(), sessionID, models.UploadBatch{Previous: prev, Current: cur}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "status": "ready"})
}

// UploadImage accepts one raw image body for the :tag slot. This is the separate-frame route: a
// lone tag is stored and reported as awaiting_images until its partner arrives. Devices that send
// both frames at once use UploadImages, which rejects a batch missing either tag.
func (h *TalkHandler) UploadImage(c *gin.Context) {
	const op = "TalkHandler.UploadImage"
	sessionID := sessionParam(c)

	body, err := readImage(c.Request.Body)
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid image body", err))
		return
	}

	ready, err := h.svc.UploadImage(c.Request.Context(), sessionID, models.ImageTag(c.Param("tag")), body)
	if err != nil {
		writeError(c, err)
		return
	}
	status := "awaiting_images"
	if ready {
		status = "ready"
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "status": status})
}

func (h *TalkHandler) StartCapture(c *gin.Context) {
	sessionID := sessionParam(c)
	if err := h.svc.StartCapture(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "status": "awaiting_images"})
}

type QueryRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *TalkHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TalkHandler.Query", "invalid request body", err))
		return
	}

	out, err := h.svc.Query(c.Request.Context(), sessionParam(c), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.AddLogFields(c, logrus.Fields{
		"decision":  out.Decision,
		"consumed":  out.Consumed,
		"fallback":  out.Fallback,
		"not_ready": out.NotReady,
	})
	c.JSON(http.StatusOK, out)
}

func (h *TalkHandler) Status(c *gin.Context) {
	sessionID := sessionParam(c)
	ready, err := h.svc.IsReady(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "ready": ready})
}
