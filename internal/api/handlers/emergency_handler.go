package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/services"
	"github.com/yoockh/sightline/internal/utils"
)

type EmergencyHandler struct {
	svc services.EmergencyService
}

func NewEmergencyHandler(svc services.EmergencyService) *EmergencyHandler {
	return &EmergencyHandler{svc: svc}
}

type AlertRequest struct {
	DeviceID string   `json:"device_id" binding:"required"`
	Message  string   `json:"message"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

func (h *EmergencyHandler) Alert(c *gin.Context) {
	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "EmergencyHandler.Alert", "invalid request body", err))
		return
	}

	var origin *models.GeoPoint
	if req.Lat != nil && req.Lng != nil {
		origin = &models.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	}

	e, err := h.svc.Trigger(c.Request.Context(), req.DeviceID, req.Message, origin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// Photo takes multipart field "photo" and an optional "caption".
func (h *EmergencyHandler) Photo(c *gin.Context) {
	const op = "EmergencyHandler.Photo"

	photo, err := readFormFile(c, "photo")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid multipart field 'photo'", err))
		return
	}
	if photo == nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'photo'", nil))
		return
	}

	e, err := h.svc.AttachPhoto(c.Request.Context(), c.Param("id"), photo, c.PostForm("caption"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *EmergencyHandler) Resolve(c *gin.Context) {
	e, err := h.svc.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *EmergencyHandler) Get(c *gin.Context) {
	e, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
