package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/services"
	"github.com/yoockh/sightline/internal/utils"
)

type DeviceHandler struct {
	svc services.DeviceService
}

func NewDeviceHandler(svc services.DeviceService) *DeviceHandler {
	return &DeviceHandler{svc: svc}
}

type UpsertDeviceRequest struct {
	OwnerName         string   `json:"owner_name"`
	TelegramChatID    string   `json:"telegram_chat_id"`
	EmergencyContacts []string `json:"emergency_contacts"`

	// JSONB (raw)
	Metadata *json.RawMessage `json:"metadata,omitempty"`
}

func (h *DeviceHandler) Upsert(c *gin.Context) {
	var req UpsertDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "DeviceHandler.Upsert", "invalid request body", err))
		return
	}

	d := &models.Device{
		DeviceID:          c.Param("device_id"),
		OwnerName:         req.OwnerName,
		TelegramChatID:    req.TelegramChatID,
		EmergencyContacts: req.EmergencyContacts,
	}
	if req.Metadata != nil {
		d.Metadata = datatypes.JSON(*req.Metadata)
	}

	out, err := h.svc.Upsert(c.Request.Context(), d)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *DeviceHandler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type LocationRequest struct {
	Lat       *float64 `json:"lat" binding:"required"`
	Lng       *float64 `json:"lng" binding:"required"`
	AccuracyM float64  `json:"accuracy_m"`
}

func (h *DeviceHandler) RecordLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "DeviceHandler.RecordLocation", "lat and lng are required", err))
		return
	}

	p, err := h.svc.RecordLocation(c.Request.Context(), c.Param("device_id"), *req.Lat, *req.Lng, req.AccuracyM)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *DeviceHandler) ListLocations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	out, err := h.svc.ListLocations(c.Request.Context(), c.Param("device_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"device_id": c.Param("device_id"), "locations": out})
}
