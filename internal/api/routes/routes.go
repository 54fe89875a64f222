package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yoockh/sightline/internal/api/handlers"
)

type Deps struct {
	Talk      *handlers.TalkHandler
	WS        *handlers.WSHandler
	Emergency *handlers.EmergencyHandler // optional
	Device    *handlers.DeviceHandler    // optional
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	talk := r.Group("/talk/:session_id")
	talk.POST("/images", d.Talk.UploadImages)
	talk.PUT("/images/:tag", d.Talk.UploadImage)
	talk.POST("/capture", d.Talk.StartCapture)
	talk.POST("/query", d.Talk.Query)
	talk.GET("/status", d.Talk.Status)

	// WebSocket
	if d.WS != nil {
		r.GET("/ws/talk/:session_id", d.WS.TalkWS)
	}

	if d.Emergency != nil {
		em := r.Group("/emergency")
		em.POST("/alert", d.Emergency.Alert)
		em.POST("/:id/photo", d.Emergency.Photo)
		em.POST("/:id/resolve", d.Emergency.Resolve)
		em.GET("/:id", d.Emergency.Get)
	}

	if d.Device != nil {
		dev := r.Group("/devices/:device_id")
		dev.PUT("", d.Device.Upsert)
		dev.GET("", d.Device.Get)
		dev.POST("/location", d.Device.RecordLocation)
		dev.GET("/locations", d.Device.ListLocations)
	}
}
