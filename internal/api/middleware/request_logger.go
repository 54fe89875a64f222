package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-Id"
	logFieldsKey    = "log_fields"
)

// AddLogFields attaches fields to the access log line of the current request.
func AddLogFields(c *gin.Context, f logrus.Fields) {
	cur, _ := c.Get(logFieldsKey)
	merged, _ := cur.(logrus.Fields)
	if merged == nil {
		merged = logrus.Fields{}
	}
	for k, v := range f {
		merged[k] = v
	}
	c.Set(logFieldsKey, merged)
}

// RequestLogger writes one line per request, tagged with the talk session or device it touched.
func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)
		c.Set("request_id", reqID)

		c.Next()

		status := c.Writer.Status()
		entry := l.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"remote":     c.ClientIP(),
		})
		if sid := subjectOf(c); sid != "" {
			entry = entry.WithField("session_id", sid)
		}
		if extra, ok := c.Get(logFieldsKey); ok {
			if f, ok := extra.(logrus.Fields); ok {
				entry = entry.WithFields(f)
			}
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		if c.IsWebsocket() {
			entry.Info("talk socket closed")
			return
		}
		entry.Log(levelFor(status), "request")
	}
}

// subjectOf prefers the talk session; emergency and device routes fall back to the device id.
func subjectOf(c *gin.Context) string {
	if sid := c.Param("session_id"); sid != "" {
		return sid
	}
	return c.Param("device_id")
}

func levelFor(status int) logrus.Level {
	switch {
	case status >= 500:
		return logrus.ErrorLevel
	case status >= 400:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}
