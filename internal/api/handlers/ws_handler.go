package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/sightline/internal/events"
	"github.com/yoockh/sightline/internal/services"
	"github.com/yoockh/sightline/internal/utils"
	"github.com/yoockh/sightline/internal/workers"
)

// WSHandler is the live talk channel of a device or client: commands in, session events out.
type WSHandler struct {
	talk        services.TalkService
	redis       *redis.Client
	voiceStream string
	log         *logrus.Logger
	upgrader    websocket.Upgrader
}

func NewWSHandler(talk services.TalkService, rdb *redis.Client, voiceStream string, l *logrus.Logger) *WSHandler {
	if l == nil {
		l = logrus.New()
	}
	return &WSHandler{
		talk:        talk,
		redis:       rdb,
		voiceStream: voiceStream,
		log:         l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // devices connect without an Origin
		},
	}
}

type wsClientMsg struct {
	Type string `json:"type"`

	// query
	Text string `json:"text"`

	// audio_query
	AudioBase64 string `json:"audio_base64"`
	AudioURL    string `json:"audio_url"`
	Language    string `json:"language"`

	// talk:start -> no fields
}

type wsErrorMsg struct {
	Type    string     `json:"type"`
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeError(code utils.Code, msg string) {
	b, _ := json.Marshal(wsErrorMsg{Type: "error", Code: code, Message: msg})
	_ = w.writeText(b)
}

func (w *wsConn) writeAppError(err error) {
	w.writeError(utils.Public(err))
}

func (h *WSHandler) TalkWS(c *gin.Context) {
	sessionID, err := services.SessionKey(c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.log.WithField("session_id", sessionID)

	// Subscribe Redis -> WS
	pubsub := h.redis.Subscribe(ctx, events.Channel(sessionID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		log.WithError(err).Warn("event subscription failed")
		return
	}

	// reader: WS -> TalkService / voice stream
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				wc.writeError(utils.CodeInvalidArgument, "invalid json")
				continue
			}

			switch msg.Type {
			case "talk:start":
				if err := h.talk.StartCapture(ctx, sessionID); err != nil {
					wc.writeAppError(err)
				}

			case "query":
				// the reply arrives through the event channel
				if _, err := h.talk.Query(ctx, sessionID, msg.Text); err != nil {
					wc.writeAppError(err)
				}

			case "audio_query":
				_, err := workers.EnqueueVoiceQuery(ctx, h.redis, h.voiceStream, workers.VoiceQuery{
					SessionID:   sessionID,
					Language:    msg.Language,
					AudioBase64: msg.AudioBase64,
					AudioURL:    msg.AudioURL,
				})
				if err != nil {
					wc.writeError(utils.CodeInvalidArgument, "audio_base64 or audio_url required")
				}

			default:
				wc.writeError(utils.CodeInvalidArgument, "unknown message type")
			}
		}
	}()

	// writer: Redis Pub/Sub -> WS, payloads are JSON events
	ch := pubsub.Channel()
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			wc.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			wc.mu.Unlock()
			if err != nil {
				return
			}
		case m, ok := <-ch:
			if !ok {
				return
			}
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
