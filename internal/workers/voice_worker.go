package workers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/sightline/internal/events"
	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/providers/stt"
	"github.com/yoockh/sightline/internal/services"
)

const DefaultVoiceStream = "talk:voice"

// VoiceQuery is one spoken talk-mode query waiting for transcription.
type VoiceQuery struct {
	SessionID   string
	Language    string
	AudioBase64 string
	AudioURL    string
}

// EnqueueVoiceQuery appends q to the stream consumed by VoiceWorkerPool.
func EnqueueVoiceQuery(ctx context.Context, rdb *redis.Client, stream string, q VoiceQuery) (string, error) {
	if q.AudioBase64 == "" && q.AudioURL == "" {
		return "", errors.New("audio_base64 or audio_url is required")
	}
	if stream == "" {
		stream = DefaultVoiceStream
	}
	return rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]any{
			"session_id":   q.SessionID,
			"language":     q.Language,
			"audio_base64": q.AudioBase64,
			"audio_url":    q.AudioURL,
		},
	}).Result()
}

type VoiceWorkerPool struct {
	Redis      *redis.Client
	Talk       services.TalkService
	Events     events.Publisher
	NumWorkers int

	STT stt.Provider

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	HTTPClient *http.Client
}

func (p *VoiceWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Talk == nil || p.STT == nil || p.Events == nil {
		return errors.New("VoiceWorkerPool missing dependency: Redis/Talk/STT/Events must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultVoiceStream
	}
	if p.Group == "" {
		p.Group = "voice-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.HTTPClient == nil {
		p.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *VoiceWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *VoiceWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	sessionID := getStr("session_id")
	if sessionID == "" {
		sessionID = models.DefaultSessionID
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": sessionID,
	})

	audio, err := p.fetchAudio(ctx, getStr("audio_base64"), getStr("audio_url"))
	if err != nil {
		log.WithError(err).Warn("voice query dropped")
		return
	}

	text, conf, err := p.STT.Transcribe(ctx, audio, stt.NormalizeLanguage(getStr("language")))
	if err != nil {
		// no usable question; the user simply asks again
		log.WithError(err).Warn("transcription failed")
		return
	}
	log.WithField("confidence", conf).Debug("voice query transcribed")

	if err := p.Events.Publish(ctx, sessionID, models.Event{Type: models.EventTranscript, Text: text}); err != nil {
		log.WithError(err).Warn("failed to publish transcript")
	}

	// Query emits the reply event itself
	if _, err := p.Talk.Query(ctx, sessionID, text); err != nil {
		log.WithError(err).Warn("voice query failed")
	}
}

func (p *VoiceWorkerPool) fetchAudio(ctx context.Context, b64, url string) ([]byte, error) {
	if b64 != "" {
		return decodeAudio(b64)
	}
	if url == "" {
		return nil, errors.New("message carries no audio")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio_url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch audio_url: status %d", resp.StatusCode)
	}

	const maxBytes = 10 << 20
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if len(body) == 0 {
		return nil, errors.New("empty audio")
	}
	return body, nil
}

// decodeAudio accepts raw base64 or a data URL.
func decodeAudio(b64 string) ([]byte, error) {
	raw := b64
	if i := strings.Index(raw, ","); i >= 0 {
		raw = raw[i+1:] // strip data:...;base64,
	}
	out, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid audio_base64: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("empty audio")
	}
	return out, nil
}
