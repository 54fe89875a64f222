package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/sightline/config"
	"github.com/yoockh/sightline/internal/api/handlers"
	"github.com/yoockh/sightline/internal/api/middleware"
	"github.com/yoockh/sightline/internal/api/routes"
	"github.com/yoockh/sightline/internal/cache"
	"github.com/yoockh/sightline/internal/events"
	"github.com/yoockh/sightline/internal/logger"
	"github.com/yoockh/sightline/internal/providers/llm"
	"github.com/yoockh/sightline/internal/providers/notify"
	"github.com/yoockh/sightline/internal/providers/stt"
	mongorepo "github.com/yoockh/sightline/internal/repositories/mongo"
	pgrepo "github.com/yoockh/sightline/internal/repositories/postgres"
	"github.com/yoockh/sightline/internal/services"
	"github.com/yoockh/sightline/internal/storage"
	"github.com/yoockh/sightline/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init Redis
	if err := config.InitRedis(cfg.Redis); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	log.Info("Redis connected")
	rdb := config.RedisClient
	pub := events.NewRedisPublisher(rdb)

	store, closeStore, err := newLandingStore(ctx, cfg.Landing)
	if err != nil {
		log.Fatalf("landing store init error: %v", err)
	}
	defer closeStore()

	provider, err := newReasoner(ctx, cfg.Reasoner)
	if err != nil {
		log.Fatalf("reasoner init error: %v", err)
	}
	defer provider.Close()

	classifier, err := services.NewClassifier(cfg.Talk.Classifier)
	if err != nil {
		log.Fatalf("classifier error: %v", err)
	}

	deps := routes.Deps{}

	// Init MongoDB (optional): interaction log + emergency sessions
	var talkLogs services.TalkLogService
	var emergencies mongorepo.EmergencyRepository
	if cfg.Mongo.URI != "" {
		if err := config.InitMongo(cfg.Mongo); err != nil {
			log.Fatalf("MongoDB init error: %v", err)
		}
		if err := config.EnsureMongoIndexes(); err != nil {
			log.WithError(err).Warn("failed to ensure mongo indexes")
		}
		log.Info("MongoDB connected")
		talkLogs = services.NewTalkLogService(mongorepo.NewTalkLogRepo(config.MongoDB), cfg.Talk.LogTTL)
		emergencies = mongorepo.NewEmergencyRepo(config.MongoDB)
	}

	// Init PostgreSQL (optional): device registry + location log
	var devices services.DeviceService
	if cfg.Postgres.URI != "" {
		if err := config.InitPostgres(cfg.Postgres); err != nil {
			log.Fatalf("PostgreSQL init error: %v", err)
		}
		log.Info("PostgreSQL connected")
		devices = services.NewDeviceService(pgrepo.NewDeviceRepo(config.PostgresDB), pgrepo.NewLocationRepo(config.PostgresDB))
		deps.Device = handlers.NewDeviceHandler(devices)
	}

	talk := services.NewTalkService(services.TalkDeps{
		Store:          store,
		Gate:           services.NewReadinessGate(newGateCache(rdb, cfg), cfg.Talk.ReadyTTL),
		Classifier:     classifier,
		Reasoner:       llm.NewGateway(provider, cfg.Reasoner.Timeout, log),
		Publisher:      pub,
		Logs:           talkLogs,
		Log:            log,
		CleanupTimeout: cfg.Talk.CleanupTimeout,
	})
	deps.Talk = handlers.NewTalkHandler(talk)
	deps.WS = handlers.NewWSHandler(talk, rdb, cfg.Voice.Stream, log)

	if emergencies != nil {
		var relay notify.Notifier
		if cfg.Telegram.Token != "" {
			tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.APIURL)
			if err != nil {
				log.Fatalf("telegram init error: %v", err)
			}
			relay = tg
		} else {
			log.Warn("TELEGRAM_BOT_TOKEN not set, emergency relay disabled")
		}
		var lookup services.DeviceLookup
		if devices != nil {
			lookup = devices
		}
		em := services.NewEmergencyService(emergencies, lookup, relay, notify.NewLogContactNotifier(log), pub, log)
		deps.Emergency = handlers.NewEmergencyHandler(em)
	}

	if cfg.Voice.Enabled {
		speech, err := stt.NewGoogleSpeech(ctx, stt.SpeechOptions{
			SampleRateHz:  cfg.Voice.SampleRateHz,
			Phrases:       stt.ScenePhrases,
			MinConfidence: cfg.Voice.MinConfidence,
		})
		if err != nil {
			log.Fatalf("speech init error: %v", err)
		}
		defer speech.Close()

		pool := &workers.VoiceWorkerPool{
			Redis:      rdb,
			Talk:       talk,
			Events:     pub,
			NumWorkers: cfg.Voice.Workers,
			STT:        speech,
			Logger:     log,
			Stream:     cfg.Voice.Stream,
		}
		if err := pool.Start(ctx); err != nil {
			log.Fatalf("voice workers error: %v", err)
		}
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
	if config.MongoClient != nil {
		_ = config.MongoClient.Disconnect(shutdownCtx)
	}
	_ = rdb.Close()
}

func newLandingStore(ctx context.Context, c config.LandingConfig) (storage.LandingStore, func(), error) {
	if c.Store == "gcs" {
		s, err := storage.NewGCSStore(ctx, c.GCSBucket)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	s, err := storage.NewDiskStore(c.Dir)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}

// newGateCache keeps readiness in Redis unless the deployment is a single instance.
func newGateCache(rdb *redis.Client, cfg *config.AppConfig) cache.Cache {
	if cfg.Talk.Gate == "memory" {
		return cache.NewMemoryCache(cfg.Talk.ReadyTTL)
	}
	return cache.NewRedisCache(rdb, cfg.Redis.KeyPrefix)
}

func newReasoner(ctx context.Context, c config.ReasonerConfig) (llm.Provider, error) {
	if c.Kind == "vertex" {
		return llm.NewVertexGemini(ctx, c.VertexProject, c.VertexLocation, c.VertexModel)
	}
	return llm.NewGeminiAPI(c.GeminiAPIKey, c.GeminiBaseURL, c.GeminiModel)
}
