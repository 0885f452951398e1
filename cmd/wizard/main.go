package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"exhibitforms/internal/authclient"
	"exhibitforms/internal/config"
	"exhibitforms/internal/flowtoken"
	"exhibitforms/internal/handoff"
	"exhibitforms/internal/roomclient"
	"exhibitforms/internal/server"
	"exhibitforms/internal/store"
	"exhibitforms/internal/timeclient"
	"exhibitforms/internal/util"
	"exhibitforms/pkg/storage"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	handoffTTL, err := config.ParseHandoffTTL(cfg.HandoffTTL)
	if err != nil {
		log.Fatalf("failed to parse handoff TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}

	var submissions store.Store
	if cfg.DatabaseURL != "" {
		submissions, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init submission store: %v", err)
		}
	} else {
		slog.Warn("no databaseURL configured, submission audit is in-memory only")
		submissions = store.NewMemoryStore()
	}

	httpServer, err := server.New(server.Config{
		Objects:                  objects,
		Bucket:                   objects.Bucket(),
		Handoffs:                 handoff.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, handoffTTL),
		Times:                    timeclient.NewClient(cfg.TimeServiceURL),
		Rooms:                    roomclient.NewClient(cfg.RoomServiceURL),
		Auth:                     authclient.NewClient(cfg.AuthServiceURL),
		Submissions:              submissions,
		FlowTokens:               flowtoken.New([]byte(cfg.FlowTokenSecret), handoffTTL),
		StorageRoot:              cfg.StorageRoot,
		GeneratorType:            cfg.GeneratorType,
		RoomGeneratorID:          cfg.RoomGeneratorID,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		FlowRateLimitPerMinute:   cfg.FlowRateLimitPerMinute,
		UploadRateLimitPerMinute: cfg.UploadRateLimitPerMinute,
		MaxUploadBytes:           cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("wizard listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
