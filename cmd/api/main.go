package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"showcase/api/internal/app"
	"showcase/api/internal/authpw"
	"showcase/api/internal/changefeed"
	"showcase/api/internal/config"
	"showcase/api/internal/export"
	"showcase/api/internal/gateway"
	"showcase/api/internal/gitrepo"
	"showcase/api/internal/identity"
	"showcase/api/internal/logging"
	"showcase/api/internal/media"
	"showcase/api/internal/project"
	"showcase/api/internal/remote"
	"showcase/api/internal/search"
	"showcase/api/internal/session"
	"showcase/api/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, _, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
		logger.Fatal("failed to create history dir", zap.Error(err))
	}

	dataStore := store.NewPostgresStore(db)

	var (
		sessions identity.SessionStore = dataStore
		feed     changefeed.Feed       = changefeed.NewPostgres(db, cfg.DatabaseURL)
	)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for sessions and change signals")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisStore.Close()
		sessions = redisStore
		feed = changefeed.NewRedis(redisStore.Client())
	} else {
		logger.Info("using postgresql for sessions and change signals")
	}

	provider := identity.NewProvider(sessions, identity.Options{
		SessionSecret:   cfg.SessionSecret,
		BootstrapSecret: cfg.BootstrapSecret,
		TTL:             cfg.SessionTTL,
	})

	gw := gateway.New(gateway.Client{
		Identity:   provider,
		Documents:  remote.NewClient(dataStore, feed, logger),
		Collection: cfg.Collection,
		Logger:     logger,
	})
	gw.Connect(ctx, cfg.InitialAuthToken)
	defer gw.Close()

	static, err := project.LoadSeed(cfg.SeedPath)
	if err != nil {
		logger.Fatal("load seed", zap.Error(err))
	}
	catalog, err := gateway.OpenCatalog(ctx, gw, static, logger)
	if err != nil {
		logger.Fatal("open catalog", zap.Error(err))
	}
	defer catalog.Close()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	}
	searchService := search.NewService(meiliClient, logger)
	defer searchService.Close()

	gate, err := authpw.NewGate(cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		logger.Fatal("admin password", zap.Error(err))
	}
	if gate.Placeholder() {
		logger.Warn("ADMIN_PASSWORD is not set; using the development password")
	}

	deps := app.Deps{
		Config:   cfg,
		Logger:   logger,
		DB:       dataStore,
		Identity: provider,
		Gate:     gate,
		Gateway:  gw,
		Catalog:  catalog,
		Search:   searchService,
		History:  gitrepo.New(cfg.HistoryDir),
		Export:   export.NewService("Showcase"),
	}
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		client, err := media.Dial(media.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			logger.Fatal("minio client", zap.Error(err))
		}
		deps.Media = media.NewService(client, cfg.MinioBucket, cfg.MinioPublicURL, logger)
	} else {
		logger.Info("MINIO_ENDPOINT not set; media uploads disabled")
	}

	service := app.New(deps)
	defer service.Close()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("showcase api listening", zap.String("addr", cfg.Addr), zap.String("collection", cfg.Collection))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
