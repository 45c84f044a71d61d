package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conhub/config"
	"conhub/handlers"
	"conhub/services"
	"conhub/utils/logger"
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Configure(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	if cfg.Seed {
		logger.Warn().Msg("SEED is set but this server does not seed data; ignoring")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := services.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to data stores")
	}
	defer store.Close(context.Background())

	// Initialize services
	cache := store.Cache()
	cols := store.Collections
	ttl := cfg.Redis.CacheTTL

	userService := services.NewUserService(cols, cache, ttl)
	if err := userService.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create indexes")
	}
	postService := services.NewPostService(cols, cache, ttl)
	commentService := services.NewCommentService(cols, postService)
	conventionService := services.NewConventionService(cols, cache, ttl)
	paymentService := services.NewPaymentService(cols, cache)

	var converter services.ImageConverter = services.MoveConverter{}
	if cfg.Images.ConvertCmd != "" {
		converter, err = services.NewCommandConverter(cfg.Images.ConvertCmd)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid image convert command")
		}
	}
	imageService, err := services.NewImageService(cols, cache, cfg.Images.Dir, converter)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to prepare image storage")
	}

	sessions := services.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL)
	secure := cfg.Session.SecureCookie

	// Initialize handlers and routes
	router := handlers.NewRouter(handlers.Handlers{
		Auth:        handlers.NewAuthHandler(userService, sessions, secure),
		Users:       handlers.NewUserHandler(userService, postService, secure),
		Posts:       handlers.NewPostHandler(postService),
		Comments:    handlers.NewCommentHandler(commentService),
		Conventions: handlers.NewConventionHandler(conventionService),
		Payment:     handlers.NewPaymentHandler(paymentService),
		Images:      handlers.NewImageHandler(imageService),
	}, sessions, cfg.Origins())

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
