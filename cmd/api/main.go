package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"directchat/internal/adapter/api"
	"directchat/internal/adapter/api/handler"
	apimiddleware "directchat/internal/adapter/api/middleware"
	"directchat/internal/adapter/api/router"
	"directchat/internal/infrastructure/events"
	"directchat/internal/infrastructure/metrics"
	"directchat/internal/infrastructure/ratelimit"
	"directchat/internal/infrastructure/telemetry"
	"directchat/internal/infrastructure/websocket"
	"directchat/internal/usecase"
	"directchat/pkg/config"
	"directchat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Setup(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	store, err := newBackend(ctx, cfg)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to initialize storage backend")
	}
	defer store.Close()

	publisher := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()

	rateLimiter := ratelimit.NewRateLimiter(map[string]ratelimit.Limit{
		ratelimit.ActionSendMessage:        {PerMinute: cfg.SendRatePerMinute},
		ratelimit.ActionTyping:             {PerMinute: cfg.TypingRatePerMinute},
		ratelimit.ActionCreateConversation: {PerMinute: cfg.ConversationRatePerMin},
	})
	rateLimiter.StartCleanupRoutine(ctx)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	attachmentUseCase := usecase.NewAttachmentUseCase(store.blobs, cfg.MaxUploadBytes)
	readStatusUseCase := usecase.NewReadStatusUseCase(store.statuses, store.participants, store.messages, wsManager)
	conversationUseCase := usecase.NewConversationUseCase(store.conversations, store.participants, store.profiles, wsManager, publisher, rateLimiter)
	messageUseCase := usecase.NewMessageUseCase(store.messages, store.conversations, store.profiles, attachmentUseCase, readStatusUseCase, wsManager, publisher, rateLimiter)
	profileUseCase := usecase.NewProfileUseCase(store.profiles, cfg.SearchLimit)
	presenceUseCase := usecase.NewPresenceUseCase(store.profiles, cfg.OnlineWindow, cfg.HeartbeatInterval)
	typingTracker := usecase.NewTypingTracker(cfg.TypingIdle, usecase.BroadcastTyping(wsManager))

	sessionUseCase := usecase.NewSessionUseCase(
		wsManager,
		store.feed,
		messageUseCase,
		readStatusUseCase,
		presenceUseCase,
		typingTracker,
		rateLimiter,
		cfg.RequestTimeout,
	)
	defer sessionUseCase.Close()
	wsManager.SetHandler(sessionUseCase)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig()))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(metrics.HTTPMiddleware())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", cfg.MaxUploadBytes/1024+1024)))
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == "/ws" },
		Timeout: cfg.RequestTimeout,
	}))

	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.HTTPErrorHandler

	handler.Setup(conversationUseCase, messageUseCase, readStatusUseCase, profileUseCase, presenceUseCase, cfg.MaxUploadBytes)
	handler.SetupHealthHandler(cfg.StorageBackend)

	authMiddleware := apimiddleware.NewAuthMiddleware(store.verifier)
	wsHandler := handler.NewWebSocketHandler(wsManager)

	router.Setup(e, authMiddleware, wsHandler, rateLimiter)
	store.routes(e)

	go func() {
		logger.Info("Starting server on port %s (backend=%s)", cfg.ServerPort, cfg.StorageBackend)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Fatal().Err(err).Msg("Server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown failed: %v", err)
	}
}

func requestLoggerConfig() middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/metrics") || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Get().Info()
			if v.Error != nil {
				event = logger.Get().Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}
}
