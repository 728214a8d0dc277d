// Package main is the entry point for the voxrelay server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/voxrelay/voxrelay/internal/assistant"
	"github.com/voxrelay/voxrelay/internal/auth"
	"github.com/voxrelay/voxrelay/internal/bridge"
	"github.com/voxrelay/voxrelay/internal/config"
	"github.com/voxrelay/voxrelay/internal/handler"
	"github.com/voxrelay/voxrelay/internal/origin"
	"github.com/voxrelay/voxrelay/internal/security"
	"github.com/voxrelay/voxrelay/internal/session"
	"github.com/voxrelay/voxrelay/internal/ui"
	"github.com/voxrelay/voxrelay/internal/upstream"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := setupLogger()

	logger.Info("starting voxrelay")

	cfg, err := config.GetConfig()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("environment", cfg.Origin.Environment),
		slog.Int("endpoints", len(cfg.Upstream.Endpoints)),
	)

	settingsPath := os.Getenv("VOXRELAY_SETTINGS_PATH")
	if settingsPath == "" {
		settingsPath = "settings.json"
	}
	settings, err := config.OpenSettings(settingsPath)
	if err != nil {
		logger.Error("failed to open settings store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Upstream rotation with dead-endpoint cooldown.
	registry := upstream.NewRegistry(cfg.Upstream.Endpoints, cfg.EndpointCooldown(),
		upstream.WithRegistryLogger(logger),
	)

	client := upstream.NewClient(registry,
		upstream.WithModel(cfg.Upstream.Model),
		upstream.WithCredentials(credentialChain{settings: settings, serverKey: cfg.Upstream.APIKey}),
		upstream.WithTimeout(cfg.UpstreamTimeout()),
		upstream.WithMaxRetries(cfg.Upstream.MaxRetries),
		upstream.WithClientLogger(logger),
	)

	logger.Info("upstream client initialized",
		slog.Int("endpoints", registry.Len()),
		slog.Duration("cooldown", cfg.EndpointCooldown()),
	)

	assist := assistant.New(client,
		assistant.WithStyleSource(settings),
		assistant.WithLogger(logger),
	)

	hostname := ""
	if h, err := os.Hostname(); err == nil {
		hostname = h
	}
	policy := origin.New(origin.Config{
		AllowedOrigins: cfg.Origin.AllowedOrigins,
		TrustedRoots:   cfg.Origin.TrustedRoots,
		Environment:    cfg.Origin.Environment,
		Hostname:       hostname,
		Bypass:         cfg.Origin.Bypass,
	}, origin.WithLogger(logger))

	messenger := bridge.NewMessenger(nil, policy,
		bridge.WithDeduper(bridge.NewDeduper(cfg.Bridge.DedupeCapacity)),
		bridge.WithRateWindow(bridge.NewRateWindow(cfg.Bridge.RateCap, cfg.RateInterval())),
		bridge.WithMessengerLogger(logger),
	)
	hub := bridge.NewHub(messenger, policy, bridge.WithHubLogger(logger))

	// The live call loop: transcript events arriving over the bridge are
	// debounced into assistant calls, and the results broadcast back to
	// the attached frames.
	primaryOrigin := bridge.WildcardOrigin
	if len(cfg.Origin.AllowedOrigins) > 0 {
		primaryOrigin = cfg.Origin.AllowedOrigins[0]
	}
	callSession := session.New(assist, func(payload []byte) bool {
		return hub.Broadcast(json.RawMessage(payload), primaryOrigin) > 0
	}, session.WithSessionLogger(logger))
	defer callSession.Close()

	messenger.Listen(func(payload []byte, senderOrigin string) {
		var msg struct {
			Type string `json:"type"`
			session.Utterance
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Debug("unparseable bridge message",
				slog.String("origin", senderOrigin),
			)
			return
		}
		if msg.Type == "transcript" {
			callSession.OnUtterance(msg.Utterance)
		}
	})

	issuer := auth.NewIssuer(cfg.Auth.Secret, cfg.TokenTTL())

	relay := handler.NewRelayHandler(client, assist, issuer,
		handler.WithServerKey(cfg.Upstream.APIKey),
		handler.WithSettings(settings),
		handler.WithBridge(hub),
		handler.WithHandlerLogger(logger),
	)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.CORSMiddleware(policy))
	router.Use(handler.StripAuthHeadersMiddleware())
	router.Use(handler.LoggingMiddleware(logger))

	cache := handler.NewRelayCache(handler.WithCacheLogger(logger))
	defer cache.Close()
	router.Use(handler.CacheMiddleware(cache, logger))

	router.GET("/health", relay.HandleHealth)
	router.POST("/chat", relay.HandleChat)
	router.POST("/openai/chat/completions", relay.HandleChatCompletions)
	router.POST("/session", relay.HandleSession)
	router.GET("/bridge", relay.HandleBridge)
	router.GET("/settings", relay.HandleSettings)
	router.PUT("/settings", relay.HandleSettings)

	assistGroup := router.Group("/assist")
	{
		assistGroup.POST("/suggestions", relay.HandleSuggestions)
		assistGroup.POST("/bilingual", relay.HandleBilingual)
		assistGroup.POST("/translate", relay.HandleTranslate)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("address", addr))

		ui.PrintBanner()
		ui.PrintStartupInfo(cfg.Server.Host, cfg.Server.Port, registry.Len(), cfg.Origin.Environment)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

// credentialChain resolves the upstream credential: the user's settings
// key wins, then the server-held key.
type credentialChain struct {
	settings  *config.Settings
	serverKey string
}

func (c credentialChain) APIKey() string {
	if key := c.settings.APIKey(); key != "" {
		return key
	}
	return c.serverKey
}

// setupLogger creates a structured JSON logger with credential redaction.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo

	if envLevel := os.Getenv("VOXRELAY_LOGGING_LEVEL"); envLevel != "" {
		switch envLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	base := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(security.NewRedactedHandler(base))

	slog.SetDefault(logger)

	return logger
}
