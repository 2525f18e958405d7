package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/veloute/server/adapters/llm"
	"github.com/veloute/server/adapters/memory"
	"github.com/veloute/server/adapters/mongo"
	"github.com/veloute/server/adapters/stt"
	"github.com/veloute/server/adapters/tts"
	"github.com/veloute/server/domain/repositories"
	"github.com/veloute/server/internal/api"
	"github.com/veloute/server/internal/handlers"
	"github.com/veloute/server/internal/router"
	"github.com/veloute/server/internal/session"
	"github.com/veloute/server/internal/websocket"
)

func main() {
	// Load environment variables from .env if present. In production the
	// environment is set directly.
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()

	// Initialize collaborators, falling back to mocks when credentials are
	// absent so the server always starts in development.
	transcriber := buildTranscriber(logger)
	synthesizer := buildSynthesizer(logger)
	model := buildModel(ctx, logger)

	// Initialize repositories
	menuRepo := memory.NewMenuRepository()
	reservationRepo, conversationRepo := buildStores(logger)

	// Initialize the intent router. Registration order is dispatch priority.
	intentRouter := router.New(model, logger)
	intentRouter.Register(handlers.NewReservationHandler(reservationRepo, logger))
	intentRouter.Register(handlers.NewMenuHandler(menuRepo, logger))
	intentRouter.Register(handlers.NewFAQHandler())
	logger.Info("Intent router initialized", zap.Strings("handlers", intentRouter.Handlers()))

	// Initialize WebSocket hub
	hub := websocket.NewHub(
		session.Collaborators{
			Transcriber: transcriber,
			Dispatcher:  intentRouter,
			Synthesizer: synthesizer,
		},
		session.Config{SampleRate: synthesizer.SampleRate()},
		conversationRepo,
		logger,
	)
	go hub.Run()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, api.Dependencies{
		Hub:           hub,
		Router:        intentRouter,
		Menu:          menuRepo,
		Reservations:  reservationRepo,
		Conversations: conversationRepo,
		Logger:        logger,
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func buildTranscriber(logger *zap.Logger) repositories.Transcriber {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		logger.Info("Using Google Cloud Speech-to-Text")
		return &stt.GoogleTranscriber{
			AlternativeLanguages: []string{"fr-FR"},
		}
	}
	logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock transcriber")
	return stt.NewMockTranscriber(logger)
}

func buildSynthesizer(logger *zap.Logger) repositories.Synthesizer {
	config := tts.NewElevenLabsConfigFromEnv()
	if config.APIKey != "" {
		synthesizer, err := tts.NewElevenLabsSynthesizer(config, logger)
		if err != nil {
			logger.Fatal("Invalid Eleven Labs configuration", zap.Error(err))
		}
		logger.Info("Using Eleven Labs text-to-speech")
		return synthesizer
	}
	logger.Warn("ELEVEN_LABS_API_KEY not set, using mock synthesizer")
	return tts.NewMockSynthesizer(logger)
}

func buildModel(ctx context.Context, logger *zap.Logger) repositories.GeneralModel {
	config := llm.NewGeminiConfigFromEnv()
	if config.APIKey != "" {
		model, err := llm.NewGeminiModel(ctx, config, logger)
		if err != nil {
			logger.Fatal("Failed to create Gemini model", zap.Error(err))
		}
		logger.Info("Using Gemini general model")
		return model
	}
	logger.Warn("GEMINI_API_KEY not set, using mock model")
	return llm.NewMockModel(logger)
}

func buildStores(logger *zap.Logger) (repositories.ReservationRepository, repositories.ConversationRepository) {
	if os.Getenv("MONGODB_URI") != "" {
		client, err := mongo.NewClient(mongo.NewConfigFromEnv(), logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		return mongo.NewReservationRepository(client.Database),
			mongo.NewConversationRepository(client.Database)
	}
	logger.Warn("MONGODB_URI not set, using in-memory stores")
	return memory.NewReservationRepository(), memory.NewConversationRepository()
}
