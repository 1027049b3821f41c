// Command server runs the support backend: a record-store-backed chat
// service with bearer-session auth and a retrieval-augmented response
// pipeline over a local Ollama instance.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/serenline/go-support-backend/internal/config"
	httpapi "github.com/serenline/go-support-backend/internal/http"
	"github.com/serenline/go-support-backend/internal/llm"
	"github.com/serenline/go-support-backend/internal/observability"
	"github.com/serenline/go-support-backend/internal/seed"
	"github.com/serenline/go-support-backend/internal/services"
	"github.com/serenline/go-support-backend/internal/store"
	"github.com/serenline/go-support-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("store", cfg.StoreDriver).Msg("starting support backend")

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	docs, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store setup failed")
	}

	client := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.ChatModel, cfg.LLM.EmbedModel)

	if _, err := seed.Run(ctx, docs, client, seed.Options{Path: cfg.ReferenceDocsPath}, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("reference corpus seeding failed")
	}

	adapter := store.NewAdapter(docs, log.Logger)

	authSvc := services.NewAuthService(adapter)
	authSvc.SessionTTL = cfg.Session.TTL
	chatSvc := services.NewChatService(adapter)
	histSvc := services.NewHistoryService(adapter)
	ragSvc := services.NewRAGService(docs, client, client)
	ragSvc.TopK = cfg.RetrievalTopK
	convSvc := services.NewConversationService(chatSvc, histSvc, ragSvc)

	// Background session sweep; lazy expiry on read keeps auth correct even
	// when this is disabled.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.Session.SweepInterval > 0 {
		go sweepSessions(sweepCtx, authSvc, cfg.Session.SweepInterval)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Services{
		Auth:         authSvc,
		Chats:        chatSvc,
		History:      histSvc,
		Conversation: convSvc,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openStore builds the configured DocumentStore backend.
func openStore(cfg config.Config) (store.DocumentStore, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		return store.NewMemoryStore(), nil
	}
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.AutoMigrate(db); err != nil {
		return nil, err
	}
	if cfg.OTEL.Enabled {
		if err := store.EnableTracing(db); err != nil {
			return nil, err
		}
	}
	return store.NewSQLiteStore(db), nil
}

// sweepSessions periodically deletes expired auth sessions.
func sweepSessions(ctx context.Context, auth *services.AuthService, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := auth.SweepExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}
