package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dmsync/backend/internal/account"
	"dmsync/backend/internal/api/handler"
	"dmsync/backend/internal/auth"
	"dmsync/backend/internal/chathub"
	"dmsync/backend/internal/config"
	"dmsync/backend/internal/conversation"
	"dmsync/backend/internal/logger"
	"dmsync/backend/internal/presence"
	"dmsync/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, envLoaded := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !envLoaded {
		log.Info("No .env file found, using process environment")
	}
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return err
	}
	store := storage.NewStorageService(db)
	if err := store.Migrate(); err != nil {
		return err
	}
	log.Info("Database connected, migrations complete")

	rdb := storage.NewRedisClient(cfg.RedisURL, log)
	defer rdb.Close()
	ephemeral := storage.NewRedisStore(rdb, log)

	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	accounts := account.NewService(store, ephemeral, log)
	conversations := conversation.NewService(store, ephemeral, log)
	tracker := presence.NewTracker(ephemeral, log)

	gw := chathub.NewGateway(chathub.Dependencies{
		Verifier:      verifier,
		Users:         accounts,
		Conversations: conversations,
		Typing:        tracker,
		Events:        ephemeral,
		Logger:        log,
	})

	health := &storage.HealthChecker{DB: db, Redis: ephemeral.Client()}
	h := handler.NewHandler(accounts, conversations, tracker, verifier, gw, health, log)

	server := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        handler.NewRouter(h, log, cfg.FrontendURL),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gw.Run(gctx)
	})
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownGracePeriod)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
