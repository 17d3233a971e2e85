package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fairwaylabs/teesheet/internal/broadcast"
	"github.com/fairwaylabs/teesheet/internal/cleanup"
	"github.com/fairwaylabs/teesheet/internal/config"
	"github.com/fairwaylabs/teesheet/internal/database"
	"github.com/fairwaylabs/teesheet/internal/engine"
	"github.com/fairwaylabs/teesheet/internal/handler"
	appmw "github.com/fairwaylabs/teesheet/internal/middleware"
	"github.com/fairwaylabs/teesheet/internal/queue"
	"github.com/fairwaylabs/teesheet/internal/repository"
	"github.com/fairwaylabs/teesheet/internal/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	store := repository.NewStore(db)
	payments := repository.NewPaymentRepo(db)
	players := repository.NewPlayerRepo(db)

	hub := broadcast.New(store, logger)
	eng := engine.New(store, payments, hub, logger)
	sweeper := cleanup.New(store, payments, hub, logger, cfg.SweepInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)
	if cfg.AMQPURL != "" {
		go func() {
			if err := queue.StartActivityConsumer(cfg.AMQPURL, cfg.ActivityQueue, cfg.ActivityLog, logger); err != nil {
				logger.Error("activity consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	var limiter echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		limiter = appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		logger.Warn("redis unavailable, rate limiting disabled")
	}

	auth := handler.NewAuthHandler(cfg, players)
	reg := handler.NewRegistrationHandler(cfg, eng, store, players, logger)
	live := handler.NewLiveHandler(hub, logger)
	router.RegisterRoutes(e, auth, reg, live)
	router.RegisterReservations(e, auth, reg, cfg.JWTSecret, limiter)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "dev" || env == "test" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
