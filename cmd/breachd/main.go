// cmd/breachd/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/breach/internal/auth"
	"github.com/jason-s-yu/breach/internal/cache"
	"github.com/jason-s-yu/breach/internal/config"
	"github.com/jason-s-yu/breach/internal/database"
	"github.com/jason-s-yu/breach/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("loading config")
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
		logrus.WithError(err).Fatal("connecting to postgres")
	}
	if err := database.EnsureSchema(ctx); err != nil {
		logrus.WithError(err).Fatal("preparing schema")
	}
	if err := cache.InitRedis(ctx, cfg.RedisAddr); err != nil {
		logrus.WithError(err).Fatal("connecting to redis")
	}
	cancel()

	authSvc := auth.NewService(cfg.JWTSecret)
	srv := server.New(authSvc, cfg.ChoiceTimer)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Handler(),
	}

	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("breachd listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("http server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logrus.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown")
	}
	if database.DB != nil {
		database.DB.Close()
	}
	if cache.Rdb != nil {
		_ = cache.Rdb.Close()
	}
}
