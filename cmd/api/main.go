package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"gestioncalc/internal/app"
	"gestioncalc/internal/middleware"
	"gestioncalc/internal/routes"
	"gestioncalc/pkg/config"
)

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		logrus.Fatal("Failed to load settings: ", err)
	}
	log := config.NewLogger(settings)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDB(settings, log)
	if err != nil {
		log.Fatal(err)
	}

	// Initialize RabbitMQ (optional)
	var publisher *config.Publisher
	if settings.RabbitMQURL() != "" {
		conn, err := config.InitRabbitMQ(ctx, settings, log)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()
		if publisher, err = config.NewPublisher(conn, log); err != nil {
			log.Fatal(err)
		}
		defer publisher.Close()
	} else {
		log.Info("RabbitMQ not configured, closure events are not published")
	}

	a, err := app.Build(settings, db, log, publisher, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal(err)
	}
	if err := a.SeedPlatforms(ctx); err != nil {
		log.WithError(err).Fatal("Failed to seed platform rules")
	}

	// Set up router
	r := routes.SetupRouter(a.Handler(), routes.Options{
		AllowedOrigins: settings.Origins(),
		Auth:           middleware.AuthConfig{JWTSecret: settings.JWTSecret, CronSecret: settings.CronSecret},
		RecalcLimit: middleware.RateLimiterConfig{
			RequestsPerSecond: settings.RecalcRequestsPerSecond,
			Burst:             settings.RecalcBurst,
		},
		Metrics:  a.Metrics,
		Gatherer: prometheus.DefaultGatherer,
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", settings.Port).Info("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}
