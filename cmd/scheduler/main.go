package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"gestioncalc/internal/app"
	"gestioncalc/pkg/config"
)

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		logrus.Fatal("Failed to load settings: ", err)
	}
	log := config.NewLogger(settings)
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(settings, log)
	if err != nil {
		log.Fatal(err)
	}

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
		log.Warn("RabbitMQ not configured, watchdog alerts are only logged")
	}

	// Metrics are served by the API process.
	a, err := app.Build(settings, db, log, publisher, nil)
	if err != nil {
		log.Fatal(err)
	}

	jobTimeout := settings.ClosureModelTimeout * 20
	if jobTimeout < 10*time.Minute {
		jobTimeout = 10 * time.Minute
	}
	sched := app.NewScheduler(a, app.NewJobs(a, jobTimeout))
	if err := sched.Register(a.Schedules()); err != nil {
		log.Fatal(err)
	}
	sched.Start()
	log.Info("Scheduler started")

	<-ctx.Done()
	log.Info("Stopping scheduler, waiting for running jobs")
	<-sched.Stop().Done()
}
