package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"sync"
	"syscall"

	logrus "github.com/sirupsen/logrus"

	"gestioncalc/internal/handlers/business"
	"gestioncalc/pkg/config"
)

const (
	maxErrorCount = 3 // Attempts before an undecodable message is dropped
)

var (
	// errorCounts tracks decode failures per message body
	errorCounts   = make(map[string]int)
	errorCountsMu sync.Mutex
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

	conn, err := config.InitRabbitMQ(ctx, settings, log)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	alerts, err := config.NewConsumer(conn, business.AlertsQueue, log)
	if err != nil {
		log.Fatal("Failed to create alerts consumer: ", err)
	}
	defer alerts.Close()

	events, err := config.NewConsumer(conn, business.EventsQueue, log)
	if err != nil {
		log.Fatal("Failed to create events consumer: ", err)
	}
	defer events.Close()

	log.Info("Billing worker started, waiting for messages...")

	errs := make(chan error, 2)
	go func() { errs <- alerts.Consume(ctx, handleAlert(log)) }()
	go func() { errs <- events.Consume(ctx, handleEvent(log)) }()

	if err := <-errs; err != nil {
		log.Fatal("Consumer stopped: ", err)
	}
}

// handleAlert logs a watchdog alert at error level. Delivery to people is
// done by the log pipeline.
func handleAlert(log *logrus.Logger) func([]byte) error {
	return func(msg []byte) error {
		var alert business.Alert
		if err := json.Unmarshal(msg, &alert); err != nil {
			return retryOrDrop(log, msg, err)
		}
		log.WithFields(logrus.Fields{
			"severity":    alert.Severity,
			"kind":        alert.Kind,
			"period_date": alert.PeriodDate,
			"period_type": alert.PeriodType,
			"status":      alert.Status,
			"raised_at":   alert.RaisedAt,
		}).Error(alert.Message)
		return nil
	}
}

func handleEvent(log *logrus.Logger) func([]byte) error {
	return func(msg []byte) error {
		var event business.ClosureEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			return retryOrDrop(log, msg, err)
		}
		entry := log.WithFields(logrus.Fields{
			"type":             event.Type,
			"run_id":           event.RunID,
			"period_date":      event.PeriodDate,
			"period_type":      event.PeriodType,
			"models_processed": event.ModelsProcessed,
			"models_failed":    event.ModelsFailed,
			"archived":         event.Archived,
		})
		if event.ModelsFailed > 0 {
			entry.WithField("failed_models", event.FailedModels).Warn("period closure completed with failures")
			return nil
		}
		entry.Info("period closure completed")
		return nil
	}
}

// retryOrDrop requeues a failed message until it has failed maxErrorCount
// times, then drops it.
func retryOrDrop(log *logrus.Logger, msg []byte, err error) error {
	key := string(msg)

	errorCountsMu.Lock()
	errorCounts[key]++
	count := errorCounts[key]
	if count >= maxErrorCount {
		delete(errorCounts, key)
	}
	errorCountsMu.Unlock()

	if count >= maxErrorCount {
		log.WithError(err).Errorf("Dropping message after %d failed attempts", count)
		return nil
	}
	log.WithError(err).Warnf("Error count for message: %d/%d", count, maxErrorCount)
	return err
}
