package config

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

var RabbitMQ *amqp.Connection

// InitRabbitMQ connects to RabbitMQ with retry logic
func InitRabbitMQ(ctx context.Context, s *Settings, log logrus.FieldLogger) (*amqp.Connection, error) {
	url := s.RabbitMQURL()
	if url == "" {
		return nil, fmt.Errorf("RABBITMQ_HOST is not set")
	}

	maxRetries := 10
	retryDelay := 3 * time.Second

	var conn *amqp.Connection
	var err error

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			RabbitMQ = conn
			log.WithField("host", s.RabbitMQHost).Info("connected to RabbitMQ")
			return conn, nil
		}

		if i < maxRetries-1 {
			log.WithError(err).Warnf("failed to connect to RabbitMQ (attempt %d/%d), retrying in %v", i+1, maxRetries, retryDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}

	return nil, fmt.Errorf("connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// PurgeQueue removes all messages from a queue without deleting the queue itself
func PurgeQueue(conn *amqp.Connection, queueName string) (int, error) {
	if conn == nil {
		return 0, fmt.Errorf("RabbitMQ connection not initialized")
	}

	ch, err := conn.Channel()
	if err != nil {
		return 0, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	n, err := ch.QueuePurge(queueName, false)
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue %s: %w", queueName, err)
	}
	return n, nil
}
