package config

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type Consumer struct {
	channel *amqp.Channel
	queue   string
	log     logrus.FieldLogger
}

func NewConsumer(conn *amqp.Connection, queueName string, log logrus.FieldLogger) (*Consumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection not initialized")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	q, err := declareQueue(ch, queueName)
	if err != nil {
		ch.Close()
		return nil, err
	}

	return &Consumer{
		channel: ch,
		queue:   q.Name,
		log:     log.WithField("queue", q.Name),
	}, nil
}

// Consume blocks until ctx is cancelled or the delivery channel closes.
// Failed messages are requeued.
func (c *Consumer) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return err
	}

	c.log.Info("consumer is running")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := handler(msg.Body); err != nil {
				c.log.WithError(err).Warn("handle message failed")
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
