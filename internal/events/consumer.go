package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	HandleEvent(ctx context.Context, event TaskEvent) error
}

// HandlerFunc позволяет использовать функцию как Handler
type HandlerFunc func(ctx context.Context, event TaskEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, event TaskEvent) error {
	return f(ctx, event)
}

// MessageReader - часть kafka.Reader, нужная потребителю
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer читает события задач из Kafka до отмены контекста
type Consumer struct {
	reader  MessageReader
	handler Handler
	logger  *logrus.Entry
}

func NewKafkaConsumer(brokers []string, topic, groupID string, handler Handler, logger *logrus.Entry) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return NewConsumer(reader, handler, logger)
}

func NewConsumer(reader MessageReader, handler Handler, logger *logrus.Entry) *Consumer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Consumer{reader: reader, handler: handler, logger: logger}
}

// Start блокируется до отмены ctx; битые сообщения и ошибки обработчика пропускаются
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("task event consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("task event consumer stopped")
				return ctx.Err()
			}
			c.logger.WithError(err).Warn("read message failed")
			continue
		}

		var event TaskEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.WithError(err).WithField("offset", msg.Offset).Warn("skip malformed task event")
			continue
		}

		if err := c.handler.HandleEvent(ctx, event); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"task_id": event.TaskID,
				"type":    event.Type,
			}).Error("handle task event failed")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
