package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher отправляет события задач; ошибка публикации не отменяет уже закоммиченное изменение
type Publisher interface {
	Publish(ctx context.Context, event TaskEvent) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
	logger *logrus.Entry
}

// NewKafkaPublisher создаёт асинхронный writer: Publish не ждёт подтверждения брокера,
// ошибки доставки попадают в лог через Completion.
func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Entry) Publisher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	p := &kafkaPublisher{logger: logger}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion:   p.completion,
	}
	return p
}

func (p *kafkaPublisher) Publish(ctx context.Context, event TaskEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal task event")
	}

	// ключ по задаче сохраняет порядок событий одной задачи в партиции
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TaskID),
		Value: value,
		Time:  event.Timestamp,
	})
}

func (p *kafkaPublisher) completion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	p.logger.WithError(err).WithField("messages", len(messages)).Warn("failed to deliver task events")
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type nopPublisher struct{}

// NopPublisher - заглушка, когда брокер не настроен
func NopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, TaskEvent) error { return nil }

func (nopPublisher) Close() error { return nil }
