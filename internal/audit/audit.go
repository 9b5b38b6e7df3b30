package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	TypeTask = "task"
	TypePID  = "pid"
	TypeLine = "line"
)

// Entry - запись журнала аудита
type Entry struct {
	Type        string    `bson:"type" json:"type"`
	Name        string    `bson:"name" json:"name"`
	ActorID     string    `bson:"actor_id" json:"actor_id"`
	Description string    `bson:"description" json:"description"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

// NewEntry заполняет время и автора
func NewEntry(entryType, name string, actorID uuid.UUID, description string) Entry {
	return Entry{
		Type:        entryType,
		Name:        name,
		ActorID:     actorID.String(),
		Description: description,
		Timestamp:   time.Now().UTC(),
	}
}

// Sink - хранилище журнала аудита
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

type mongoSink struct {
	coll *mongo.Collection
}

// NewMongoSink пишет записи в коллекцию MongoDB
func NewMongoSink(coll *mongo.Collection) Sink {
	return &mongoSink{coll: coll}
}

func (s *mongoSink) Append(ctx context.Context, entry Entry) error {
	_, err := s.coll.InsertOne(ctx, entry)
	return err
}

type logSink struct {
	logger *logrus.Entry
}

// NewLogSink только логирует записи (когда MongoDB не настроена)
func NewLogSink(logger *logrus.Entry) Sink {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &logSink{logger: logger}
}

func (s *logSink) Append(_ context.Context, entry Entry) error {
	s.logger.WithFields(logrus.Fields{
		"audit_type": entry.Type,
		"audit_name": entry.Name,
		"actor_id":   entry.ActorID,
	}).Info(entry.Description)
	return nil
}

// Recorder пишет аудит асинхронно; ошибки не влияют на основную операцию
type Recorder struct {
	sink    Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRecorder(sink Sink, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{sink: sink, timeout: timeout}
}

// Record ставит запись в фоновую отправку
func (r *Recorder) Record(entry Entry) {
	if r == nil || r.sink == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.sink.Append(ctx, entry); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"audit_type": entry.Type,
				"audit_name": entry.Name,
			}).Warn("failed to write audit entry")
		}
	}()
}

// Wait дожидается отправки всех поставленных записей
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
