package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/CognitionIES/teamsync/internal/events"
	"github.com/CognitionIES/teamsync/internal/registry"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	sent []Notification
}

func (c *captureNotifier) SendNotification(_ context.Context, n Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

type mapDirectory map[uuid.UUID]registry.User

func (d mapDirectory) GetUser(_ context.Context, id uuid.UUID) (registry.User, error) {
	u, ok := d[id]
	if !ok {
		return registry.User{}, registry.ErrNotFound
	}
	return u, nil
}

func TestHandleEventRouting(t *testing.T) {
	assignee := registry.User{ID: uuid.New(), Name: "Alice"}
	lead := registry.User{ID: uuid.New(), Name: "Lena"}
	dir := mapDirectory{assignee.ID: assignee, lead.ID: lead}
	notifier := &captureNotifier{}
	h := NewEventHandler(notifier, dir)
	ctx := context.Background()
	taskID := uuid.NewString()

	require.NoError(t, h.HandleEvent(ctx, events.TaskEvent{
		Type: events.TypeTaskAssigned, TaskID: taskID, UserID: assignee.ID.String(),
		AssignedBy: lead.ID.String(), TaskType: "Redline",
	}))
	require.NoError(t, h.HandleEvent(ctx, events.TaskEvent{
		Type: events.TypeTaskProgress, TaskID: taskID, UserID: assignee.ID.String(), Progress: 50,
	}))
	require.NoError(t, h.HandleEvent(ctx, events.TaskEvent{
		Type: events.TypeTaskCompleted, TaskID: taskID, UserID: assignee.ID.String(),
		AssignedBy: lead.ID.String(), TaskType: "Redline",
	}))

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "task_assigned", notifier.sent[0].Type)
	assert.Equal(t, "Alice", notifier.sent[0].RecipientName)
	assert.Equal(t, "task_completed", notifier.sent[1].Type)
	assert.Equal(t, lead.ID.String(), notifier.sent[1].RecipientID)
}

func TestHandleEventValidation(t *testing.T) {
	h := NewEventHandler(&captureNotifier{}, mapDirectory{})
	ctx := context.Background()

	assert.ErrorIs(t, h.HandleEvent(ctx, events.TaskEvent{UserID: uuid.NewString()}), ErrEmptyTaskID)
	assert.ErrorIs(t, h.HandleEvent(ctx, events.TaskEvent{TaskID: uuid.NewString()}), ErrEmptyUserID)

	// неизвестный получатель - уведомление пропускается без ошибки
	assert.NoError(t, h.HandleEvent(ctx, events.TaskEvent{
		Type: events.TypeTaskAssigned, TaskID: uuid.NewString(), UserID: uuid.NewString(),
	}))
}

type sliceReader struct {
	messages []kafka.Message
	cancel   context.CancelFunc
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *sliceReader) Close() error { return nil }

func TestConsumerSkipsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good, err := json.Marshal(events.TaskEvent{Type: events.TypeTaskAssigned, TaskID: "t-1", UserID: "u-1"})
	require.NoError(t, err)
	failing, err := json.Marshal(events.TaskEvent{Type: events.TypeTaskCompleted, TaskID: "t-2", UserID: "u-1"})
	require.NoError(t, err)

	reader := &sliceReader{
		messages: []kafka.Message{{Value: []byte("{not json")}, {Value: good}, {Value: failing}},
		cancel:   cancel,
	}

	var handled []string
	handler := events.HandlerFunc(func(_ context.Context, e events.TaskEvent) error {
		handled = append(handled, e.TaskID)
		if e.TaskID == "t-2" {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	logger, hook := test.NewNullLogger()
	consumer := events.NewConsumer(reader, handler, logrus.NewEntry(logger))

	err = consumer.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"t-1", "t-2"}, handled)

	var warnings, errorsLogged int
	for _, e := range hook.AllEntries() {
		switch e.Level {
		case logrus.WarnLevel:
			warnings++
		case logrus.ErrorLevel:
			errorsLogged++
		}
	}
	assert.Equal(t, 1, warnings)
	assert.Equal(t, 1, errorsLogged)
}
