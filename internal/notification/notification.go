package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CognitionIES/teamsync/internal/events"
	"github.com/CognitionIES/teamsync/internal/registry"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyUserID = errors.New("userID is required")
	ErrEmptyTaskID = errors.New("taskID is required")
)

// Notification описывает уведомление, которое будет отправлено
type Notification struct {
	Type          string
	TaskID        string
	RecipientID   string
	RecipientName string
	Message       string
	CreatedAt     time.Time
}

// Notifier отвечает за доставку уведомлений
type Notifier interface {
	SendNotification(ctx context.Context, n Notification) error
}

// Directory возвращает имя пользователя для текста уведомления
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (registry.User, error)
}

type eventHandler struct {
	notifier  Notifier
	directory Directory
	now       func() time.Time
}

// NewEventHandler: назначение уведомляет исполнителя, завершение - того, кто назначал.
// Промежуточный прогресс уведомлений не порождает.
func NewEventHandler(notifier Notifier, directory Directory) events.Handler {
	return &eventHandler{notifier: notifier, directory: directory, now: time.Now}
}

func (h *eventHandler) HandleEvent(ctx context.Context, event events.TaskEvent) error {
	if strings.TrimSpace(event.TaskID) == "" {
		return ErrEmptyTaskID
	}
	if strings.TrimSpace(event.UserID) == "" {
		return ErrEmptyUserID
	}

	var (
		recipient string
		kind      string
		message   string
	)
	switch event.Type {
	case events.TypeTaskAssigned:
		recipient = event.UserID
		kind = "task_assigned"
		message = fmt.Sprintf("Вам назначена задача %s (%s)", event.TaskID, event.TaskType)
	case events.TypeTaskCompleted:
		recipient = event.AssignedBy
		kind = "task_completed"
		message = fmt.Sprintf("Задача %s (%s) выполнена", event.TaskID, event.TaskType)
	default:
		return nil
	}
	if recipient == "" {
		return nil
	}

	n := Notification{
		Type:        kind,
		TaskID:      event.TaskID,
		RecipientID: recipient,
		Message:     message,
		CreatedAt:   h.now(),
	}
	if id, err := uuid.Parse(recipient); err == nil && h.directory != nil {
		user, err := h.directory.GetUser(ctx, id)
		switch {
		case err == nil:
			n.RecipientName = user.Name
		case errors.Is(err, registry.ErrNotFound):
			logrus.WithField("user_id", recipient).Warn("recipient not found, skip notification")
			return nil
		default:
			return errors.Wrap(err, "resolve recipient")
		}
	}

	if err := h.notifier.SendNotification(ctx, n); err != nil {
		return errors.Wrap(err, "send notification")
	}
	return nil
}

type logNotifier struct {
	logger *logrus.Entry
}

func NewLogNotifier(logger *logrus.Entry) Notifier {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) SendNotification(_ context.Context, notification Notification) error {
	n.logger.WithFields(logrus.Fields{
		"type":      notification.Type,
		"task_id":   notification.TaskID,
		"recipient": notification.RecipientID,
		"name":      notification.RecipientName,
		"at":        notification.CreatedAt.Format(time.RFC3339),
	}).Info(notification.Message)
	return nil
}
