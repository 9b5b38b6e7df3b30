package task

import (
	"context"
	"time"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/CognitionIES/teamsync/internal/audit"
	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/events"
	"github.com/CognitionIES/teamsync/internal/logging"
	"github.com/CognitionIES/teamsync/internal/metrics"
	"github.com/CognitionIES/teamsync/internal/registry"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultReuseWindow - в течение этого времени новые P&ID складываются в ту же задачу
const DefaultReuseWindow = 5 * time.Minute

type ItemInput struct {
	Name string
	Type ItemType
}

// AssignItemsInput - явное назначение списка элементов
type AssignItemsInput struct {
	TaskType   TaskType
	AssigneeID uuid.UUID
	ProjectID  *uuid.UUID
	Items      []ItemInput
	IsComplex  bool
}

// AssignPIDInput - назначение всех линий и оборудования чертежа
type AssignPIDInput struct {
	PIDID     uuid.UUID
	UserID    uuid.UUID
	TaskType  TaskType
	ProjectID uuid.UUID
}

type AssignPIDResult struct {
	Task       Task
	PIDNumber  string
	ItemsCount int
	IsNewTask  bool
}

// MarkInput - смена статуса элемента P&ID по естественному ключу
type MarkInput struct {
	PIDID       uuid.UUID
	LineID      *uuid.UUID
	EquipmentID *uuid.UUID
	UserID      uuid.UUID
	TaskType    TaskType
	Status      ItemStatus
	Blocks      int
	Remarks     *string
}

type MarkResult struct {
	Item PIDWorkItem
	Task Task
}

type CompleteResult struct {
	Item WorkItem
	Task Task
}

// Details - задача вместе с элементами
type Details struct {
	Task     Task
	Items    []WorkItem
	PIDItems []PIDWorkItem
}

type Service interface {
	AssignItems(ctx context.Context, actor auth.Principal, in AssignItemsInput) (Details, error)
	AssignPID(ctx context.Context, actor auth.Principal, in AssignPIDInput) (AssignPIDResult, error)
	MarkPIDItem(ctx context.Context, actor auth.Principal, in MarkInput) (MarkResult, error)
	CompleteWorkItem(ctx context.Context, actor auth.Principal, itemID uuid.UUID, blocks int) (CompleteResult, error)
	UpdateTaskStatus(ctx context.Context, actor auth.Principal, taskID uuid.UUID, status Status) (Task, error)
	GetTask(ctx context.Context, actor auth.Principal, taskID uuid.UUID) (Details, error)
	ListTasks(ctx context.Context, actor auth.Principal, f ListFilter) ([]Task, error)
}

type Option func(*service)

// WithClock подменяет источник времени (окно переиспользования, метки завершения)
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

func WithReuseWindow(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.reuseWindow = d
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithAudit(r *audit.Recorder) Option {
	return func(s *service) {
		s.audit = r
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

type service struct {
	repo        Repository
	registry    registry.Repository
	ledger      metrics.Ledger
	publisher   events.Publisher
	audit       *audit.Recorder
	logger      *logrus.Entry
	now         func() time.Time
	reuseWindow time.Duration
}

func NewService(repo Repository, reg registry.Repository, ledger metrics.Ledger, opts ...Option) Service {
	s := &service{
		repo:        repo,
		registry:    reg,
		ledger:      ledger,
		publisher:   events.NopPublisher(),
		logger:      logging.Component("task"),
		now:         time.Now,
		reuseWindow: DefaultReuseWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

// GetTask - задача и её элементы; чужие задачи участнику не видны
func (s *service) GetTask(ctx context.Context, actor auth.Principal, taskID uuid.UUID) (Details, error) {
	t, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return Details{}, storeErr(err, "failed to load task")
	}
	if !actor.SeesAll() && t.AssigneeID != actor.UserID {
		return Details{}, apperr.NotFound("task not found")
	}

	details := Details{Task: t}
	if t.IsPIDBased {
		details.PIDItems, err = s.repo.PIDWorkItemsByTask(ctx, t.ID)
	} else {
		details.Items, err = s.repo.WorkItemsByTask(ctx, t.ID)
	}
	if err != nil {
		return Details{}, storeErr(err, "failed to load task items")
	}
	return details, nil
}

func (s *service) ListTasks(ctx context.Context, actor auth.Principal, f ListFilter) ([]Task, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", f.Status)
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validation("invalid task type %q", f.Type)
	}
	if !actor.SeesAll() {
		if f.AssigneeID != nil && *f.AssigneeID != actor.UserID {
			return nil, apperr.Forbidden("tasks of other users are not visible")
		}
		self := actor.UserID
		f.AssigneeID = &self
	}

	tasks, err := s.repo.ListTasks(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list tasks")
	}
	return tasks, nil
}

// publish отправляет событие после коммита; сбой брокера только логируется
func (s *service) publish(ctx context.Context, eventType string, t Task, actor auth.Principal) {
	event := events.TaskEvent{
		Type:       eventType,
		TaskID:     t.ID.String(),
		UserID:     t.AssigneeID.String(),
		ActorID:    actor.UserID.String(),
		AssignedBy: t.AssignedBy.String(),
		TaskType:   string(t.Type),
		Status:     string(t.Status),
		Progress:   t.Progress,
		Timestamp:  s.clock(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"task_id": t.ID,
			"event":   eventType,
		}).Warn("failed to publish task event")
	}
}

func progressEvent(t Task) string {
	if t.Status == StatusCompleted {
		return events.TypeTaskCompleted
	}
	return events.TypeTaskProgress
}

// storeErr сохраняет классифицированные ошибки, остальные считает ошибками хранилища
func storeErr(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("task not found")
	}
	return apperr.Persistence(err, message)
}
