package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("task record not found")

// ItemLookup - естественный ключ элемента P&ID в запросе на смену статуса
type ItemLookup struct {
	PIDID       uuid.UUID
	LineID      *uuid.UUID
	EquipmentID *uuid.UUID
	UserID      uuid.UUID
	TaskType    TaskType
}

// ListFilter - фильтры списка задач; nil/пустые поля не применяются
type ListFilter struct {
	AssigneeID *uuid.UUID
	ProjectID  *uuid.UUID
	Type       TaskType
	Status     Status
}

type Repository interface {
	// Transaction выполняет fn в одной транзакции; репозитории внутри получают через WithTx
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) Repository

	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id uuid.UUID) (Task, error)
	ListTasks(ctx context.Context, f ListFilter) ([]Task, error)
	// LockTask сериализует изменения задачи: повышает version и держит блокировку строки до конца транзакции
	LockTask(ctx context.Context, id uuid.UUID) error
	SaveTaskState(ctx context.Context, t Task) error
	// FindReusableTask - последняя задача P&ID режима в статусе Assigned, созданная не раньше since
	FindReusableTask(ctx context.Context, assignee uuid.UUID, taskType TaskType, projectID uuid.UUID, since time.Time) (Task, bool, error)

	CreateWorkItem(ctx context.Context, item *WorkItem) error
	GetWorkItem(ctx context.Context, id uuid.UUID) (WorkItem, error)
	WorkItemsByTask(ctx context.Context, taskID uuid.UUID) ([]WorkItem, error)
	// CompleteWorkItem отмечает элемент выполненным, только если он ещё не выполнен
	CompleteWorkItem(ctx context.Context, id uuid.UUID, blocks int, at time.Time) (bool, error)

	// InsertPIDWorkItem вставляет элемент; false - такой элемент уже существует
	InsertPIDWorkItem(ctx context.Context, item *PIDWorkItem) (bool, error)
	// ClaimPID закрепляет P&ID за пользователем, если он ещё свободен, и возвращает фактического держателя
	ClaimPID(ctx context.Context, pidID uuid.UUID, taskType TaskType, userID uuid.UUID, at time.Time) (uuid.UUID, error)
	FindPIDWorkItem(ctx context.Context, key ItemLookup) (PIDWorkItem, error)
	GetPIDWorkItem(ctx context.Context, id uuid.UUID) (PIDWorkItem, error)
	PIDWorkItemsByTask(ctx context.Context, taskID uuid.UUID) ([]PIDWorkItem, error)
	// UpdatePIDWorkItem сохраняет статус элемента, только если текущий статус равен prev
	UpdatePIDWorkItem(ctx context.Context, item PIDWorkItem, prev ItemStatus) (bool, error)

	// CountDone возвращает (выполнено, всего) элементов задачи
	CountDone(ctx context.Context, t Task) (int64, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) CreateTask(ctx context.Context, t *Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *repository) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	var t Task
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (r *repository) ListTasks(ctx context.Context, f ListFilter) ([]Task, error) {
	var tasks []Task
	tx := r.db.WithContext(ctx)

	if f.AssigneeID != nil {
		tx = tx.Where("assignee_id = ?", *f.AssigneeID)
	}
	if f.ProjectID != nil {
		tx = tx.Where("project_id = ?", *f.ProjectID)
	}
	if f.Type != "" {
		tx = tx.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}

	if err := tx.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *repository) LockTask(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ?", id).
		UpdateColumn("version", gorm.Expr("version + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SaveTaskState(ctx context.Context, t Task) error {
	return r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"status":       t.Status,
			"progress":     t.Progress,
			"completed_at": t.CompletedAt,
			"updated_at":   t.UpdatedAt,
		}).Error
}

func (r *repository) FindReusableTask(ctx context.Context, assignee uuid.UUID, taskType TaskType, projectID uuid.UUID, since time.Time) (Task, bool, error) {
	var tasks []Task
	err := r.db.WithContext(ctx).
		Where("assignee_id = ? AND type = ? AND project_id = ?", assignee, taskType, projectID).
		Where("status = ? AND is_pid_based = ?", StatusAssigned, true).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(1).
		Find(&tasks).Error
	if err != nil {
		return Task{}, false, err
	}
	if len(tasks) == 0 {
		return Task{}, false, nil
	}
	return tasks[0], true, nil
}

func (r *repository) CreateWorkItem(ctx context.Context, item *WorkItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetWorkItem(ctx context.Context, id uuid.UUID) (WorkItem, error) {
	var item WorkItem
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return WorkItem{}, ErrNotFound
	}
	return item, err
}

func (r *repository) WorkItemsByTask(ctx context.Context, taskID uuid.UUID) ([]WorkItem, error) {
	var items []WorkItem
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at, name").
		Find(&items).Error
	return items, err
}

func (r *repository) CompleteWorkItem(ctx context.Context, id uuid.UUID, blocks int, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&WorkItem{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": at,
			"blocks":       blocks,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) InsertPIDWorkItem(ctx context.Context, item *PIDWorkItem) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ClaimPID(ctx context.Context, pidID uuid.UUID, taskType TaskType, userID uuid.UUID, at time.Time) (uuid.UUID, error) {
	claim := PIDClaim{PIDID: pidID, TaskType: taskType, UserID: userID, CreatedAt: at}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&claim).Error
	if err != nil {
		return uuid.Nil, err
	}

	var holder PIDClaim
	err = r.db.WithContext(ctx).
		Where("pid_id = ? AND task_type = ?", pidID, taskType).
		Take(&holder).Error
	if err != nil {
		return uuid.Nil, err
	}
	return holder.UserID, nil
}

func (r *repository) FindPIDWorkItem(ctx context.Context, key ItemLookup) (PIDWorkItem, error) {
	var item PIDWorkItem
	// при нескольких совпадениях берём самый свежий незавершённый, иначе самый свежий
	err := r.db.WithContext(ctx).
		Where("pid_id = ? AND item_key = ? AND user_id = ? AND task_type = ?",
			key.PIDID, ItemKey(key.LineID, key.EquipmentID), key.UserID, key.TaskType).
		Order("CASE WHEN status IN ('Completed', 'Skipped') THEN 1 ELSE 0 END, created_at DESC").
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PIDWorkItem{}, ErrNotFound
	}
	return item, err
}

func (r *repository) GetPIDWorkItem(ctx context.Context, id uuid.UUID) (PIDWorkItem, error) {
	var item PIDWorkItem
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PIDWorkItem{}, ErrNotFound
	}
	return item, err
}

func (r *repository) PIDWorkItemsByTask(ctx context.Context, taskID uuid.UUID) ([]PIDWorkItem, error) {
	var items []PIDWorkItem
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at, item_key").
		Find(&items).Error
	return items, err
}

func (r *repository) UpdatePIDWorkItem(ctx context.Context, item PIDWorkItem, prev ItemStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&PIDWorkItem{}).
		Where("id = ? AND status = ?", item.ID, prev).
		Updates(map[string]interface{}{
			"status":       item.Status,
			"remarks":      item.Remarks,
			"blocks":       item.Blocks,
			"completed_at": item.CompletedAt,
			"updated_at":   item.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type progressRow struct {
	Done  int64
	Total int64
}

func (r *repository) CountDone(ctx context.Context, t Task) (int64, int64, error) {
	var row progressRow
	var err error
	if t.IsPIDBased {
		err = r.db.WithContext(ctx).
			Model(&PIDWorkItem{}).
			Select("CAST(COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0) AS BIGINT) AS done, "+
				"CAST(COUNT(*) AS BIGINT) AS total", ItemCompleted, ItemSkipped).
			Where("task_id = ?", t.ID).
			Scan(&row).Error
	} else {
		err = r.db.WithContext(ctx).
			Model(&WorkItem{}).
			Select("CAST(COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS BIGINT) AS done, " +
				"CAST(COUNT(*) AS BIGINT) AS total").
			Where("task_id = ?", t.ID).
			Scan(&row).Error
	}
	if err != nil {
		return 0, 0, err
	}
	return row.Done, row.Total, nil
}
