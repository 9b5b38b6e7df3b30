package task

import (
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TypeRedline TaskType = "Redline"
	TypeUPV     TaskType = "UPV"
	TypeQC      TaskType = "QC"
	TypeMisc    TaskType = "Misc"
)

func (t TaskType) Valid() bool {
	switch t {
	case TypeRedline, TypeUPV, TypeQC, TypeMisc:
		return true
	}
	return false
}

type Status string

const (
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type ItemType string

const (
	ItemLine                ItemType = "Line"
	ItemEquipment           ItemType = "Equipment"
	ItemPID                 ItemType = "PID"
	ItemNonInlineInstrument ItemType = "NonInlineInstrument"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemLine, ItemEquipment, ItemPID, ItemNonInlineInstrument:
		return true
	}
	return false
}

// ItemStatus - жизненный цикл элемента P&ID: Pending -> InProgress -> {Completed, Skipped}
type ItemStatus string

const (
	ItemPending    ItemStatus = "Pending"
	ItemInProgress ItemStatus = "InProgress"
	ItemCompleted  ItemStatus = "Completed"
	ItemSkipped    ItemStatus = "Skipped"
)

// Terminal - из Completed и Skipped переходов нет
func (s ItemStatus) Terminal() bool {
	return s == ItemCompleted || s == ItemSkipped
}

// Requestable - статусы, которые клиент может выставить
func (s ItemStatus) Requestable() bool {
	return s == ItemInProgress || s == ItemCompleted || s == ItemSkipped
}

// Task - единица назначения; Progress и Status выводятся из элементов
type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Type        TaskType   `json:"type" gorm:"type:varchar(16);not null;index:idx_task_reuse,priority:2"`
	AssigneeID  uuid.UUID  `json:"assignee_id" gorm:"type:uuid;not null;index:idx_task_reuse,priority:1"`
	AssignedBy  uuid.UUID  `json:"assigned_by" gorm:"type:uuid;not null"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty" gorm:"type:uuid;index:idx_task_reuse,priority:3"`
	Status      Status     `json:"status" gorm:"type:varchar(16);not null;default:'Assigned';index:idx_task_reuse,priority:4"`
	IsComplex   bool       `json:"is_complex" gorm:"not null;default:false"`
	IsPIDBased  bool       `json:"is_pid_based" gorm:"column:is_pid_based;not null;default:false"`
	Progress    int        `json:"progress" gorm:"not null;default:0"`
	Version     int64      `json:"-" gorm:"not null;default:0"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;index:idx_task_reuse,priority:5"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// WorkItem - элемент явного назначения (двухсостоянийный: не выполнен / выполнен)
type WorkItem struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TaskID      uuid.UUID  `json:"task_id" gorm:"type:uuid;not null;index"`
	Name        string     `json:"name" gorm:"not null"`
	ItemType    ItemType   `json:"item_type" gorm:"type:varchar(32);not null"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Blocks      int        `json:"blocks" gorm:"not null;default:0"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
}

// PIDWorkItem - линия, оборудование или сам P&ID, назначенные пользователю в задаче.
// ItemKey нужен для уникальности: NULL в line_id/equipment_id не участвует в unique index.
type PIDWorkItem struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	PIDID       uuid.UUID  `json:"pid_id" gorm:"column:pid_id;type:uuid;not null;uniqueIndex:uk_pid_work_item,priority:1"`
	LineID      *uuid.UUID `json:"line_id,omitempty" gorm:"type:uuid"`
	EquipmentID *uuid.UUID `json:"equipment_id,omitempty" gorm:"type:uuid"`
	ItemKey     string     `json:"-" gorm:"type:varchar(64);not null;uniqueIndex:uk_pid_work_item,priority:2"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:uk_pid_work_item,priority:3"`
	TaskType    TaskType   `json:"task_type" gorm:"type:varchar(16);not null;uniqueIndex:uk_pid_work_item,priority:4"`
	TaskID      uuid.UUID  `json:"task_id" gorm:"type:uuid;not null;uniqueIndex:uk_pid_work_item,priority:5;index"`
	Status      ItemStatus `json:"status" gorm:"type:varchar(16);not null;default:'Pending'"`
	Remarks     *string    `json:"remarks,omitempty" gorm:"type:text"`
	Blocks      int        `json:"blocks" gorm:"not null;default:0"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null"`
}

// PIDClaim закрепляет P&ID за одним исполнителем на тип задачи.
// Первичный ключ (pid_id, task_type) упорядочивает параллельные назначения.
type PIDClaim struct {
	PIDID     uuid.UUID `json:"pid_id" gorm:"column:pid_id;type:uuid;primaryKey"`
	TaskType  TaskType  `json:"task_type" gorm:"type:varchar(16);primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// ItemType выводит тип элемента из заполненной ссылки
func (i PIDWorkItem) ItemType() ItemType {
	switch {
	case i.LineID != nil:
		return ItemLine
	case i.EquipmentID != nil:
		return ItemEquipment
	default:
		return ItemPID
	}
}

// ItemKey - естественный ключ физического элемента внутри P&ID
func ItemKey(lineID, equipmentID *uuid.UUID) string {
	switch {
	case lineID != nil:
		return "line:" + lineID.String()
	case equipmentID != nil:
		return "equipment:" + equipmentID.String()
	default:
		return "pid"
	}
}

// Models возвращает модели движка для миграции
func Models() []interface{} {
	return []interface{}{&Task{}, &WorkItem{}, &PIDWorkItem{}, &PIDClaim{}}
}
