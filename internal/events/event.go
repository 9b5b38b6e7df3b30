package events

import (
	"time"
)

// Типы событий задач
const (
	TypeTaskAssigned  = "TASK_ASSIGNED"
	TypeTaskProgress  = "TASK_PROGRESS"
	TypeTaskCompleted = "TASK_COMPLETED"
)

// TaskEvent - событие изменения задачи в Kafka
type TaskEvent struct {
	Type       string    `json:"type"`
	TaskID     string    `json:"taskId"`
	UserID     string    `json:"userId"`
	ActorID    string    `json:"actorId,omitempty"`
	AssignedBy string    `json:"assignedBy,omitempty"`
	TaskType   string    `json:"taskType"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Timestamp  time.Time `json:"timestamp"`
}
