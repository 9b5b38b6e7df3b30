package dto

// AssignItem - элемент явного назначения
type AssignItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AssignItemsRequest - назначение задачи со списком элементов (HTTP/gRPC)
type AssignItemsRequest struct {
	TaskType   string       `json:"task_type"`
	AssigneeID string       `json:"assignee_id"`
	ProjectID  string       `json:"project_id"`
	Items      []AssignItem `json:"items"`
	IsComplex  bool         `json:"is_complex,omitempty"`
}

// AssignPIDRequest - назначение всего P&ID пользователю
type AssignPIDRequest struct {
	PIDID     string `json:"pid_id"`
	UserID    string `json:"user_id"`
	TaskType  string `json:"task_type"`
	ProjectID string `json:"project_id"`
}

type AssignPIDResponse struct {
	TaskID     string `json:"task_id"`
	PIDNumber  string `json:"pid_number"`
	ItemsCount int    `json:"items_count"`
	IsNewTask  bool   `json:"is_new_task"`
}

// MarkPIDItemRequest - смена статуса элемента P&ID (линии, оборудования или самого чертежа)
type MarkPIDItemRequest struct {
	PIDID       string  `json:"pid_id"`
	LineID      *string `json:"line_id,omitempty"`
	EquipmentID *string `json:"equipment_id,omitempty"`
	UserID      string  `json:"user_id"`
	TaskType    string  `json:"task_type"`
	Status      string  `json:"status"`
	Blocks      int     `json:"blocks,omitempty"`
	Remarks     *string `json:"remarks,omitempty"`
}

type MarkItemResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Blocks       int    `json:"blocks"`
	TaskID       string `json:"task_id"`
	TaskStatus   string `json:"task_status"`
	TaskProgress int    `json:"task_progress"`
}

type CompleteWorkItemRequest struct {
	ID     string `json:"id,omitempty"`
	Blocks int    `json:"blocks"`
}

type UpdateTaskStatusRequest struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
}

type GetTaskRequest struct {
	ID string `json:"id"`
}

type WorkItemResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Completed   bool    `json:"completed"`
	CompletedAt *string `json:"completed_at,omitempty"`
	Blocks      int     `json:"blocks"`
}

type PIDWorkItemResponse struct {
	ID          string  `json:"id"`
	PIDID       string  `json:"pid_id"`
	LineID      *string `json:"line_id,omitempty"`
	EquipmentID *string `json:"equipment_id,omitempty"`
	UserID      string  `json:"user_id"`
	TaskType    string  `json:"task_type"`
	Status      string  `json:"status"`
	Remarks     *string `json:"remarks,omitempty"`
	Blocks      int     `json:"blocks"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// TaskResponse - задача с её элементами
type TaskResponse struct {
	ID          string                `json:"id"`
	Type        string                `json:"type"`
	AssigneeID  string                `json:"assignee_id"`
	ProjectID   string                `json:"project_id,omitempty"`
	Status      string                `json:"status"`
	IsComplex   bool                  `json:"is_complex"`
	IsPIDBased  bool                  `json:"is_pid_based"`
	Progress    int                   `json:"progress"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
	CompletedAt *string               `json:"completed_at,omitempty"`
	Items       []WorkItemResponse    `json:"items,omitempty"`
	PIDItems    []PIDWorkItemResponse `json:"pid_items,omitempty"`
}

type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}
