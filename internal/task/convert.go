package task

import (
	"time"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/CognitionIES/teamsync/internal/dto"
	"github.com/google/uuid"
)

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s", field)
	}
	return id, nil
}

func parseOptionalID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := parseID(*raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func assignItemsInput(req dto.AssignItemsRequest) (AssignItemsInput, error) {
	assignee, err := parseID(req.AssigneeID, "assignee_id")
	if err != nil {
		return AssignItemsInput{}, err
	}
	project, err := parseOptionalID(&req.ProjectID, "project_id")
	if err != nil {
		return AssignItemsInput{}, err
	}

	items := make([]ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ItemInput{Name: item.Name, Type: ItemType(item.Type)})
	}

	return AssignItemsInput{
		TaskType:   TaskType(req.TaskType),
		AssigneeID: assignee,
		ProjectID:  project,
		Items:      items,
		IsComplex:  req.IsComplex,
	}, nil
}

func assignPIDInput(req dto.AssignPIDRequest) (AssignPIDInput, error) {
	pidID, err := parseID(req.PIDID, "pid_id")
	if err != nil {
		return AssignPIDInput{}, err
	}
	userID, err := parseID(req.UserID, "user_id")
	if err != nil {
		return AssignPIDInput{}, err
	}
	projectID, err := parseID(req.ProjectID, "project_id")
	if err != nil {
		return AssignPIDInput{}, err
	}
	return AssignPIDInput{
		PIDID:     pidID,
		UserID:    userID,
		TaskType:  TaskType(req.TaskType),
		ProjectID: projectID,
	}, nil
}

func markInput(req dto.MarkPIDItemRequest) (MarkInput, error) {
	pidID, err := parseID(req.PIDID, "pid_id")
	if err != nil {
		return MarkInput{}, err
	}
	userID, err := parseID(req.UserID, "user_id")
	if err != nil {
		return MarkInput{}, err
	}
	lineID, err := parseOptionalID(req.LineID, "line_id")
	if err != nil {
		return MarkInput{}, err
	}
	equipmentID, err := parseOptionalID(req.EquipmentID, "equipment_id")
	if err != nil {
		return MarkInput{}, err
	}
	return MarkInput{
		PIDID:       pidID,
		LineID:      lineID,
		EquipmentID: equipmentID,
		UserID:      userID,
		TaskType:    TaskType(req.TaskType),
		Status:      ItemStatus(req.Status),
		Blocks:      req.Blocks,
		Remarks:     req.Remarks,
	}, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func formatID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toTaskResponse(t Task) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:          t.ID.String(),
		Type:        string(t.Type),
		AssigneeID:  t.AssigneeID.String(),
		Status:      string(t.Status),
		IsComplex:   t.IsComplex,
		IsPIDBased:  t.IsPIDBased,
		Progress:    t.Progress,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
		CompletedAt: formatTime(t.CompletedAt),
	}
	if t.ProjectID != nil {
		resp.ProjectID = t.ProjectID.String()
	}
	return resp
}

func toDetailsResponse(d Details) dto.TaskResponse {
	resp := toTaskResponse(d.Task)
	for _, item := range d.Items {
		resp.Items = append(resp.Items, toWorkItemResponse(item))
	}
	for _, item := range d.PIDItems {
		resp.PIDItems = append(resp.PIDItems, toPIDItemResponse(item))
	}
	return resp
}

func toWorkItemResponse(item WorkItem) dto.WorkItemResponse {
	return dto.WorkItemResponse{
		ID:          item.ID.String(),
		Name:        item.Name,
		Type:        string(item.ItemType),
		Completed:   item.Completed,
		CompletedAt: formatTime(item.CompletedAt),
		Blocks:      item.Blocks,
	}
}

func toPIDItemResponse(item PIDWorkItem) dto.PIDWorkItemResponse {
	return dto.PIDWorkItemResponse{
		ID:          item.ID.String(),
		PIDID:       item.PIDID.String(),
		LineID:      formatID(item.LineID),
		EquipmentID: formatID(item.EquipmentID),
		UserID:      item.UserID.String(),
		TaskType:    string(item.TaskType),
		Status:      string(item.Status),
		Remarks:     item.Remarks,
		Blocks:      item.Blocks,
		CompletedAt: formatTime(item.CompletedAt),
	}
}

func toAssignPIDResponse(r AssignPIDResult) dto.AssignPIDResponse {
	return dto.AssignPIDResponse{
		TaskID:     r.Task.ID.String(),
		PIDNumber:  r.PIDNumber,
		ItemsCount: r.ItemsCount,
		IsNewTask:  r.IsNewTask,
	}
}

func toMarkResponse(r MarkResult) dto.MarkItemResponse {
	return dto.MarkItemResponse{
		ID:           r.Item.ID.String(),
		Status:       string(r.Item.Status),
		Blocks:       r.Item.Blocks,
		TaskID:       r.Task.ID.String(),
		TaskStatus:   string(r.Task.Status),
		TaskProgress: r.Task.Progress,
	}
}

func toCompleteResponse(r CompleteResult) dto.MarkItemResponse {
	status := string(ItemPending)
	if r.Item.Completed {
		status = string(ItemCompleted)
	}
	return dto.MarkItemResponse{
		ID:           r.Item.ID.String(),
		Status:       status,
		Blocks:       r.Item.Blocks,
		TaskID:       r.Task.ID.String(),
		TaskStatus:   string(r.Task.Status),
		TaskProgress: r.Task.Progress,
	}
}
