package task

import (
	"context"
	"net/http"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/dto"
	"github.com/CognitionIES/teamsync/internal/respond"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterHandlers(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("POST /tasks", h.AssignItems)
	mux.HandleFunc("POST /tasks/assign-pid", h.AssignPID)
	mux.HandleFunc("GET /tasks", h.ListTasks)
	mux.HandleFunc("GET /tasks/{id}", h.GetTask)
	mux.HandleFunc("PATCH /tasks/{id}/status", h.UpdateStatus)
	mux.HandleFunc("POST /work-items/pid/status", h.MarkPIDItem)
	mux.HandleFunc("POST /work-items/{id}/complete", h.CompleteWorkItem)
}

func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, "authorization required")
	}
	return p, ok
}

// AssignItems - POST /tasks
func (h *Handler) AssignItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	var req dto.AssignItemsRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	in, err := assignItemsInput(req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	details, err := h.service.AssignItems(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toDetailsResponse(details))
}

// AssignPID - POST /tasks/assign-pid
func (h *Handler) AssignPID(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	var req dto.AssignPIDRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	in, err := assignPIDInput(req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.service.AssignPID(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if result.IsNewTask {
		status = http.StatusCreated
	}
	respond.JSON(w, status, toAssignPIDResponse(result))
}

// ListTasks - GET /tasks?assignee_id=&project_id=&type=&status=
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	f := ListFilter{
		Type:   TaskType(query.Get("type")),
		Status: Status(query.Get("status")),
	}
	if raw := query.Get("assignee_id"); raw != "" {
		id, err := parseID(raw, "assignee_id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		f.AssigneeID = &id
	}
	if raw := query.Get("project_id"); raw != "" {
		id, err := parseID(raw, "project_id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		f.ProjectID = &id
	}

	tasks, err := h.service.ListTasks(r.Context(), actor, f)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := dto.TaskListResponse{Tasks: make([]dto.TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(t))
	}
	respond.JSON(w, http.StatusOK, resp)
}

// GetTask - GET /tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseID(r.PathValue("id"), "task id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	details, err := h.service.GetTask(r.Context(), actor, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDetailsResponse(details))
}

// UpdateStatus - PATCH /tasks/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseID(r.PathValue("id"), "task id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req dto.UpdateTaskStatusRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if req.ID != "" && req.ID != id.String() {
		respond.Error(w, r, apperr.Validation("id in body does not match path"))
		return
	}

	t, err := h.service.UpdateTaskStatus(r.Context(), actor, id, Status(req.Status))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, toTaskResponse(t))
}

// MarkPIDItem - POST /work-items/pid/status
func (h *Handler) MarkPIDItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	var req dto.MarkPIDItemRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	in, err := markInput(req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.service.MarkPIDItem(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, toMarkResponse(result))
}

// CompleteWorkItem - POST /work-items/{id}/complete
func (h *Handler) CompleteWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	id, err := parseID(r.PathValue("id"), "work item id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req dto.CompleteWorkItemRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.service.CompleteWorkItem(r.Context(), actor, id, req.Blocks)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, toCompleteResponse(result))
}
