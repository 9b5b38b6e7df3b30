package registry

import (
	"context"
	"net/http"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/dto"
	"github.com/CognitionIES/teamsync/internal/respond"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterHandlers(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("POST /pids/{id}/lines", h.CreateLines)
}

// CreateLines - POST /pids/{id}/lines
func (h *Handler) CreateLines(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, "authorization required")
		return
	}

	pidID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respond.Error(w, r, apperr.Validation("invalid pid id"))
		return
	}

	var req dto.CreateLinesRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	lines, err := h.service.CreateLines(r.Context(), principal, pidID, req.LineNumbers)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]dto.LineResponse, 0, len(lines))
	for _, line := range lines {
		resp = append(resp, dto.LineResponse{
			ID:         line.ID.String(),
			PIDID:      line.PIDID.String(),
			LineNumber: line.LineNo,
		})
	}
	respond.JSON(w, http.StatusCreated, resp)
}
