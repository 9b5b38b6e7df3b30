package metrics

import (
	"context"
	"net/http"
	"time"

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
	mux.HandleFunc("GET /metrics", h.Report)
}

// Report - GET /metrics?date=YYYY-MM-DD&user_id=&item_type=
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, "authorization required")
		return
	}

	query := r.URL.Query()
	q := Query{ItemType: query.Get("item_type")}

	if raw := query.Get("date"); raw != "" {
		date, err := time.Parse(DayLayout, raw)
		if err != nil {
			respond.Error(w, r, apperr.Validation("date must be YYYY-MM-DD"))
			return
		}
		q.Date = date
	}

	if raw := query.Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respond.Error(w, r, apperr.Validation("invalid user_id"))
			return
		}
		q.UserID = &id
	}

	report, err := h.service.Report(r.Context(), principal, q)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, dto.MetricsResponse{
		Date:    report.Date,
		Daily:   toSummaryDTO(report.Daily),
		Weekly:  toSummaryDTO(report.Weekly),
		Monthly: toSummaryDTO(report.Monthly),
	})
}

func toSummaryDTO(summaries []Summary) []dto.MetricsSummary {
	out := make([]dto.MetricsSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, dto.MetricsSummary{
			UserID:      s.UserID.String(),
			Counts:      s.Counts,
			TotalBlocks: s.TotalBlocks,
		})
	}
	return out
}
