package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hostelcore/hostelcore/internal/audit"
	"github.com/hostelcore/hostelcore/internal/platform/httpx"
)

// Handler serves the authorization audit trail.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
}

// NewHandler constructs a trail handler.
func NewHandler(logger *slog.Logger, service *audit.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type recordResponse struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Action     string    `json:"action"`
	ChangedBy  int64     `json:"changedBy"`
	Reason     string    `json:"reason,omitempty"`
	Before     any       `json:"beforeOverride"`
	After      any       `json:"afterOverride"`
	OccurredAt time.Time `json:"occurredAt"`
}

type trailResponse struct {
	Rows     []recordResponse `json:"rows"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	HasNext  bool             `json:"hasNext"`
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Trail(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit trail", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	rows := make([]recordResponse, 0, len(result.Rows))
	for _, rec := range result.Rows {
		rows = append(rows, recordResponse{
			ID:         rec.ID,
			Target:     rec.Target,
			Action:     rec.Action,
			ChangedBy:  rec.ChangedBy,
			Reason:     rec.Reason,
			Before:     rec.Before,
			After:      rec.After,
			OccurredAt: rec.OccurredAt,
		})
	}
	httpx.JSON(w, http.StatusOK, trailResponse{
		Rows:     rows,
		Page:     result.Paging.Page,
		PageSize: result.Paging.PageSize,
		HasNext:  result.Paging.HasNext,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(chi.URLParam(r, "target"))
	rows, err := h.service.Export(r.Context(), target)
	if err != nil {
		h.logger.Error("export audit trail", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	csvBytes, err := audit.WriteCSV(rows)
	if err != nil {
		h.logger.Error("encode csv", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="authz-audit.csv"`)
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.Filters, error) {
	filters := audit.Filters{
		Target: strings.TrimSpace(chi.URLParam(r, "target")),
		Page:   1,
	}
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, httpx.ErrValidation
		}
		filters.Page = parsed
	}
	if v := strings.TrimSpace(r.URL.Query().Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, httpx.ErrValidation
		}
		filters.PageSize = parsed
	}
	return filters, nil
}
