package overrides

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hostelcore/hostelcore/internal/authz"
	"github.com/hostelcore/hostelcore/internal/platform/httpx"
	"github.com/hostelcore/hostelcore/internal/shared"
)

// Handler exposes override management over HTTP. The router mounts it behind
// the overrides-edit capability guard.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs an overrides handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers override endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overrides/{subject}", h.handleGet)
	r.Put("/overrides/{subject}", h.handleUpdate)
	r.Post("/overrides/{subject}/reset", h.handleReset)
}

type mutateRequest struct {
	Override authz.Override `json:"override"`
	Reason   string         `json:"reason"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "subject"))
	if err != nil {
		h.respondError(w, "get override", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req mutateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	rec, err := h.service.Update(r.Context(), Mutation{
		Subject:  chi.URLParam(r, "subject"),
		Actor:    actor,
		Reason:   req.Reason,
		Override: req.Override,
	})
	if err != nil {
		h.respondError(w, "update override", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req mutateRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
	}
	rec, err := h.service.Reset(r.Context(), Mutation{
		Subject: chi.URLParam(r, "subject"),
		Actor:   actor,
		Reason:  req.Reason,
	})
	if err != nil {
		h.respondError(w, "reset override", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidSubject),
		errors.Is(err, ErrUnknownRole),
		errors.Is(err, ErrInvalidOverride):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, shared.ErrLockHeld):
		httpx.RespondError(w, fmt.Errorf("%w: concurrent override mutation", httpx.ErrConflict))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
