package hostels

import (
	"context"
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

// OverrideSource resolves the override that applies to a user after a
// context change.
type OverrideSource interface {
	ForUser(ctx context.Context, userID int64, role authz.Role) (authz.Override, error)
}

// Handler serves hostel listing and the context-switch workflow. Every
// workflow that changes role-scoping context re-synchronizes the session
// snapshot before responding; the session middleware flushes it ahead of the
// first response byte, so the next request never sees a stale snapshot.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	catalog   *authz.Catalog
	overrides OverrideSource
	metrics   *authz.Metrics
}

// NewHandler constructs a hostels handler.
func NewHandler(logger *slog.Logger, service *Service, catalog *authz.Catalog, overrides OverrideSource, metrics *authz.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		catalog:   catalog,
		overrides: overrides,
		metrics:   metrics,
	}
}

// MountRoutes registers hostel endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/hostels", h.handleList)
	r.Post("/hostels/switch", h.handleSwitch)
}

type switchRequest struct {
	HostelID int64 `json:"hostelId"`
}

type switchResponse struct {
	Hostel    Hostel          `json:"hostel"`
	Effective authz.Effective `json:"effective"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	hostels, err := h.service.ListManaged(r.Context(), userID)
	if err != nil {
		h.logger.Error("list hostels", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, hostels)
}

func (h *Handler) handleSwitch(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	userID, ok := currentUserID(r)
	if !ok || sess == nil {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	snap, ok := authz.FromSession(sess)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	var req switchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if req.HostelID <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: hostelId required", httpx.ErrValidation))
		return
	}

	hostel, err := h.service.Switch(r.Context(), userID, req.HostelID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotManaged):
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrForbidden, err))
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("switch hostel", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}

	override, err := h.overrides.ForUser(r.Context(), userID, snap.Role)
	if err != nil {
		h.logger.Error("load override", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess.Set(SessionHostelKey, strconv.FormatInt(hostel.ID, 10))
	fresh, err := authz.Sync(sess, h.catalog, snap.Role, override)
	if err != nil {
		h.logger.Error("sync authorization", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.SyncRecorded()

	httpx.JSON(w, http.StatusOK, switchResponse{Hostel: hostel, Effective: fresh.Effective})
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
