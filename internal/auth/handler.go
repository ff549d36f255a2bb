package auth

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

// OverrideSource resolves the override that applies to a user at login.
type OverrideSource interface {
	ForUser(ctx context.Context, userID int64, role authz.Role) (authz.Override, error)
}

// Handler serves login and logout. A successful login synchronizes the
// effective authorization snapshot into the session before responding, so the
// very first authenticated request already carries it.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	catalog   *authz.Catalog
	overrides OverrideSource
	sessions  *shared.SessionManager
	metrics   *authz.Metrics
}

// NewHandler constructs an auth handler.
func NewHandler(logger *slog.Logger, service *Service, catalog *authz.Catalog, overrides OverrideSource, sessions *shared.SessionManager, metrics *authz.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		catalog:   catalog,
		overrides: overrides,
		sessions:  sessions,
		metrics:   metrics,
	}
}

// MountRoutes registers auth endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID        int64           `json:"id"`
	Email     string          `json:"email"`
	Role      string          `json:"role"`
	RoleName  string          `json:"roleName"`
	Effective authz.Effective `json:"effective"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		httpx.RespondError(w, fmt.Errorf("%w: email and password required", httpx.ErrValidation))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	// Unknown roles resolve against the deny-all profile; the account can
	// sign in but reaches nothing.
	role, ok := authz.ParseRole(user.Role)
	if !ok {
		h.logger.Warn("user has unrecognized role",
			slog.Int64("user_id", user.ID), slog.String("role", user.Role))
		role = authz.Role(user.Role)
	}
	override, err := h.overrides.ForUser(r.Context(), user.ID, role)
	if err != nil {
		h.logger.Error("load override", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	// The pre-login session ID is never carried into the authenticated
	// session.
	if err := h.sessions.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	snap, err := authz.Sync(sess, h.catalog, role, override)
	if err != nil {
		h.logger.Error("sync authorization", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.SyncRecorded()

	httpx.JSON(w, http.StatusOK, loginResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      role.String(),
		RoleName:  role.DisplayName(),
		Effective: snap.Effective,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	h.sessions.Destroy(sess)
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
