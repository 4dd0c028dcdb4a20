package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ims/meridian/internal/platform/httpx"
	"github.com/meridian-ims/meridian/internal/pricing"
	"github.com/meridian-ims/meridian/internal/shared"
)

// Handler wires HTTP endpoints for account management.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs users handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users", h.handleList)
	r.Get("/users/{userID}", h.handleGet)
	r.Post("/users", h.handleCreate)
	r.Put("/users/{userID}/cost-tier", h.handleAssignTier)
}

// requireAdmin resolves the session user and checks the admin role.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (int64, bool) {
	actorID := shared.CurrentUserID(r.Context())
	if actorID == 0 {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return 0, false
	}
	actor, err := h.service.Get(r.Context(), actorID)
	if err != nil || actor.Role != RoleAdmin {
		httpx.RespondError(w, httpx.ErrForbidden)
		return 0, false
	}
	return actorID, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapUserErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

type createPayload struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=admin staff"`
	CostTier string `json:"cost_tier" validate:"omitempty"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		var violations []httpx.FieldViolation
		for _, fieldErr := range err.(validator.ValidationErrors) {
			violations = append(violations, httpx.FieldViolation{Field: fieldErr.Field(), Message: fieldErr.Tag()})
		}
		httpx.Violations(w, "User Validation Failed", violations)
		return
	}

	u := User{Username: payload.Username, FullName: payload.FullName, Role: Role(payload.Role)}
	if payload.CostTier != "" {
		tier, err := pricing.ParseTier(payload.CostTier)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown cost tier")
			return
		}
		u.CostTier = &tier
	}

	created, err := h.service.Create(r.Context(), actorID, u, payload.Password)
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, mapUserErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type assignTierPayload struct {
	CostTier *string `json:"cost_tier"`
}

func (h *Handler) handleAssignTier(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}

	var payload assignTierPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	var tier *pricing.Tier
	if payload.CostTier != nil && *payload.CostTier != "" {
		parsed, err := pricing.ParseTier(*payload.CostTier)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown cost tier")
			return
		}
		tier = &parsed
	}

	if err := h.service.AssignCostTier(r.Context(), actorID, id, tier); err != nil {
		h.logger.Error("assign cost tier", slog.Int64("user", id), slog.Any("error", err))
		httpx.RespondError(w, mapUserErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": id, "cost_tier": payload.CostTier})
}

func mapUserErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return httpx.ErrNotFound
	case errors.Is(err, ErrSelfTierEdit):
		return httpx.ErrForbidden
	case errors.Is(err, ErrDuplicateUsername):
		return httpx.ErrDuplicate
	case errors.Is(err, pricing.ErrInvalidTier):
		return httpx.ErrValidation
	default:
		return err
	}
}
