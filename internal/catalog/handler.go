package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ims/meridian/internal/platform/httpx"
	"github.com/meridian-ims/meridian/internal/shared"
)

// Handler wires HTTP endpoints for items and brands.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.handleListItems)
	r.Get("/items/{itemID}", h.handleGetItem)
	r.Post("/items", h.handleSaveItem)
	r.Get("/brands", h.handleListBrands)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ItemFilter{All: q.Get("all") == "true"}
	if brandStr := q.Get("brand_id"); brandStr != "" {
		id, err := strconv.ParseInt(brandStr, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid brand id")
			return
		}
		filter.BrandID = id
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	items, pagination, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		h.logger.Error("list items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": pagination})
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

type saveItemPayload struct {
	ID          int64  `json:"item_id"`
	Name        string `json:"name" validate:"required,max=100"`
	ModelNumber string `json:"model_number" validate:"required,max=50"`
	Type        string `json:"type" validate:"required"`
	Category    string `json:"category" validate:"required"`
	BrandID     int64  `json:"brand_id" validate:"required,gt=0"`
	Threshold   int    `json:"threshold_value" validate:"gte=0,lte=32767"`
}

func (h *Handler) handleSaveItem(w http.ResponseWriter, r *http.Request) {
	var payload saveItemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		var violations []httpx.FieldViolation
		for _, fieldErr := range err.(validator.ValidationErrors) {
			violations = append(violations, httpx.FieldViolation{Field: fieldErr.Field(), Message: fieldErr.Tag()})
		}
		httpx.Violations(w, "Item Validation Failed", violations)
		return
	}

	item := Item{
		ID:          payload.ID,
		Name:        payload.Name,
		ModelNumber: payload.ModelNumber,
		Type:        payload.Type,
		Category:    payload.Category,
		BrandID:     payload.BrandID,
		Threshold:   payload.Threshold,
	}
	saved, err := h.service.SaveItem(r.Context(), shared.CurrentUserID(r.Context()), item)
	if err != nil {
		h.logger.Error("save item", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) handleListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.ListBrands(r.Context())
	if err != nil {
		// Brand list failure degrades the consuming form, it must not crash it.
		h.logger.Error("list brands", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrReferenceData)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"brands": brands})
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return httpx.ErrNotFound
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidModelNumber), errors.Is(err, ErrInvalidThreshold):
		return httpx.ErrValidation
	default:
		return err
	}
}
