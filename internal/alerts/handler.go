package alerts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-ims/meridian/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the alerts view.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs alerts handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers alert routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/alerts", h.handleList)
	r.Post("/alerts/requisition", h.handleRequisition)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list alerts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

type requisitionPayload struct {
	Overrides map[int64]float64 `json:"overrides"`
}

func (h *Handler) handleRequisition(w http.ResponseWriter, r *http.Request) {
	var payload requisitionPayload
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
			return
		}
	}
	lines, err := h.service.BuildRequisition(r.Context(), payload.Overrides)
	if err != nil {
		if errors.Is(err, ErrInvalidRequestedQty) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("build requisition", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requisition": lines})
}
