package batch

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-ims/meridian/internal/platform/httpx"
)

// Handler wires HTTP endpoints for batch lookups used by transaction entry.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs batch handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers batch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items/{itemID}/batches", h.handleList)
	r.Get("/items/{itemID}/batches/next-number", h.handleNextNumber)
	r.Post("/items/{itemID}/batches/validate-number", h.handleValidateNumber)
}

func itemIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	var (
		views []View
		err   error
	)
	if r.URL.Query().Get("active") == "true" {
		views, err = h.service.ListActiveForItem(r.Context(), itemID)
	} else {
		views, err = h.service.ListForItem(r.Context(), itemID)
	}
	if err != nil {
		h.logger.Error("list batches", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID, "batches": views})
}

func (h *Handler) handleNextNumber(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	number, err := h.service.SuggestNextNumber(r.Context(), itemID)
	if err != nil {
		h.logger.Error("suggest batch number", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID, "next_batch_number": number})
}

type validateNumberPayload struct {
	BatchNumber string `json:"batch_number"`
}

func (h *Handler) handleValidateNumber(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	var payload validateNumberPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	err := h.service.ValidateNewNumber(r.Context(), itemID, payload.BatchNumber)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, map[string]any{"valid": true})
	case errors.Is(err, ErrInvalidBatchFormat), errors.Is(err, ErrDuplicateBatchNumber):
		httpx.JSON(w, http.StatusOK, map[string]any{"valid": false, "reason": err.Error()})
	default:
		h.logger.Error("validate batch number", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
