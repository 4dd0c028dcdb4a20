package pricing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-ims/meridian/internal/platform/httpx"
	"github.com/meridian-ims/meridian/internal/shared"
)

// Handler wires HTTP endpoints for tier pricing.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs pricing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tiers", h.handleListTiers)
	r.Get("/items/{itemID}/pricing", h.handleGetPricing)
	r.Put("/items/{itemID}/pricing", h.handlePutPricing)
	r.Get("/me/selling-tiers", h.handleSellingTiers)
}

type priceSetPayload struct {
	Prices map[string]string `json:"prices"`
}

func (h *Handler) handleListTiers(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"tiers": Tiers()})
}

func (h *Handler) handleGetPricing(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	prices, err := h.service.GetItemPricing(r.Context(), itemID)
	if err != nil {
		h.logger.Error("get item pricing", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make(map[string]string, len(prices))
	for tier, price := range prices {
		out[string(tier)] = price.String()
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID, "prices": out})
}

func (h *Handler) handlePutPricing(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	var payload priceSetPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	prices := PriceSet{}
	for tierStr, priceStr := range payload.Prices {
		tier, err := ParseTier(tierStr)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown tier "+tierStr)
			return
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid price for tier "+tierStr)
			return
		}
		prices[tier] = price
	}

	actorID := shared.CurrentUserID(r.Context())
	if err := h.service.SaveItemPricing(r.Context(), actorID, itemID, prices); err != nil {
		var vErr *ValidationFailedError
		if errors.As(err, &vErr) {
			violations := make([]httpx.FieldViolation, 0, len(vErr.Violations))
			for _, v := range vErr.Violations {
				violations = append(violations, httpx.FieldViolation{Field: string(v.TierA), Message: v.Message()})
			}
			httpx.Violations(w, "Pricing Validation Failed", violations)
			return
		}
		h.logger.Error("save item pricing", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID, "status": "saved"})
}

func (h *Handler) handleSellingTiers(w http.ResponseWriter, r *http.Request) {
	userID := shared.CurrentUserID(r.Context())
	if userID == 0 {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	tiers, err := h.service.SellingTiersFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("selling tiers", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tiers": tiers})
}
