package txn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-ims/meridian/internal/batch"
	"github.com/meridian-ims/meridian/internal/platform/httpx"
	"github.com/meridian-ims/meridian/internal/shared"
)

// BatchPort looks up batches for outgoing line resolution.
type BatchPort interface {
	Get(ctx context.Context, id int64) (batch.Batch, error)
}

// Handler wires HTTP endpoints for transactions.
type Handler struct {
	logger  *slog.Logger
	service *Service
	batches BatchPort
	numbers NumberChecker
}

// NewHandler constructs transaction handler.
func NewHandler(logger *slog.Logger, service *Service, batches BatchPort, numbers NumberChecker) *Handler {
	return &Handler{logger: logger, service: service, batches: batches, numbers: numbers}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/transactions", h.handleList)
	r.Get("/transactions/{txID}", h.handleGet)
	r.Post("/transactions", h.handleSubmit)
	r.Post("/transactions/{txID}/complete", h.handleComplete)
	r.Post("/transactions/{txID}/cancel", h.handleCancel)
	r.Get("/transaction-types", h.handleTypes)
}

type submitLinePayload struct {
	ItemID      int64   `json:"item_id"`
	Quantity    int     `json:"quantity"`
	BatchID     int64   `json:"batch_id,omitempty"`
	BatchNumber string  `json:"batch_number,omitempty"`
	CostPrice   string  `json:"cost_price,omitempty"`
	ExpiryDate  *string `json:"expiry_date,omitempty"`
}

type submitPayload struct {
	ClientRequestID string              `json:"client_request_id"`
	Type            string              `json:"transaction_type"`
	BrandID         int64               `json:"brand_id,omitempty"`
	CustomerName    string              `json:"customer_name,omitempty"`
	DueDate         *string             `json:"due_date,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Lines           []submitLinePayload `json:"lines"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	builder, err := NewBuilderFromLabel(payload.Type)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	builder.SetBrand(payload.BrandID)
	builder.SetCustomer(payload.CustomerName)
	builder.SetNotes(payload.Notes)
	if payload.DueDate != nil {
		due, err := time.Parse("2006-01-02", *payload.DueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
			return
		}
		builder.SetDueDate(&due)
	}

	if violations, err := h.fillLines(r.Context(), builder, payload.Lines); err != nil {
		httpx.RespondError(w, mapTxErr(err))
		return
	} else if len(violations) > 0 {
		httpx.Violations(w, "Transaction Validation Failed", violations)
		return
	}

	built, violations := builder.Build(r.Context(), h.numbers)
	if len(violations) > 0 {
		fieldViolations := make([]httpx.FieldViolation, 0, len(violations))
		for _, v := range violations {
			fieldViolations = append(fieldViolations, httpx.FieldViolation{Line: v.Line + 1, Field: v.Field, Message: v.Message})
		}
		httpx.Violations(w, "Transaction Validation Failed", fieldViolations)
		return
	}

	posted, err := h.service.Submit(r.Context(), SubmitInput{
		ClientRequestID: payload.ClientRequestID,
		ActorID:         shared.CurrentUserID(r.Context()),
		Tx:              built,
	})
	if err != nil {
		h.logger.Error("submit transaction", slog.Any("error", err))
		httpx.RespondError(w, mapTxErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, posted)
}

// fillLines transfers payload lines into the builder, resolving selected
// batches for outgoing lines. Malformed per-line input comes back as
// violations rather than opaque errors.
func (h *Handler) fillLines(ctx context.Context, builder *Builder, lines []submitLinePayload) ([]httpx.FieldViolation, error) {
	var violations []httpx.FieldViolation
	for _, in := range lines {
		idx, err := builder.AddLine()
		if err != nil {
			return nil, err
		}
		if in.ItemID == 0 {
			continue
		}
		_ = builder.SelectItem(idx, in.ItemID)
		_ = builder.SetQuantity(idx, in.Quantity)

		if builder.Type() == TypeOutgoing {
			if in.BatchID == 0 {
				continue
			}
			b, err := h.batches.Get(ctx, in.BatchID)
			if err != nil {
				if errors.Is(err, batch.ErrNotFound) {
					violations = append(violations, httpx.FieldViolation{Line: idx + 1, Field: "batch_id", Message: "batch not found"})
					continue
				}
				return nil, err
			}
			_ = builder.SelectBatch(idx, b)
			continue
		}

		cost := decimal.Zero
		if in.CostPrice != "" {
			cost, err = decimal.NewFromString(in.CostPrice)
			if err != nil {
				violations = append(violations, httpx.FieldViolation{Line: idx + 1, Field: "cost_price", Message: "invalid decimal"})
				continue
			}
		}
		var expires *time.Time
		if in.ExpiryDate != nil && *in.ExpiryDate != "" {
			d, err := time.Parse("2006-01-02", *in.ExpiryDate)
			if err != nil {
				violations = append(violations, httpx.FieldViolation{Line: idx + 1, Field: "expiry_date", Message: "must be YYYY-MM-DD"})
				continue
			}
			expires = &d
		}
		_ = builder.SetIncomingDetails(idx, in.BatchNumber, cost, expires)
	}
	return violations, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{Status: Status(q.Get("status")), Type: Type(q.Get("type"))}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	txs, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "txID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapTxErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.service.Complete)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.service.Cancel)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, int64) (Transaction, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "txID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	t, err := fn(r.Context(), shared.CurrentUserID(r.Context()), id)
	if err != nil {
		h.logger.Error("settle transaction", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, mapTxErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

// handleTypes feeds the entry form's type selector with verbose labels.
func (h *Handler) handleTypes(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"types": []map[string]string{
			{"value": string(TypeIncoming), "label": LabelIncoming},
			{"value": string(TypeOutgoing), "label": LabelOutgoing},
		},
	})
}

func mapTxErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, batch.ErrNotFound):
		return httpx.ErrNotFound
	case errors.Is(err, batch.ErrInsufficientStock):
		return httpx.ErrInsufficientStock
	case errors.Is(err, batch.ErrDuplicateBatchNumber), errors.Is(err, shared.ErrIdempotencyConflict):
		return httpx.ErrDuplicate
	case errors.Is(err, ErrNotPending):
		return httpx.ErrDuplicate
	case errors.Is(err, ErrTooManyLines), errors.Is(err, ErrUnknownTypeLabel), errors.Is(err, ErrBatchItemMismatch):
		return httpx.ErrValidation
	default:
		return err
	}
}
