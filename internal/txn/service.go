package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ims/meridian/internal/batch"
	"github.com/meridian-ims/meridian/internal/pricing"
	"github.com/meridian-ims/meridian/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter Filter) ([]Transaction, error)
	Get(ctx context.Context, id int64) (Transaction, error)
}

// TxRepository exposes transactional operations used during posting.
type TxRepository interface {
	NextReference(ctx context.Context, year int) (string, error)
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	InsertLines(ctx context.Context, txID int64, lines []Line) error
	GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	GetBatchForUpdate(ctx context.Context, batchID int64) (batch.Batch, error)
	UpdateBatchQuantities(ctx context.Context, b batch.Batch) error
	InsertBatch(ctx context.Context, b batch.Batch) (int64, error)
	BatchNumberExists(ctx context.Context, itemID int64, number string) (bool, error)
	AdjustItemQuantity(ctx context.Context, itemID int64, delta int) error
}

// Filter narrows transaction listings.
type Filter struct {
	Status Status
	Type   Type
	Limit  int
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// UserTierPort resolves the actor's purchase tier for created batches.
type UserTierPort interface {
	GetCostTier(ctx context.Context, userID int64) (*pricing.Tier, error)
}

// ErrBatchItemMismatch indicates a line's batch belongs to another item.
var ErrBatchItemMismatch = errors.New("txn: selected batch does not belong to the line's item")

// Service posts transactions against the batch ledger.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	userTiers   UserTierPort
	now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, userTiers UserTierPort) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, userTiers: userTiers, now: time.Now}
}

// SubmitInput carries a built payload to post.
type SubmitInput struct {
	ClientRequestID string
	ActorID         int64
	Tx              Transaction
}

// Submit posts a built transaction. Every check the builder ran client-side
// runs again here under a row lock, so a stale snapshot surfaces as a
// structured rejection rather than a silent oversell. Incoming transactions
// complete immediately and create batches; outgoing ones post as Pending and
// reserve stock until completed or cancelled.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (Transaction, error) {
	t := input.Tx
	if t.Type != TypeIncoming && t.Type != TypeOutgoing {
		return Transaction{}, fmt.Errorf("%w: %q", ErrUnknownTypeLabel, t.Type)
	}
	if len(t.Lines) == 0 {
		return Transaction{}, errors.New("txn: at least one line required")
	}
	if len(t.Lines) > MaxLines {
		return Transaction{}, ErrTooManyLines
	}

	insertedKey := false
	if s.idempotency != nil && input.ClientRequestID != "" {
		if _, err := uuid.Parse(input.ClientRequestID); err != nil {
			return Transaction{}, fmt.Errorf("txn: invalid client request id: %w", err)
		}
		if err := s.idempotency.CheckAndInsert(ctx, "txn:"+input.ClientRequestID, "txn"); err != nil {
			return Transaction{}, err
		}
		insertedKey = true
	}

	now := s.now().UTC()
	t.Status = StatusCompleted
	if t.Type == TypeOutgoing {
		t.Status = StatusPending
	}
	t.CreatedBy = input.ActorID
	t.CreatedAt = now

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ref, err := tx.NextReference(ctx, now.Year())
		if err != nil {
			return err
		}
		t.ReferenceNumber = ref

		txID, err := tx.InsertTransaction(ctx, t)
		if err != nil {
			return err
		}
		t.ID = txID

		switch t.Type {
		case TypeOutgoing:
			err = s.postOutgoingLines(ctx, tx, &t)
		case TypeIncoming:
			err = s.postIncomingLines(ctx, tx, &t, now)
		}
		if err != nil {
			return err
		}

		return tx.InsertLines(ctx, txID, t.Lines)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, "txn:"+input.ClientRequestID)
		}
		return Transaction{}, err
	}

	s.recordAudit(ctx, input.ActorID, "txn:submit", t)
	return t, nil
}

func (s *Service) postOutgoingLines(ctx context.Context, tx TxRepository, t *Transaction) error {
	for i := range t.Lines {
		line := &t.Lines[i]
		if line.QuantityChange >= 0 {
			return fmt.Errorf("txn: outgoing line %d must have negative quantity change", i+1)
		}
		qty := -line.QuantityChange
		b, err := tx.GetBatchForUpdate(ctx, line.BatchID)
		if err != nil {
			return err
		}
		if b.ItemID != line.ItemID {
			return ErrBatchItemMismatch
		}
		reserved, err := batch.Reserve(b, qty)
		if err != nil {
			return err
		}
		if err := tx.UpdateBatchQuantities(ctx, reserved); err != nil {
			return err
		}
		if err := tx.AdjustItemQuantity(ctx, line.ItemID, line.QuantityChange); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) postIncomingLines(ctx context.Context, tx TxRepository, t *Transaction, now time.Time) error {
	costTier := pricing.TierRD
	if s.userTiers != nil {
		tier, err := s.userTiers.GetCostTier(ctx, t.CreatedBy)
		if err == nil && tier != nil {
			costTier = *tier
		}
	}
	for i := range t.Lines {
		line := &t.Lines[i]
		if line.QuantityChange <= 0 {
			return fmt.Errorf("txn: incoming line %d must have positive quantity change", i+1)
		}
		if line.CostPrice == nil || !line.CostPrice.IsPositive() {
			return fmt.Errorf("txn: incoming line %d must have a positive cost price", i+1)
		}
		exists, err := tx.BatchNumberExists(ctx, line.ItemID, line.BatchNumber)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", batch.ErrDuplicateBatchNumber, line.BatchNumber)
		}
		created := batch.Batch{
			ItemID:       line.ItemID,
			Number:       line.BatchNumber,
			CostPrice:    *line.CostPrice,
			CostTier:     costTier,
			InitialQty:   line.QuantityChange,
			AvailableQty: line.QuantityChange,
			PurchasedAt:  now,
			ExpiresAt:    line.ExpiresAt,
		}
		batchID, err := tx.InsertBatch(ctx, created)
		if err != nil {
			return err
		}
		line.BatchID = batchID
		if err := tx.AdjustItemQuantity(ctx, line.ItemID, line.QuantityChange); err != nil {
			return err
		}
	}
	return nil
}

// Complete settles a pending outgoing transaction: reserved stock becomes
// sold.
func (s *Service) Complete(ctx context.Context, actorID, id int64) (Transaction, error) {
	return s.settle(ctx, actorID, id, StatusCompleted)
}

// Cancel releases a pending outgoing transaction's reservations.
func (s *Service) Cancel(ctx context.Context, actorID, id int64) (Transaction, error) {
	return s.settle(ctx, actorID, id, StatusCancelled)
}

func (s *Service) settle(ctx context.Context, actorID, id int64, target Status) (Transaction, error) {
	var settled Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != StatusPending {
			return ErrNotPending
		}
		for _, line := range t.Lines {
			if line.QuantityChange >= 0 {
				continue
			}
			qty := -line.QuantityChange
			b, err := tx.GetBatchForUpdate(ctx, line.BatchID)
			if err != nil {
				return err
			}
			var updated batch.Batch
			if target == StatusCompleted {
				updated, err = batch.CommitReservation(b, qty)
			} else {
				updated, err = batch.ReleaseReservation(b, qty)
			}
			if err != nil {
				return err
			}
			if err := tx.UpdateBatchQuantities(ctx, updated); err != nil {
				return err
			}
			if target == StatusCancelled {
				if err := tx.AdjustItemQuantity(ctx, line.ItemID, qty); err != nil {
					return err
				}
			}
		}
		if err := tx.UpdateStatus(ctx, id, target); err != nil {
			return err
		}
		t.Status = target
		settled = t
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	s.recordAudit(ctx, actorID, "txn:"+string(target), settled)
	return settled, nil
}

// List returns transactions matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// Get returns one transaction with lines.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, t Transaction) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "transaction",
		EntityID: fmt.Sprintf("%d", t.ID),
		Meta: map[string]any{
			"reference": t.ReferenceNumber,
			"type":      t.Type,
			"status":    t.Status,
			"lines":     len(t.Lines),
		},
	})
}
