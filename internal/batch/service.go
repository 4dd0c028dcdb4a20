package batch

import (
	"context"
	"errors"
	"time"
)

// RepositoryPort abstracts batch persistence for the service.
type RepositoryPort interface {
	ListByItem(ctx context.Context, itemID int64) ([]Batch, error)
	ListNumbersByItem(ctx context.Context, itemID int64) ([]string, error)
	NumberExists(ctx context.Context, itemID int64, number string) (bool, error)
}

// View is a batch enriched with derived fields for API consumers.
type View struct {
	Batch
	Status       Status `json:"status"`
	Expired      bool   `json:"is_expired"`
	DaysToExpiry *int   `json:"days_to_expiry,omitempty"`
}

// Service exposes batch reads and number bookkeeping.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ListForItem returns the item's batches with derived expiry and status,
// ordered oldest purchase first so a caller can apply FIFO by hand.
func (s *Service) ListForItem(ctx context.Context, itemID int64) ([]View, error) {
	if itemID == 0 {
		return nil, errors.New("batch: item required")
	}
	batches, err := s.repo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	today := s.now()
	views := make([]View, 0, len(batches))
	for _, b := range batches {
		expiry := DeriveExpiry(b, today)
		views = append(views, View{
			Batch:        b,
			Status:       DeriveStatus(b, today),
			Expired:      expiry.Expired,
			DaysToExpiry: expiry.DaysToExpiry,
		})
	}
	return views, nil
}

// ListActiveForItem filters to batches an outgoing line may draw from.
func (s *Service) ListActiveForItem(ctx context.Context, itemID int64) ([]View, error) {
	views, err := s.ListForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	active := views[:0]
	for _, v := range views {
		if v.Status == StatusActive {
			active = append(active, v)
		}
	}
	return active, nil
}

// SuggestNextNumber proposes the next sequential client-formatted number for
// the item. A repository failure degrades to B-001 rather than blocking
// entry; the submit-time uniqueness check remains authoritative.
func (s *Service) SuggestNextNumber(ctx context.Context, itemID int64) (string, error) {
	if itemID == 0 {
		return "", errors.New("batch: item required")
	}
	numbers, err := s.repo.ListNumbersByItem(ctx, itemID)
	if err != nil {
		return NextNumber(nil), nil
	}
	return NextNumber(numbers), nil
}

// ValidateNewNumber checks format and uniqueness of a batch number for an
// incoming line. Uniqueness is scoped per item.
func (s *Service) ValidateNewNumber(ctx context.Context, itemID int64, number string) error {
	if err := ValidateNumberFormat(number); err != nil {
		return err
	}
	exists, err := s.repo.NumberExists(ctx, itemID, number)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateBatchNumber
	}
	return nil
}

// NumberExists satisfies the transaction builder's lookup collaborator.
func (s *Service) NumberExists(ctx context.Context, itemID int64, number string) (bool, error) {
	return s.repo.NumberExists(ctx, itemID, number)
}
