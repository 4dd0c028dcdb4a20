package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-ims/meridian/internal/shared"
)

// RepositoryPort abstracts catalog persistence.
type RepositoryPort interface {
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, int, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	SaveItem(ctx context.Context, item Item) (int64, error)
	ListBrands(ctx context.Context) ([]Brand, error)
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	BrandID int64
	Page    int
	PerPage int
	All     bool
}

// Service coordinates catalog reads and writes.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListItems returns items with derived availability and pagination metadata.
func (s *Service) ListItems(ctx context.Context, filter ItemFilter) ([]Item, shared.Pagination, error) {
	items, total, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range items {
		items[i].Status = DeriveAvailability(items[i].Quantity, items[i].Threshold)
	}
	if filter.All {
		return items, shared.NewPagination(1, total, total), nil
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// GetItem returns one item with derived availability.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	if id == 0 {
		return Item{}, errors.New("catalog: item required")
	}
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	item.Status = DeriveAvailability(item.Quantity, item.Threshold)
	return item, nil
}

// SaveItem validates and persists an item (create when ID is zero).
func (s *Service) SaveItem(ctx context.Context, actorID int64, item Item) (Item, error) {
	if err := item.Validate(); err != nil {
		return Item{}, err
	}
	id, err := s.repo.SaveItem(ctx, item)
	if err != nil {
		return Item{}, err
	}
	item.ID = id
	item.Status = DeriveAvailability(item.Quantity, item.Threshold)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "catalog:save",
			Entity:   "item",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"name": item.Name},
		})
	}
	return item, nil
}

// ListBrands returns brand reference data.
func (s *Service) ListBrands(ctx context.Context) ([]Brand, error) {
	return s.repo.ListBrands(ctx)
}
