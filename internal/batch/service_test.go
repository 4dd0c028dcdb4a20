package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryBatchRepo struct {
	batches map[int64][]Batch
	fail    bool
}

func newMemoryBatchRepo() *memoryBatchRepo {
	return &memoryBatchRepo{batches: make(map[int64][]Batch)}
}

func (r *memoryBatchRepo) ListByItem(ctx context.Context, itemID int64) ([]Batch, error) {
	if r.fail {
		return nil, errors.New("repo down")
	}
	return r.batches[itemID], nil
}

func (r *memoryBatchRepo) ListNumbersByItem(ctx context.Context, itemID int64) ([]string, error) {
	if r.fail {
		return nil, errors.New("repo down")
	}
	var numbers []string
	for _, b := range r.batches[itemID] {
		numbers = append(numbers, b.Number)
	}
	return numbers, nil
}

func (r *memoryBatchRepo) NumberExists(ctx context.Context, itemID int64, number string) (bool, error) {
	if r.fail {
		return false, errors.New("repo down")
	}
	for _, b := range r.batches[itemID] {
		if b.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func TestListForItemDerivesStatus(t *testing.T) {
	repo := newMemoryBatchRepo()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -2)
	future := now.AddDate(0, 0, 10)
	repo.batches[10] = []Batch{
		{ID: 1, ItemID: 10, Number: "B-001", InitialQty: 5, AvailableQty: 5, ExpiresAt: &future},
		{ID: 2, ItemID: 10, Number: "B-002", InitialQty: 5, SoldQty: 5},
		{ID: 3, ItemID: 10, Number: "B-003", InitialQty: 5, AvailableQty: 5, ExpiresAt: &past},
	}

	svc := NewService(repo)
	svc.now = func() time.Time { return now }

	views, err := svc.ListForItem(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, views, 3)
	require.Equal(t, StatusActive, views[0].Status)
	require.Equal(t, 10, *views[0].DaysToExpiry)
	require.Equal(t, StatusDepleted, views[1].Status)
	require.Equal(t, StatusExpired, views[2].Status)
	require.True(t, views[2].Expired)

	active, err := svc.ListActiveForItem(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "B-001", active[0].Number)
}

func TestSuggestNextNumber(t *testing.T) {
	repo := newMemoryBatchRepo()
	repo.batches[10] = []Batch{{Number: "B-004"}, {Number: "B-002"}}
	svc := NewService(repo)

	number, err := svc.SuggestNextNumber(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, "B-005", number)
}

func TestSuggestNextNumberDegradesOnRepoFailure(t *testing.T) {
	repo := newMemoryBatchRepo()
	repo.fail = true
	svc := NewService(repo)

	number, err := svc.SuggestNextNumber(context.Background(), 10)
	require.NoError(t, err, "suggestion must not block entry")
	require.Equal(t, "B-001", number)
}

func TestValidateNewNumber(t *testing.T) {
	repo := newMemoryBatchRepo()
	repo.batches[10] = []Batch{{Number: "B-001"}}
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.ValidateNewNumber(ctx, 10, "B-002"))
	require.ErrorIs(t, svc.ValidateNewNumber(ctx, 10, "B-001"), ErrDuplicateBatchNumber)
	// Uniqueness is scoped per item.
	require.NoError(t, svc.ValidateNewNumber(ctx, 11, "B-001"))
	require.ErrorIs(t, svc.ValidateNewNumber(ctx, 10, "batch-1"), ErrInvalidBatchFormat)
}
