package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryPricingRepo struct {
	sets map[int64]PriceSet
}

func newMemoryPricingRepo() *memoryPricingRepo {
	return &memoryPricingRepo{sets: make(map[int64]PriceSet)}
}

func (r *memoryPricingRepo) GetPriceSet(ctx context.Context, itemID int64) (PriceSet, error) {
	set, ok := r.sets[itemID]
	if !ok {
		return nil, ErrPriceSetNotFound
	}
	return set, nil
}

func (r *memoryPricingRepo) SavePriceSet(ctx context.Context, itemID int64, prices PriceSet) error {
	r.sets[itemID] = prices
	return nil
}

type staticTierPort struct {
	tier *Tier
}

func (p staticTierPort) GetCostTier(ctx context.Context, userID int64) (*Tier, error) {
	return p.tier, nil
}

func TestSaveItemPricingRejectsBrokenHierarchy(t *testing.T) {
	repo := newMemoryPricingRepo()
	svc := NewService(repo, staticTierPort{}, nil)
	ctx := context.Background()

	err := svc.SaveItemPricing(ctx, 1, 42, PriceSet{
		TierRD: price("100"),
		TierPD: price("150"),
	})
	var vErr *ValidationFailedError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Violations, 1)
	require.Empty(t, repo.sets, "rejected save must not persist")
}

func TestSaveItemPricingPersistsValidSet(t *testing.T) {
	repo := newMemoryPricingRepo()
	svc := NewService(repo, staticTierPort{}, nil)
	ctx := context.Background()

	set := PriceSet{
		TierRD:  price("200"),
		TierPD:  price("180"),
		TierSRP: price("150"),
	}
	require.NoError(t, svc.SaveItemPricing(ctx, 1, 42, set))

	got, err := svc.GetItemPricing(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, set, got)
}

func TestGetItemPricingDefaultsToEmptySet(t *testing.T) {
	svc := NewService(newMemoryPricingRepo(), staticTierPort{}, nil)
	got, err := svc.GetItemPricing(context.Background(), 7)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSellingTiersForRestrictedUser(t *testing.T) {
	pd := TierPD
	svc := NewService(newMemoryPricingRepo(), staticTierPort{tier: &pd}, nil)
	tiers, err := svc.SellingTiersFor(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, []Tier{TierDD, TierCD, TierRS, TierSubRS, TierSRP}, tiers)
}
