package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier identifies one of the fixed distribution pricing levels, ordered from
// the most expensive upstream tier down to suggested retail.
type Tier string

const (
	// TierRD is Regional Distributor, the highest cost tier.
	TierRD Tier = "RD"
	// TierPD is Provincial Distributor.
	TierPD Tier = "PD"
	// TierDD is District Distributor.
	TierDD Tier = "DD"
	// TierCD is City Distributor.
	TierCD Tier = "CD"
	// TierRS is Reseller.
	TierRS Tier = "RS"
	// TierSubRS is Sub-Reseller.
	TierSubRS Tier = "SUB_RS"
	// TierSRP is Suggested Retail Price, the lowest tier.
	TierSRP Tier = "SRP"
)

// tierOrder is the closed total order over tiers. Index 0 is most expensive.
var tierOrder = [...]Tier{TierRD, TierPD, TierDD, TierCD, TierRS, TierSubRS, TierSRP}

// ErrInvalidTier signals a tier string outside the closed set; passing one is
// a caller bug, not user input.
var ErrInvalidTier = errors.New("pricing: invalid tier")

// Tiers returns the tiers in rank order.
func Tiers() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder[:])
	return out
}

// ParseTier validates a tier string.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, err := TierRank(t); err != nil {
		return "", err
	}
	return t, nil
}

// TierRank returns the index of the tier in the fixed order.
func TierRank(t Tier) (int, error) {
	for i, known := range tierOrder {
		if known == t {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTier, t)
}

// AllowedSellingTiers returns every tier strictly lower than the user's cost
// tier. A nil cost tier means unrestricted (admin) and yields all tiers. A
// user may never transact at or above their own cost tier; that guarantees
// margin on every sale.
func AllowedSellingTiers(costTier *Tier) ([]Tier, error) {
	if costTier == nil {
		return Tiers(), nil
	}
	rank, err := TierRank(*costTier)
	if err != nil {
		return nil, err
	}
	out := make([]Tier, 0, len(tierOrder)-rank-1)
	for i := rank + 1; i < len(tierOrder); i++ {
		out = append(out, tierOrder[i])
	}
	return out, nil
}

// CanSellAt reports whether a user with the given cost tier may transact at
// the candidate tier.
func CanSellAt(costTier *Tier, candidate Tier) (bool, error) {
	candidateRank, err := TierRank(candidate)
	if err != nil {
		return false, err
	}
	if costTier == nil {
		return true, nil
	}
	costRank, err := TierRank(*costTier)
	if err != nil {
		return false, err
	}
	return candidateRank > costRank, nil
}

// PriceSet maps each tier to a price for one item. A zero price means the
// tier is unset and is exempt from hierarchy comparison.
type PriceSet map[Tier]decimal.Decimal

// ViolationKind classifies a pricing rule violation.
type ViolationKind string

const (
	// ViolationHierarchy means an earlier tier is priced below a later one.
	ViolationHierarchy ViolationKind = "HIERARCHY"
	// ViolationNegativePrice means a single tier price is negative.
	ViolationNegativePrice ViolationKind = "NEGATIVE_PRICE"
)

// Violation describes one broken pricing rule. Hierarchy violations carry the
// adjacent tier pair; negative price violations carry only TierA.
type Violation struct {
	Kind  ViolationKind `json:"kind"`
	TierA Tier          `json:"tier_a"`
	TierB Tier          `json:"tier_b,omitempty"`
}

// Message renders a user-facing description of the violation.
func (v Violation) Message() string {
	switch v.Kind {
	case ViolationHierarchy:
		return fmt.Sprintf("%s price must be greater than or equal to %s price", v.TierA, v.TierB)
	case ViolationNegativePrice:
		return fmt.Sprintf("%s price must not be negative", v.TierA)
	default:
		return "invalid price configuration"
	}
}
