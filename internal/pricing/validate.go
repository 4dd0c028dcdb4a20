package pricing

// ValidateHierarchy checks the monotonic non-increasing price chain across
// the tier order and the sign of each individual price. It never stops at the
// first problem: the caller gets every broken link so a pricing form can
// surface all of them at once.
//
// For each adjacent tier pair where both prices are set (> 0), the earlier
// tier must be priced at or above the later one. An unset (zero) price skips
// that comparison link without invalidating the rest of the chain, so an
// all-zero set is valid.
func ValidateHierarchy(prices PriceSet) []Violation {
	var violations []Violation

	for _, tier := range tierOrder {
		if price, ok := prices[tier]; ok && price.IsNegative() {
			violations = append(violations, Violation{Kind: ViolationNegativePrice, TierA: tier})
		}
	}

	for i := 0; i < len(tierOrder)-1; i++ {
		higher, lower := tierOrder[i], tierOrder[i+1]
		higherPrice, lowerPrice := prices[higher], prices[lower]
		if !higherPrice.IsPositive() || !lowerPrice.IsPositive() {
			continue
		}
		if higherPrice.LessThan(lowerPrice) {
			violations = append(violations, Violation{Kind: ViolationHierarchy, TierA: higher, TierB: lower})
		}
	}

	return violations
}
