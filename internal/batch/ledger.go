package batch

import (
	"fmt"
	"regexp"
	"time"
)

// numberPattern matches client-generated batch numbers. Server-accepted
// numbers from other sources may be arbitrary text.
var numberPattern = regexp.MustCompile(`^B-\d{3}$`)

// CheckConservation verifies initial == available + reserved + sold.
func (b Batch) CheckConservation() error {
	if b.InitialQty != b.AvailableQty+b.ReservedQty+b.SoldQty {
		return fmt.Errorf("%w: batch %s has %d != %d+%d+%d",
			ErrConservation, b.Number, b.InitialQty, b.AvailableQty, b.ReservedQty, b.SoldQty)
	}
	return nil
}

// ValidateConsumption checks that the human-selected batch can satisfy the
// requested outgoing quantity. Selection stays manual: the engine never
// auto-splits a request across batches.
func ValidateConsumption(b Batch, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > b.AvailableQty {
		return fmt.Errorf("%w: requested %d, available %d in %s", ErrInsufficientStock, qty, b.AvailableQty, b.Number)
	}
	return nil
}

// Consume moves qty from available to sold and returns the updated batch.
// The input batch is left untouched on failure.
func Consume(b Batch, qty int) (Batch, error) {
	if err := ValidateConsumption(b, qty); err != nil {
		return b, err
	}
	b.AvailableQty -= qty
	b.SoldQty += qty
	return b, b.CheckConservation()
}

// Reserve moves qty from available to reserved for a pending outgoing
// transaction.
func Reserve(b Batch, qty int) (Batch, error) {
	if err := ValidateConsumption(b, qty); err != nil {
		return b, err
	}
	b.AvailableQty -= qty
	b.ReservedQty += qty
	return b, b.CheckConservation()
}

// CommitReservation moves qty from reserved to sold when a pending
// transaction completes.
func CommitReservation(b Batch, qty int) (Batch, error) {
	if qty <= 0 {
		return b, ErrInvalidQuantity
	}
	if qty > b.ReservedQty {
		return b, fmt.Errorf("%w: commit %d exceeds reserved %d in %s", ErrInsufficientStock, qty, b.ReservedQty, b.Number)
	}
	b.ReservedQty -= qty
	b.SoldQty += qty
	return b, b.CheckConservation()
}

// ReleaseReservation returns qty from reserved to available when a pending
// transaction is cancelled.
func ReleaseReservation(b Batch, qty int) (Batch, error) {
	if qty <= 0 {
		return b, ErrInvalidQuantity
	}
	if qty > b.ReservedQty {
		return b, fmt.Errorf("%w: release %d exceeds reserved %d in %s", ErrInsufficientStock, qty, b.ReservedQty, b.Number)
	}
	b.ReservedQty -= qty
	b.AvailableQty += qty
	return b, b.CheckConservation()
}

// DeriveExpiry computes expiry status against today. DaysToExpiry is the
// ceiling of the remaining time in days, nil when expired or no expiry set.
func DeriveExpiry(b Batch, today time.Time) ExpiryStatus {
	if b.ExpiresAt == nil {
		return ExpiryStatus{}
	}
	day := 24 * time.Hour
	expiry := b.ExpiresAt.Truncate(day)
	now := today.Truncate(day)
	if expiry.Before(now) {
		return ExpiryStatus{Expired: true}
	}
	remaining := b.ExpiresAt.Sub(today)
	days := int((remaining + day - 1) / day)
	if days < 0 {
		days = 0
	}
	return ExpiryStatus{DaysToExpiry: &days}
}

// DeriveStatus labels the batch. Expiry wins over depletion.
func DeriveStatus(b Batch, today time.Time) Status {
	if DeriveExpiry(b, today).Expired {
		return StatusExpired
	}
	if b.AvailableQty == 0 {
		return StatusDepleted
	}
	return StatusActive
}

// ValidateNumberFormat checks a client-generated batch number.
func ValidateNumberFormat(number string) error {
	if !numberPattern.MatchString(number) {
		return fmt.Errorf("%w: got %q", ErrInvalidBatchFormat, number)
	}
	return nil
}

// NextNumber suggests the next sequential B-NNN after the highest existing
// client-formatted number. Numbers outside the pattern are ignored. Used both
// for the suggestion endpoint and as the local fallback when the lookup
// collaborator is unavailable.
func NextNumber(existing []string) string {
	max := 0
	for _, number := range existing {
		if !numberPattern.MatchString(number) {
			continue
		}
		n := 0
		fmt.Sscanf(number, "B-%03d", &n)
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("B-%03d", max+1)
}
