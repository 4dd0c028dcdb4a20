package alerts

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrInvalidRequestedQty indicates a non-positive requisition override.
var ErrInvalidRequestedQty = errors.New("alerts: requested quantity must be positive")

// pendingByItem indexes pending lines by item. Later transactions overwrite
// earlier ones: last wins, no aggregation across transactions.
func pendingByItem(lines []PendingLineSnapshot) map[int64]PendingRef {
	index := map[int64]PendingRef{}
	for _, line := range lines {
		qty := line.RequestedQty
		if qty <= 0 {
			qty = line.QuantityChange
			if qty < 0 {
				qty = -qty
			}
		}
		index[line.ItemID] = PendingRef{
			TransactionID: line.TransactionID,
			DueDate:       line.DueDate,
			RequestedQty:  qty,
		}
	}
	return index
}

// daysUntilDue counts whole calendar days from today to the due date.
func daysUntilDue(due, today time.Time) int {
	day := 24 * time.Hour
	return int(due.Truncate(day).Sub(today.Truncate(day)) / day)
}

func priorityFor(item ItemSnapshot, pending *PendingRef, today time.Time) Priority {
	if item.Quantity == 0 {
		return PriorityCritical
	}
	if pending != nil && pending.DueDate != nil {
		switch days := daysUntilDue(*pending.DueDate, today); {
		case days <= 3:
			return PriorityCritical
		case days <= 7:
			return PriorityUrgent
		default:
			return PriorityNormal
		}
	}
	if item.Threshold > 0 {
		ratio := float64(item.Quantity) / float64(item.Threshold)
		if ratio >= 0.01 && ratio <= 0.5 {
			return PriorityUrgent
		}
	}
	return PriorityNormal
}

// SuggestRequisitionQty is the default requested quantity for an alert:
// the pending demand when one exists, otherwise enough to restore the
// threshold level.
func SuggestRequisitionQty(item ItemSnapshot, pending *PendingRef) int {
	if pending != nil {
		return pending.RequestedQty
	}
	if item.Quantity == 0 {
		return item.Threshold
	}
	return item.Threshold - item.Quantity
}

// Prioritize computes the alert list from an item/pending snapshot. Pure:
// the same snapshot and clock always yield the same list, so the caller is
// free to drive it from polling today and a push feed later.
func Prioritize(items []ItemSnapshot, pending []PendingLineSnapshot, today time.Time) []AlertItem {
	index := pendingByItem(pending)

	var alerts []AlertItem
	for _, item := range items {
		lowStock := item.Quantity <= item.Threshold || item.Quantity == 0

		var ref *PendingRef
		pendingDue := false
		if p, ok := index[item.ItemID]; ok {
			if p.RequestedQty > item.Quantity {
				pendingDue = true
			}
			copied := p
			ref = &copied
		}

		if !lowStock && !pendingDue {
			continue
		}

		alert := AlertItem{
			ItemID:       item.ItemID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			Threshold:    item.Threshold,
			IsPendingDue: pendingDue,
			Priority:     priorityFor(item, ref, today),
		}
		if pendingDue {
			alert.Pending = ref
		}
		alert.SuggestedQty = SuggestRequisitionQty(item, alert.Pending)
		alerts = append(alerts, alert)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Priority.rank() != alerts[j].Priority.rank() {
			return alerts[i].Priority.rank() < alerts[j].Priority.rank()
		}
		return alerts[i].Name < alerts[j].Name
	})
	return alerts
}

// NormalizeRequestedQty validates a user's requisition override. Decimal
// input is floored rather than rejected; the returned flag tells the caller
// to warn. Non-positive input is an error.
func NormalizeRequestedQty(input float64) (qty int, floored bool, err error) {
	qty = int(math.Floor(input))
	if qty < 1 {
		return 0, false, ErrInvalidRequestedQty
	}
	return qty, input != math.Floor(input), nil
}
