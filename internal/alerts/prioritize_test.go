package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

func daysFromNow(n int) *time.Time {
	d := today.AddDate(0, 0, n)
	return &d
}

func alertFor(t *testing.T, alerts []AlertItem, itemID int64) AlertItem {
	t.Helper()
	for _, a := range alerts {
		if a.ItemID == itemID {
			return a
		}
	}
	t.Fatalf("item %d not in alert list %v", itemID, alerts)
	return AlertItem{}
}

func TestPrioritizeStockThresholds(t *testing.T) {
	items := []ItemSnapshot{
		{ItemID: 1, Name: "Void Bracket", Quantity: 0, Threshold: 10},
		{ItemID: 2, Name: "Hex Bolt", Quantity: 3, Threshold: 10},
		{ItemID: 3, Name: "Angle Plate", Quantity: 8, Threshold: 10},
		{ItemID: 4, Name: "Wing Nut", Quantity: 11, Threshold: 10},
	}

	alerts := Prioritize(items, nil, today)

	require.Equal(t, PriorityCritical, alertFor(t, alerts, 1).Priority)
	require.Equal(t, PriorityUrgent, alertFor(t, alerts, 2).Priority)
	// Above half the threshold but still low stock.
	require.Equal(t, PriorityNormal, alertFor(t, alerts, 3).Priority)
	// Healthy stock stays off the list entirely.
	for _, a := range alerts {
		require.NotEqual(t, int64(4), a.ItemID)
	}
}

func TestPrioritizeDueDateOverridesRatio(t *testing.T) {
	items := []ItemSnapshot{{ItemID: 1, Name: "Hex Bolt", Quantity: 8, Threshold: 10}}
	pending := []PendingLineSnapshot{
		{TransactionID: 50, ItemID: 1, DueDate: daysFromNow(2), QuantityChange: -20},
	}

	alerts := Prioritize(items, pending, today)
	a := alertFor(t, alerts, 1)
	require.Equal(t, PriorityCritical, a.Priority)
	require.True(t, a.IsPendingDue)
	require.Equal(t, 20, a.Pending.RequestedQty)
}

func TestPrioritizeDueDateBands(t *testing.T) {
	items := []ItemSnapshot{{ItemID: 1, Name: "Hex Bolt", Quantity: 8, Threshold: 10}}

	for _, tc := range []struct {
		days int
		want Priority
	}{
		{3, PriorityCritical},
		{4, PriorityUrgent},
		{7, PriorityUrgent},
		{8, PriorityNormal},
	} {
		pending := []PendingLineSnapshot{
			{TransactionID: 50, ItemID: 1, DueDate: daysFromNow(tc.days), QuantityChange: -20},
		}
		alerts := Prioritize(items, pending, today)
		require.Equal(t, tc.want, alertFor(t, alerts, 1).Priority, "due in %d days", tc.days)
	}
}

func TestPrioritizeZeroStockBeatsDueDate(t *testing.T) {
	items := []ItemSnapshot{{ItemID: 1, Name: "Hex Bolt", Quantity: 0, Threshold: 10}}
	pending := []PendingLineSnapshot{
		{TransactionID: 50, ItemID: 1, DueDate: daysFromNow(30), QuantityChange: -2},
	}
	require.Equal(t, PriorityCritical, alertFor(t, Prioritize(items, pending, today), 1).Priority)
}

func TestPrioritizeLastPendingWins(t *testing.T) {
	items := []ItemSnapshot{{ItemID: 1, Name: "Hex Bolt", Quantity: 2, Threshold: 10}}
	pending := []PendingLineSnapshot{
		{TransactionID: 50, ItemID: 1, DueDate: daysFromNow(2), QuantityChange: -6},
		{TransactionID: 51, ItemID: 1, DueDate: daysFromNow(9), QuantityChange: -4},
	}

	a := alertFor(t, Prioritize(items, pending, today), 1)
	require.Equal(t, int64(51), a.Pending.TransactionID)
	require.Equal(t, 4, a.Pending.RequestedQty)
	// No aggregation: 6+4 never appears.
	require.Equal(t, PriorityNormal, a.Priority)
}

func TestPrioritizePendingDemandWithinStock(t *testing.T) {
	// Pending demand covered by stock: not pending-due, and healthy stock
	// keeps the item off the list.
	items := []ItemSnapshot{{ItemID: 1, Name: "Hex Bolt", Quantity: 50, Threshold: 10}}
	pending := []PendingLineSnapshot{
		{TransactionID: 50, ItemID: 1, DueDate: daysFromNow(2), QuantityChange: -5},
	}
	require.Empty(t, Prioritize(items, pending, today))
}

func TestPrioritizeExplicitRequestedQty(t *testing.T) {
	items := []ItemSnapshot{{ItemID: 1, Name: "Hex Bolt", Quantity: 2, Threshold: 10}}
	pending := []PendingLineSnapshot{
		{TransactionID: 50, ItemID: 1, DueDate: daysFromNow(2), QuantityChange: -3, RequestedQty: 9},
	}
	a := alertFor(t, Prioritize(items, pending, today), 1)
	require.Equal(t, 9, a.Pending.RequestedQty)
	require.Equal(t, 9, a.SuggestedQty)
}

func TestPrioritizeOrdering(t *testing.T) {
	items := []ItemSnapshot{
		{ItemID: 1, Name: "Angle Plate", Quantity: 8, Threshold: 10},
		{ItemID: 2, Name: "Hex Bolt", Quantity: 0, Threshold: 10},
		{ItemID: 3, Name: "Wing Nut", Quantity: 3, Threshold: 10},
	}
	alerts := Prioritize(items, nil, today)
	require.Len(t, alerts, 3)
	require.Equal(t, PriorityCritical, alerts[0].Priority)
	require.Equal(t, PriorityUrgent, alerts[1].Priority)
	require.Equal(t, PriorityNormal, alerts[2].Priority)
}

func TestSuggestRequisitionQty(t *testing.T) {
	require.Equal(t, 10, SuggestRequisitionQty(ItemSnapshot{Quantity: 0, Threshold: 10}, nil))
	require.Equal(t, 7, SuggestRequisitionQty(ItemSnapshot{Quantity: 3, Threshold: 10}, nil))
	require.Equal(t, 4, SuggestRequisitionQty(ItemSnapshot{Quantity: 3, Threshold: 10}, &PendingRef{RequestedQty: 4}))
}

func TestNormalizeRequestedQty(t *testing.T) {
	qty, floored, err := NormalizeRequestedQty(5)
	require.NoError(t, err)
	require.Equal(t, 5, qty)
	require.False(t, floored)

	qty, floored, err = NormalizeRequestedQty(5.7)
	require.NoError(t, err)
	require.Equal(t, 5, qty)
	require.True(t, floored)

	_, _, err = NormalizeRequestedQty(0)
	require.ErrorIs(t, err, ErrInvalidRequestedQty)
	_, _, err = NormalizeRequestedQty(0.4)
	require.ErrorIs(t, err, ErrInvalidRequestedQty)
	_, _, err = NormalizeRequestedQty(-2)
	require.ErrorIs(t, err, ErrInvalidRequestedQty)
}
