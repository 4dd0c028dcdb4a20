package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func activeBatch(available int) Batch {
	return Batch{
		ID:           1,
		ItemID:       10,
		Number:       "B-001",
		InitialQty:   available,
		AvailableQty: available,
	}
}

func TestConsumePreservesConservation(t *testing.T) {
	b := Batch{Number: "B-001", InitialQty: 10, AvailableQty: 6, ReservedQty: 1, SoldQty: 3}
	require.NoError(t, b.CheckConservation())

	after, err := Consume(b, 4)
	require.NoError(t, err)
	require.Equal(t, 2, after.AvailableQty)
	require.Equal(t, 7, after.SoldQty)
	require.Equal(t, 1, after.ReservedQty)
	require.Equal(t, 10, after.InitialQty)
	require.NoError(t, after.CheckConservation())
}

func TestConsumeInsufficientLeavesBatchUnchanged(t *testing.T) {
	b := activeBatch(3)
	after, err := Consume(b, 5)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, b, after)
}

func TestConsumeRejectsNonPositive(t *testing.T) {
	_, err := Consume(activeBatch(3), 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = Consume(activeBatch(3), -2)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestReserveCommitRelease(t *testing.T) {
	b := activeBatch(10)

	b, err := Reserve(b, 4)
	require.NoError(t, err)
	require.Equal(t, 6, b.AvailableQty)
	require.Equal(t, 4, b.ReservedQty)

	b, err = CommitReservation(b, 3)
	require.NoError(t, err)
	require.Equal(t, 1, b.ReservedQty)
	require.Equal(t, 3, b.SoldQty)

	b, err = ReleaseReservation(b, 1)
	require.NoError(t, err)
	require.Equal(t, 7, b.AvailableQty)
	require.Zero(t, b.ReservedQty)
	require.NoError(t, b.CheckConservation())

	_, err = CommitReservation(b, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCheckConservationViolation(t *testing.T) {
	b := Batch{Number: "B-002", InitialQty: 10, AvailableQty: 5, SoldQty: 2}
	require.ErrorIs(t, b.CheckConservation(), ErrConservation)
}

func TestDeriveExpiry(t *testing.T) {
	today := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	noExpiry := activeBatch(5)
	status := DeriveExpiry(noExpiry, today)
	require.False(t, status.Expired)
	require.Nil(t, status.DaysToExpiry)

	past := today.AddDate(0, 0, -3)
	expired := activeBatch(5)
	expired.ExpiresAt = &past
	status = DeriveExpiry(expired, today)
	require.True(t, status.Expired)
	require.Nil(t, status.DaysToExpiry)

	future := today.AddDate(0, 0, 5)
	fresh := activeBatch(5)
	fresh.ExpiresAt = &future
	status = DeriveExpiry(fresh, today)
	require.False(t, status.Expired)
	require.NotNil(t, status.DaysToExpiry)
	require.Equal(t, 5, *status.DaysToExpiry)
}

func TestDeriveStatus(t *testing.T) {
	today := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	require.Equal(t, StatusActive, DeriveStatus(activeBatch(5), today))

	depleted := Batch{Number: "B-003", InitialQty: 5, SoldQty: 5}
	require.Equal(t, StatusDepleted, DeriveStatus(depleted, today))

	past := today.AddDate(0, 0, -1)
	expired := activeBatch(5)
	expired.ExpiresAt = &past
	// Expiry wins even with stock remaining.
	require.Equal(t, StatusExpired, DeriveStatus(expired, today))
}

func TestValidateNumberFormat(t *testing.T) {
	require.NoError(t, ValidateNumberFormat("B-001"))
	require.NoError(t, ValidateNumberFormat("B-999"))
	require.ErrorIs(t, ValidateNumberFormat("B-1"), ErrInvalidBatchFormat)
	require.ErrorIs(t, ValidateNumberFormat("B-1234"), ErrInvalidBatchFormat)
	require.ErrorIs(t, ValidateNumberFormat("b-001"), ErrInvalidBatchFormat)
	require.ErrorIs(t, ValidateNumberFormat(""), ErrInvalidBatchFormat)
}

func TestNextNumber(t *testing.T) {
	require.Equal(t, "B-001", NextNumber(nil))
	require.Equal(t, "B-003", NextNumber([]string{"B-001", "B-002"}))
	// Arbitrary server-accepted numbers are ignored by the sequence.
	require.Equal(t, "B-008", NextNumber([]string{"B-007", "LOT-2025-14", "B-002"}))
}
