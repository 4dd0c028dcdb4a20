package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveAvailability(t *testing.T) {
	require.Equal(t, AvailabilityOutOfStock, DeriveAvailability(0, 10))
	require.Equal(t, AvailabilityLowStock, DeriveAvailability(3, 10))
	// Threshold comparison is inclusive.
	require.Equal(t, AvailabilityLowStock, DeriveAvailability(10, 10))
	require.Equal(t, AvailabilityInStock, DeriveAvailability(11, 10))
}

func TestItemValidate(t *testing.T) {
	valid := Item{Name: "Steel Pipe 20mm", ModelNumber: "SP-20", Threshold: 10}
	require.NoError(t, valid.Validate())

	longName := valid
	longName.Name = strings.Repeat("A", 120)
	require.ErrorIs(t, longName.Validate(), ErrInvalidName)

	badModel := valid
	badModel.ModelNumber = "SP@20"
	require.ErrorIs(t, badModel.Validate(), ErrInvalidModelNumber)

	badThreshold := valid
	badThreshold.Threshold = 40000
	require.ErrorIs(t, badThreshold.Validate(), ErrInvalidThreshold)

	negThreshold := valid
	negThreshold.Threshold = -1
	require.ErrorIs(t, negThreshold.Validate(), ErrInvalidThreshold)
}
