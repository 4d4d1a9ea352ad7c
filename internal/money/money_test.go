package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorRoundsToWholeUnits(t *testing.T) {
	minor, err := ToMinor(decimal.RequireFromString("12.345"), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1235), minor)

	minor, err = ToMinor(decimal.RequireFromString("-0.5"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), minor)
}

func TestToMinorRejectsOverflow(t *testing.T) {
	huge := decimal.NewFromInt(math.MaxInt64)
	_, err := ToMinor(huge, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestFromMinorRestoresPrecision(t *testing.T) {
	assert.True(t, FromMinor(500, 2).Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "5.00", Format(FromMinor(500, 2), 2))
	assert.Equal(t, "-0.123", Format(FromMinor(-123, 3), 3))
}

func TestFloorNeverRoundsUp(t *testing.T) {
	assert.Equal(t, "49.99", Format(Floor(decimal.RequireFromString("49.999"), 2), 2))
	assert.Equal(t, "50", Floor(decimal.NewFromInt(50), 0).String())
}

func TestNegativePrecisionTreatedAsZero(t *testing.T) {
	minor, err := ToMinor(decimal.RequireFromString("7.6"), -1)
	require.NoError(t, err)
	assert.Equal(t, int64(8), minor)
}
