package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScales_ToTicksStrict(t *testing.T) {
	s := NewScales(100, 1000)

	ticks, err := s.ToTicksStrict(100.00)
	require.NoError(t, err)
	assert.Equal(t, PriceTicks(10000), ticks)

	ticks, err = s.ToTicksStrict(99.50)
	require.NoError(t, err)
	assert.Equal(t, PriceTicks(9950), ticks)
}

func TestScales_ToTicksStrict_Unaligned(t *testing.T) {
	s := NewScales(3, 1000)

	_, err := s.ToTicksStrict(1.0 / 3.0 * 1.0000001)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestScales_ToLotsStrict(t *testing.T) {
	s := NewScales(100, 1000)

	lots, err := s.ToLotsStrict(2.0)
	require.NoError(t, err)
	assert.Equal(t, QtyLots(2000), lots)

	_, err = s.ToLotsStrict(0.12345)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestScales_RoundTrip(t *testing.T) {
	s := NewScales(100, 1000)

	px, err := s.ToTicksStrict(100.00)
	require.NoError(t, err)
	assert.Equal(t, 100.00, s.TicksToFloat64(px))

	q, err := s.ToLotsStrict(2.000)
	require.NoError(t, err)
	assert.Equal(t, 2.000, s.LotsToFloat64(q))
}

func TestNewScales_PanicsOnNonPositive(t *testing.T) {
	assert.Panics(t, func() { NewScales(0, 1000) })
	assert.Panics(t, func() { NewScales(100, 0) })
}
