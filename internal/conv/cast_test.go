//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint32(t *testing.T) {
	got, err := IntToUint32(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got)

	got, err = IntToUint32(math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), got)

	_, err = IntToUint32(-1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = IntToUint32(math.MaxUint32 + 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestIntToInt32(t *testing.T) {
	for _, v := range []int{0, -1, math.MinInt32, math.MaxInt32} {
		got, err := IntToInt32(v)
		require.NoError(t, err)
		assert.Equal(t, int32(v), got)
	}

	_, err := IntToInt32(math.MaxInt32 + 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = IntToInt32(math.MinInt32 - 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestUint64ToInt(t *testing.T) {
	got, err := Uint64ToInt(42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Uint64ToInt(math.MaxUint64)
	assert.ErrorIs(t, err, ErrOverflow)
}
