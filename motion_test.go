// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitsValidate(t *testing.T) {
	assert.NoError(t, Limits{Left: 0, Right: 135000}.Validate())
	assert.NoError(t, Limits{Left: -500, Right: 500}.Validate())
	assert.NoError(t, Limits{Left: 42, Right: 42}.Validate())

	err := Limits{Left: 1, Right: 0}.Validate()
	require.Error(t, err)
	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 1, limitErr.Left)
	assert.Equal(t, 0, limitErr.Right)
}

func TestLimitsCenter(t *testing.T) {
	assert.Equal(t, 67500, Limits{Left: 0, Right: 135000}.Center())
	assert.Equal(t, 0, Limits{Left: -10, Right: 10}.Center())
	assert.Equal(t, 2, Limits{Left: 0, Right: 5}.Center())

	// An odd negative sum floors instead of truncating toward zero.
	assert.Equal(t, -2, Limits{Left: -3, Right: 0}.Center())
	assert.Equal(t, -3, Limits{Left: -5, Right: 0}.Center())

	// Recomputed from the current bounds, never cached.
	l := Limits{Left: 0, Right: 1000}
	assert.Equal(t, 500, l.Center())
	l.Right = 2000
	assert.Equal(t, 1000, l.Center())
}

func TestLimitsContains(t *testing.T) {
	l := Limits{Left: 0, Right: 135000}
	assert.True(t, l.Contains(0))
	assert.True(t, l.Contains(67500))
	assert.True(t, l.Contains(135000))
	assert.False(t, l.Contains(-1))
	assert.False(t, l.Contains(200000))
}

func TestLimitsPosition(t *testing.T) {
	l := Limits{Left: -100, Right: 300}

	for _, tc := range []struct {
		name PositionName
		want int
	}{
		{PositionMin, -100},
		{PositionCenter, 100},
		{PositionMax, 300},
	} {
		got, err := l.Position(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}

	_, err := l.Position(PositionName(99))
	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
}

func TestValidateSpeed(t *testing.T) {
	assert.NoError(t, ValidateSpeed(SpeedMin))
	assert.NoError(t, ValidateSpeed(DefaultSpeed))
	assert.NoError(t, ValidateSpeed(SpeedMax))

	for _, v := range []int{SpeedMin - 1, 0, -100, SpeedMax + 1} {
		err := ValidateSpeed(v)
		require.Error(t, err, v)
		var rangeErr *RangeError
		require.True(t, errors.As(err, &rangeErr), v)
		assert.Equal(t, "speed", rangeErr.Param)
		assert.Equal(t, v, rangeErr.Value)
	}
}

func TestValidateAcceleration(t *testing.T) {
	assert.NoError(t, ValidateAcceleration(AccelerationMin))
	assert.NoError(t, ValidateAcceleration(DefaultAcceleration))
	assert.NoError(t, ValidateAcceleration(AccelerationMax))

	for _, v := range []int{AccelerationMin - 1, 0, AccelerationMax + 1} {
		err := ValidateAcceleration(v)
		require.Error(t, err, v)
		var rangeErr *RangeError
		require.True(t, errors.As(err, &rangeErr), v)
		assert.Equal(t, "acceleration", rangeErr.Param)
	}
}
