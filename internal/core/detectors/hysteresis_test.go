package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewThresholdValidation(t *testing.T) {
	_, err := NewThreshold(Above, 0.1, 0.05)
	assert.NoError(t, err)

	_, err = NewThreshold(Above, 0.05, 0.1)
	assert.Error(t, err)

	_, err = NewThreshold(Above, 0.1, 0.1)
	assert.Error(t, err)

	_, err = NewThreshold(Below, 2.5, 3.0)
	assert.NoError(t, err)

	_, err = NewThreshold(Below, 3.0, 2.5)
	assert.Error(t, err)

	_, err = NewThreshold(Direction(99), 1, 0)
	assert.Error(t, err)
}

func TestThresholdAboveHysteresis(t *testing.T) {
	th, err := NewThreshold(Above, 0.1, 0.05)
	require.NoError(t, err)

	active := false
	active = th.Next(active, 0.08)
	assert.False(t, active, "below on threshold stays off")

	active = th.Next(active, 0.12)
	assert.True(t, active, "crossing on threshold turns on")

	active = th.Next(active, 0.08)
	assert.True(t, active, "value between thresholds holds the alert")

	active = th.Next(active, 0.12)
	assert.True(t, active)

	active = th.Next(active, 0.04)
	assert.False(t, active, "crossing off threshold turns off")

	active = th.Next(active, 0.08)
	assert.False(t, active, "between thresholds stays off until on is crossed again")
}

func TestThresholdBelowHysteresis(t *testing.T) {
	th, err := NewThreshold(Below, 2.5, 3.0)
	require.NoError(t, err)

	active := false
	active = th.Next(active, 2.8)
	assert.False(t, active)

	active = th.Next(active, 2.4)
	assert.True(t, active)

	active = th.Next(active, 2.8)
	assert.True(t, active, "score between thresholds holds the alert")

	active = th.Next(active, 3.2)
	assert.False(t, active)
}

func TestThresholdExclusiveComparisons(t *testing.T) {
	th, err := NewThreshold(Above, 0.1, 0.05)
	require.NoError(t, err)

	assert.False(t, th.Next(false, 0.1), "value equal to on threshold does not trigger")
	assert.True(t, th.Next(true, 0.05), "value equal to off threshold does not clear")

	below, err := NewThreshold(Below, 2.5, 3.0)
	require.NoError(t, err)

	assert.False(t, below.Next(false, 2.5))
	assert.True(t, below.Next(true, 3.0))
}
