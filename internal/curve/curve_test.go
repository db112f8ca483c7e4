package curve_test

import (
	"testing"

	"codeberg.org/isvind/gpufanctl/internal/curve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceAnchors() []curve.Anchor {
	return []curve.Anchor{
		{Temperature: 20, Duty: 20},
		{Temperature: 50, Duty: 50},
		{Temperature: 80, Duty: 100},
	}
}

func TestCompileReferenceCurve(t *testing.T) {
	table, err := curve.Compile(referenceAnchors())
	require.NoError(t, err)

	assert.EqualValues(t, 20, table.Lookup(20))
	assert.EqualValues(t, 50, table.Lookup(50))
	assert.EqualValues(t, 100, table.Lookup(80))

	// Flat extrapolation below the first anchor and above the last.
	for temp := 0; temp <= 20; temp++ {
		assert.EqualValues(t, 20, table.Lookup(uint8(temp)), "temp %d", temp)
	}
	assert.EqualValues(t, 100, table.Lookup(255))

	// Interpolation rounds the fractional duty up.
	assert.EqualValues(t, 35, table.Lookup(35))
}

func TestCompileIsTotalAndMonotonic(t *testing.T) {
	anchorSets := [][]curve.Anchor{
		referenceAnchors(),
		// Unsorted input is sorted before compilation.
		{{Temperature: 80, Duty: 100}, {Temperature: 20, Duty: 20}, {Temperature: 50, Duty: 50}},
		// Anchors at the domain edges leave no room for extrapolation.
		{{Temperature: 0, Duty: 0}, {Temperature: 128, Duty: 50}, {Temperature: 255, Duty: 100}},
		// A flat curve is valid.
		{{Temperature: 30, Duty: 40}, {Temperature: 60, Duty: 40}, {Temperature: 90, Duty: 40}},
	}

	for _, anchors := range anchorSets {
		table, err := curve.Compile(anchors)
		require.NoError(t, err)

		points := table.Points()
		require.Len(t, points, 256)

		for i := 1; i < len(points); i++ {
			assert.LessOrEqual(t, points[i-1].Duty, points[i].Duty)
		}
		for _, p := range points {
			assert.LessOrEqual(t, p.Duty, uint8(curve.MaxDuty))
		}
	}
}

func TestCompileRejectsDecreasingDuty(t *testing.T) {
	_, err := curve.Compile([]curve.Anchor{
		{Temperature: 20, Duty: 60},
		{Temperature: 50, Duty: 50},
		{Temperature: 80, Duty: 100},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not decrease")
}

func TestCompileRejectsTooFewAnchors(t *testing.T) {
	_, err := curve.Compile([]curve.Anchor{
		{Temperature: 20, Duty: 20},
		{Temperature: 80, Duty: 100},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 points")
}

func TestCompileRejectsDuplicateTemperature(t *testing.T) {
	_, err := curve.Compile([]curve.Anchor{
		{Temperature: 50, Duty: 20},
		{Temperature: 50, Duty: 60},
		{Temperature: 80, Duty: 100},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same temperature")
}
