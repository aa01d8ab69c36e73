package keystroke_test

import (
	"math"
	"testing"

	"github.com/BradenHooton/attune/internal/keystroke"
	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestExtract_RegularTyping(t *testing.T) {
	// presses every 200ms, each key held 100ms
	sample := keystroke.Sample{
		keystroke.NewEvent("h", 0, 100),
		keystroke.NewEvent("e", 200, 300),
		keystroke.NewEvent("l", 400, 500),
		keystroke.NewEvent("l", 600, 700),
		keystroke.NewEvent("o", 800, 900),
	}

	v := keystroke.Extract(sample)

	assert.InDelta(t, 100.0, v[keystroke.HoldMean], 1e-9)
	assert.InDelta(t, 0.0, v[keystroke.HoldStd], 1e-9)
	assert.InDelta(t, 200.0, v[keystroke.FlightMean], 1e-9)
	assert.InDelta(t, 200.0, v[keystroke.FlightP25], 1e-9)
	assert.InDelta(t, 5.0, v[keystroke.KeyCount], 1e-9)
	assert.InDelta(t, 0.8, v[keystroke.DurationSeconds], 1e-9)
	assert.InDelta(t, 6.25, v[keystroke.SpeedCPS], 1e-9)
}

func TestExtract_PopulationStdAndPercentiles(t *testing.T) {
	sample := keystroke.Sample{
		keystroke.NewEvent("a", 0, 50),
		keystroke.NewEvent("b", 100, 250),
	}

	v := keystroke.Extract(sample)

	// holds {50, 150}: mean 100, population std 50, p25 75, p75 125
	assert.InDelta(t, 100.0, v[keystroke.HoldMean], 1e-9)
	assert.InDelta(t, 50.0, v[keystroke.HoldStd], 1e-9)
	assert.InDelta(t, 75.0, v[keystroke.HoldP25], 1e-9)
	assert.InDelta(t, 125.0, v[keystroke.HoldP75], 1e-9)
	// single flight of 100ms
	assert.InDelta(t, 100.0, v[keystroke.FlightMean], 1e-9)
	assert.InDelta(t, 0.0, v[keystroke.FlightStd], 1e-9)
}

func TestExtract_SortsPressesBeforeFlights(t *testing.T) {
	sample := keystroke.Sample{
		keystroke.NewEvent("b", 300, 350),
		keystroke.NewEvent("a", 100, 150),
	}

	v := keystroke.Extract(sample)

	assert.InDelta(t, 200.0, v[keystroke.FlightMean], 1e-9)
	assert.InDelta(t, 0.2, v[keystroke.DurationSeconds], 1e-9)
}

func TestExtract_EmptySampleIsAllZero(t *testing.T) {
	v := keystroke.Extract(nil)

	assert.Equal(t, keystroke.FeatureVector{}, v)
}

func TestExtract_UnmatchedEventsDegrade(t *testing.T) {
	sample := keystroke.Sample{
		{Key: "a", PressMs: ptr(10)},
		{Key: "b", ReleaseMs: ptr(40)},
		{Key: "c"},
	}

	v := keystroke.Extract(sample)

	assert.Equal(t, 0.0, v[keystroke.HoldMean])
	assert.Equal(t, 0.0, v[keystroke.FlightMean])
	assert.Equal(t, 1.0, v[keystroke.KeyCount])
	assert.Equal(t, 0.0, v[keystroke.DurationSeconds])
	assert.Equal(t, 0.0, v[keystroke.SpeedCPS])
}

func TestExtract_AllFieldsFiniteAndMeansNonNegative(t *testing.T) {
	samples := []keystroke.Sample{
		nil,
		{{Key: "x", PressMs: ptr(math.NaN()), ReleaseMs: ptr(5)}},
		{{Key: "x", PressMs: ptr(math.Inf(1))}},
		{keystroke.NewEvent("a", 500, 400)}, // release before press
		{keystroke.NewEvent("a", 0, 0), keystroke.NewEvent("b", 0, 0)},
		{keystroke.NewEvent("a", 1e12, 1e12+80), keystroke.NewEvent("b", -1e12, -1e12+10)},
	}

	for i, s := range samples {
		v := keystroke.Extract(s)
		for j, f := range v {
			assert.False(t, math.IsNaN(f) || math.IsInf(f, 0), "sample %d field %s not finite", i, keystroke.FeatureNames[j])
		}
		assert.GreaterOrEqual(t, v[keystroke.HoldMean], 0.0, "sample %d", i)
		assert.GreaterOrEqual(t, v[keystroke.FlightMean], 0.0, "sample %d", i)
	}
}

func TestFeatureVector_Map(t *testing.T) {
	v := keystroke.Extract(keystroke.Sample{
		keystroke.NewEvent("a", 0, 100),
		keystroke.NewEvent("b", 250, 330),
	})

	m := v.Map()

	assert.Len(t, m, keystroke.FeatureCount)
	assert.InDelta(t, 2.0, m["key_count"], 1e-9)
	assert.InDelta(t, 250.0, m["flight_mean"], 1e-9)
}
