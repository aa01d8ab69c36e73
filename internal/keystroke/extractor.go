// Package keystroke turns raw key press/release timings into fixed-length
// typing-rhythm feature vectors.
package keystroke

import (
	"math"
	"sort"
)

// Event is a single key interaction. Either timestamp may be missing.
type Event struct {
	Key       string   `json:"key"`
	PressMs   *float64 `json:"press_time_ms,omitempty"`
	ReleaseMs *float64 `json:"release_time_ms,omitempty"`
}

// Sample is the chronologically ordered event sequence for one typed phrase.
type Sample []Event

// Feature indices into a FeatureVector.
const (
	HoldMean = iota
	HoldStd
	HoldP25
	HoldP75
	FlightMean
	FlightStd
	FlightP25
	FlightP75
	KeyCount
	DurationSeconds
	SpeedCPS

	FeatureCount
)

// FeatureNames lists the vector fields in index order.
var FeatureNames = [FeatureCount]string{
	"hold_mean", "hold_std", "hold_p25", "hold_p75",
	"flight_mean", "flight_std", "flight_p25", "flight_p75",
	"key_count", "duration_s", "speed_cps",
}

// FeatureVector is the derived, fixed-length rhythm summary of a Sample.
type FeatureVector [FeatureCount]float64

// Map returns the vector keyed by feature name, for logs and API payloads.
func (v FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, FeatureCount)
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}

// Extract computes the feature vector for a sample. It never fails: missing
// timestamps and non-finite values are ignored, and empty sets produce zero
// statistics. A release earlier than its press contributes no hold, so hold
// statistics are never negative.
func Extract(sample Sample) FeatureVector {
	var (
		presses []float64
		holds   []float64
	)

	for _, e := range sample {
		press, hasPress := finite(e.PressMs)
		if hasPress {
			presses = append(presses, press)
		}
		release, hasRelease := finite(e.ReleaseMs)
		if hasPress && hasRelease && release >= press {
			holds = append(holds, release-press)
		}
	}

	sort.Float64s(presses)

	flights := make([]float64, 0, len(presses))
	for i := 1; i < len(presses); i++ {
		flights = append(flights, presses[i]-presses[i-1])
	}

	var v FeatureVector
	h := robust(holds)
	f := robust(flights)
	copy(v[HoldMean:HoldP75+1], h[:])
	copy(v[FlightMean:FlightP75+1], f[:])

	keyCount := float64(len(presses))
	duration := 0.0
	if len(presses) >= 2 {
		duration = (presses[len(presses)-1] - presses[0]) / 1000.0
	}
	speed := 0.0
	if duration > 0 {
		speed = keyCount / duration
	}

	v[KeyCount] = keyCount
	v[DurationSeconds] = safeFloat(duration)
	v[SpeedCPS] = safeFloat(speed)
	return v
}

func finite(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// NewEvent builds a fully-timed event.
func NewEvent(key string, pressMs, releaseMs float64) Event {
	return Event{Key: key, PressMs: &pressMs, ReleaseMs: &releaseMs}
}
