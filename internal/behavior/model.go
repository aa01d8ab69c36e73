package behavior

import (
	"math"
	"time"
)

// genuineThreshold is the boundary distance above which a sample counts as
// the enrolled user.
const genuineThreshold = -0.3

// Model is one user's fitted boundary. A new enrollment replaces it; it is
// never updated in place.
type Model struct {
	UserID      string
	Kind        string
	Params      Params
	SampleCount int
	CreatedAt   time.Time
	Boundary    Boundary
}

// ModelHandle describes a published model.
type ModelHandle struct {
	UserID      string    `json:"user_id"`
	Kind        string    `json:"kind"`
	Nu          float64   `json:"nu"`
	Gamma       float64   `json:"gamma"`
	SampleCount int       `json:"enrolled_samples"`
	CreatedAt   time.Time `json:"created_at"`
}

// Handle summarises the model for callers.
func (m *Model) Handle() *ModelHandle {
	return &ModelHandle{
		UserID:      m.UserID,
		Kind:        m.Kind,
		Nu:          m.Params.Nu,
		Gamma:       m.Params.Gamma,
		SampleCount: m.SampleCount,
		CreatedAt:   m.CreatedAt,
	}
}

// Result is the keystroke modality output consumed by fusion.
type Result struct {
	Match      float64 `json:"match"`
	Anomaly    float64 `json:"anomaly"`
	Confidence float64 `json:"confidence"`
	IsGenuine  bool    `json:"is_genuine"`
	Distance   float64 `json:"raw_decision"`
}

// ResultFromDistance maps a signed boundary distance to scores.
func ResultFromDistance(d float64) Result {
	match := clamp((d+1)/2, 0, 1)
	return Result{
		Match:      match,
		Anomaly:    1 - match,
		Confidence: 1 / (1 + math.Exp(-3*d)),
		IsGenuine:  d > genuineThreshold,
		Distance:   d,
	}
}

// Clamped returns a copy with scores forced into [0,1]. Externally supplied
// keystroke results pass through here before fusion.
func (r Result) Clamped() Result {
	r.Match = clamp(nanToZero(r.Match), 0, 1)
	r.Anomaly = clamp(nanToZero(r.Anomaly), 0, 1)
	r.Confidence = clamp(nanToZero(r.Confidence), 0, 1)
	return r
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
