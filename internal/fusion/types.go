package fusion

import (
	"math"
	"sort"

	"github.com/BradenHooton/attune/internal/behavior"
	"github.com/BradenHooton/attune/internal/environment"
)

// Decision is the access outcome of an attempt.
type Decision string

const (
	Permit Decision = "permit"
	Delay  Decision = "delay"
	Deny   Decision = "deny"
)

// AlertLevel grades how urgently an attempt needs attention.
type AlertLevel string

const (
	LevelNormal   AlertLevel = "normal"
	LevelLow      AlertLevel = "low"
	LevelMedium   AlertLevel = "medium"
	LevelHigh     AlertLevel = "high"
	LevelCritical AlertLevel = "critical"
)

var levelPriority = map[AlertLevel]int{
	LevelNormal:   0,
	LevelLow:      1,
	LevelMedium:   2,
	LevelHigh:     3,
	LevelCritical: 4,
}

// Priority orders levels from normal (0) to critical (4). Unknown levels are -1.
func (l AlertLevel) Priority() int {
	if p, ok := levelPriority[l]; ok {
		return p
	}
	return -1
}

// Valid reports whether l is one of the known levels.
func (l AlertLevel) Valid() bool {
	_, ok := levelPriority[l]
	return ok
}

// EmotionalState is the coarse emotional category reported with a decision.
type EmotionalState string

const (
	StateHighlyStressed     EmotionalState = "highly_stressed"
	StateModeratelyStressed EmotionalState = "moderately_stressed"
	StatePositive           EmotionalState = "positive"
	StateCalm               EmotionalState = "calm"
	StateNegative           EmotionalState = "negative"
	StateAgitated           EmotionalState = "agitated"
	StateNeutral            EmotionalState = "neutral"
	StateSecurityBreach     EmotionalState = "security_breach"
)

// Default dominant labels when an estimator reports no distribution.
const (
	DefaultFaceEmotion  = "neutral"
	DefaultVoiceEmotion = "calm"
)

// positiveEmotions pass the emotion gate; every other label is negative.
var positiveEmotions = map[string]bool{
	"happy":     true,
	"surprised": true,
	"calm":      true,
	"neutral":   true,
}

// IsPositiveEmotion reports whether label passes the emotion gate.
func IsPositiveEmotion(label string) bool {
	return positiveEmotions[label]
}

// Modality is the output of an emotion estimator.
type Modality struct {
	Stress float64            `json:"stress"`
	Probs  map[string]float64 `json:"probs"`
}

// Dominant returns the label with the highest probability, or fallback when
// the distribution is empty. Ties go to the alphabetically first label.
func (m Modality) Dominant(fallback string) string {
	labels := make([]string, 0, len(m.Probs))
	for l := range m.Probs {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	best, bestP := fallback, math.Inf(-1)
	for _, l := range labels {
		p := m.Probs[l]
		if math.IsNaN(p) {
			continue
		}
		if p > bestP {
			best, bestP = l, p
		}
	}
	return best
}

// Input bundles everything the policy needs for one attempt.
type Input struct {
	Face      Modality
	Voice     Modality
	Keystroke behavior.Result
	Env       environment.Reading
	// FaceCount is the number of faces the camera saw; zero means unknown.
	FaceCount int
}

// UIAdaptation hints how a client should adapt its interface.
type UIAdaptation struct {
	ColorScheme      string `json:"color_scheme"`
	ReduceAnimations bool   `json:"reduce_animations"`
	ShowWellnessTips bool   `json:"show_wellness_tips"`
	RestrictFeatures bool   `json:"restrict_features"`
	SuggestBreak     bool   `json:"suggest_break"`
	CalmingMode      bool   `json:"calming_mode"`
}

// Color schemes
const (
	SchemeDefault      = "default"
	SchemeCalming      = "calming"
	SchemeSoft         = "soft"
	SchemeHighContrast = "high_contrast"
)

// Result is the outcome of one attempt. It is never mutated after Decide
// returns.
type Result struct {
	Decision          Decision       `json:"decision"`
	Confidence        float64        `json:"confidence"`
	Stress            float64        `json:"stress"`
	StressFacial      float64        `json:"stress_facial"`
	StressVoice       float64        `json:"stress_voice"`
	Reasons           []string       `json:"reason"`
	Rule              string         `json:"rule"`
	AlertLevel        AlertLevel     `json:"alert_level"`
	Guidance          string         `json:"guidance"`
	MentalHealthAlert bool           `json:"mental_health_alert"`
	EmotionalState    EmotionalState `json:"emotional_state"`
	UIAdaptation      UIAdaptation   `json:"ui_adaptation"`

	AuthScore        float64 `json:"score"`
	BiometricScore   float64 `json:"biometric_score"`
	EnvironmentScore float64 `json:"environment_score"`

	CoercionRisk         float64  `json:"coercion_risk"`
	EnvironmentalQuality float64  `json:"environmental_quality"`
	Recommendations      []string `json:"recommendations"`
	SuitableEnvironment  bool     `json:"suitable_environment"`

	FacialEmotion      string `json:"facial_emotion"`
	VoiceEmotion       string `json:"voice_emotion"`
	EmotionCheckPassed bool   `json:"emotion_check_passed"`
	SecurityViolation  bool   `json:"security_violation,omitempty"`
	FaceCount          int    `json:"face_count,omitempty"`
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
