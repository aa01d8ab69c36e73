package fusion

import "github.com/BradenHooton/attune/internal/environment"

// Signals are the normalised inputs the rule cascade is evaluated against.
// All scores are clamped to [0,1].
type Signals struct {
	FacialStress float64
	VoiceStress  float64
	// Stress is the dampened combined stress: 0.7 * mean(facial, voice).
	Stress        float64
	FaceEmotion   string
	VoiceEmotion  string
	Match         float64
	Anomaly       float64
	KeystrokeConf float64
	CoercionRisk  float64
	Stability     float64
	Quality       float64
	Flags         environment.Flags
	Env           environment.Reading
}

// Rule is one row of the decision table. The first rule whose When returns
// true decides the attempt.
type Rule struct {
	Name       string
	When       func(s Signals) bool
	Decision   Decision
	AlertLevel AlertLevel
	Reason     string
}

// DefaultRules returns the decision table in evaluation order. Attempts that
// match no rule are permitted.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "high_coercion",
			When:       func(s Signals) bool { return s.CoercionRisk > 0.85 },
			Decision:   Deny,
			AlertLevel: LevelCritical,
			Reason:     "High coercion risk detected",
		},
		{
			Name:       "shouting_under_stress",
			When:       func(s Signals) bool { return s.Flags.Shouting && s.Stress > 0.8 },
			Decision:   Deny,
			AlertLevel: LevelCritical,
			Reason:     "Shouting detected - potential duress",
		},
		{
			Name:       "very_loud_under_stress",
			When:       func(s Signals) bool { return s.Flags.VeryLoud && s.Stress > 0.85 },
			Decision:   Deny,
			AlertLevel: LevelHigh,
			Reason:     "Very loud environment with elevated stress",
		},
		{
			Name:       "keystroke_anomaly",
			When:       func(s Signals) bool { return s.Anomaly > 0.85 },
			Decision:   Deny,
			AlertLevel: LevelHigh,
			Reason:     "Keystroke pattern anomaly detected",
		},
		{
			Name:       "keystroke_mismatch",
			When:       func(s Signals) bool { return s.Match < 0.2 && s.Anomaly > 0.8 },
			Decision:   Deny,
			AlertLevel: LevelMedium,
			Reason:     "Keystroke pattern does not match enrolled profile",
		},
		{
			Name:       "very_high_stress",
			When:       func(s Signals) bool { return s.Stress > 0.9 },
			Decision:   Delay,
			AlertLevel: LevelMedium,
			Reason:     "Very high emotional stress detected",
		},
		{
			Name:       "moderate_coercion",
			When:       func(s Signals) bool { return s.CoercionRisk > 0.7 },
			Decision:   Delay,
			AlertLevel: LevelMedium,
			Reason:     "Moderate coercion risk detected",
		},
		{
			Name:       "stress_in_unstable_environment",
			When:       func(s Signals) bool { return s.Stress > 0.85 && s.Stability < 0.3 },
			Decision:   Delay,
			AlertLevel: LevelMedium,
			Reason:     "Elevated stress in unstable environment",
		},
		{
			Name:       "dark_under_stress",
			When:       func(s Signals) bool { return s.Flags.VeryDark && s.Stress > 0.7 },
			Decision:   Delay,
			AlertLevel: LevelLow,
			Reason:     "Very poor lighting with high stress",
		},
		{
			Name: "distressed_voice",
			When: func(s Signals) bool {
				return s.Flags.HighPitch && s.Flags.VoiceTremor && s.Stress > 0.8
			},
			Decision:   Delay,
			AlertLevel: LevelMedium,
			Reason:     "Voice characteristics suggest distress",
		},
		{
			Name:       "keystroke_anomalies",
			When:       func(s Signals) bool { return s.Anomaly > 0.85 && s.Match < 0.2 },
			Decision:   Delay,
			AlertLevel: LevelLow,
			Reason:     "Keystroke pattern shows significant anomalies",
		},
		{
			Name:       "keystroke_drift",
			When:       func(s Signals) bool { return s.Match < 0.15 },
			Decision:   Delay,
			AlertLevel: LevelLow,
			Reason:     "Keystroke pattern differs significantly from usual",
		},
	}
}

// Permit reasons, chosen by keystroke match quality.
const (
	ReasonVerified      = "Keystroke pattern verified"
	ReasonAcceptable    = "Keystroke pattern acceptable"
	ReasonAuthenticated = "Authentication successful"
	ReasonStressNote    = "Note: Elevated stress detected"
)

// Rule names for outcomes decided outside the table.
const (
	RuleSecurityViolation = "security_violation"
	RuleEmotionGate       = "emotion_gate"
	RulePermit            = "permit"
)
