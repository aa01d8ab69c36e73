package fusion_test

import (
	"testing"

	"github.com/BradenHooton/attune/internal/behavior"
	"github.com/BradenHooton/attune/internal/environment"
	"github.com/BradenHooton/attune/internal/fusion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func face(dominant string, stress float64) fusion.Modality {
	probs := map[string]float64{"neutral": 0.2, "sad": 0.1}
	probs[dominant] = 0.7
	return fusion.Modality{Stress: stress, Probs: probs}
}

func voice(dominant string, stress float64) fusion.Modality {
	probs := map[string]float64{"happy": 0.2, "sad": 0.1}
	probs[dominant] = 0.7
	return fusion.Modality{Stress: stress, Probs: probs}
}

func calmEnv() environment.Reading {
	return environment.Reading{Stability: 0.9, CoercionRisk: 0.1, QualityScore: 0.8, SuitableForAuth: true, RiskLevel: "low"}
}

func nominalInput() fusion.Input {
	return fusion.Input{
		Face:      face("happy", 0.2),
		Voice:     voice("calm", 0.2),
		Keystroke: behavior.Result{Match: 0.9, Anomaly: 0.05, Confidence: 0.9},
		Env:       calmEnv(),
	}
}

// passingSignals are signals that clear the emotion gate and match no rule.
func passingSignals() fusion.Signals {
	return fusion.Signals{
		FaceEmotion:  "happy",
		VoiceEmotion: "calm",
		Match:        0.9,
		Anomaly:      0.05,
		Stability:    0.9,
		Quality:      0.8,
	}
}

func TestDecide_ScenarioA_NominalAttemptIsPermitted(t *testing.T) {
	res := fusion.NewPolicy().Decide(nominalInput())

	assert.Equal(t, fusion.Permit, res.Decision)
	assert.GreaterOrEqual(t, res.Confidence, 0.75)
	assert.LessOrEqual(t, res.Confidence, 0.95)
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)
	assert.Equal(t, []string{fusion.ReasonVerified}, res.Reasons)
	assert.Equal(t, fusion.LevelNormal, res.AlertLevel)
	assert.True(t, res.EmotionCheckPassed)
	assert.Equal(t, fusion.GuidanceWelcome, res.Guidance)
	assert.False(t, res.MentalHealthAlert)
}

func TestDecideSignals_ScenarioB_ShoutingUnderStressIsCritical(t *testing.T) {
	s := passingSignals()
	s.Stress = 0.85
	s.Flags.Shouting = true

	res := fusion.NewPolicy().DecideSignals(s)

	assert.Equal(t, fusion.Deny, res.Decision)
	assert.Equal(t, fusion.LevelCritical, res.AlertLevel)
	assert.Equal(t, "shouting_under_stress", res.Rule)
	assert.Equal(t, fusion.GuidanceQuieterPlace, res.Guidance)
}

func TestDecide_ScenarioC_KeystrokeAnomalyDeniesRegardlessOfStress(t *testing.T) {
	for _, stress := range []float64{0, 0.5, 1} {
		in := nominalInput()
		in.Face.Stress = stress
		in.Voice.Stress = stress
		in.Keystroke = behavior.Result{Match: 0.1, Anomaly: 0.9, Confidence: 0.1}

		res := fusion.NewPolicy().Decide(in)

		assert.Equal(t, fusion.Deny, res.Decision, "stress %v", stress)
		assert.Equal(t, "keystroke_anomaly", res.Rule)
		assert.Equal(t, []string{"Keystroke pattern anomaly detected"}, res.Reasons)
	}
}

func TestDecide_ScenarioD_SadFaceFailsEmotionGate(t *testing.T) {
	in := nominalInput()
	in.Face = face("sad", 0.2)

	res := fusion.NewPolicy().Decide(in)

	assert.Equal(t, fusion.Deny, res.Decision)
	assert.Equal(t, fusion.LevelHigh, res.AlertLevel)
	assert.Equal(t, fusion.RuleEmotionGate, res.Rule)
	assert.Equal(t, []string{"Negative facial emotion detected: sad"}, res.Reasons)
	assert.False(t, res.EmotionCheckPassed)
	assert.Contains(t, res.Guidance, "Facial: sad")
}

func TestDecide_AngryFaceAlwaysDenied(t *testing.T) {
	inputs := []fusion.Input{nominalInput(), nominalInput(), nominalInput()}
	inputs[1].Keystroke = behavior.Result{Match: 1, Anomaly: 0, Confidence: 1}
	inputs[1].Env = environment.Reading{Stability: 1, QualityScore: 1, SuitableForAuth: true}
	inputs[2].Face.Stress = 0
	inputs[2].Voice.Stress = 0

	for _, in := range inputs {
		in.Face = face("angry", in.Face.Stress)
		res := fusion.NewPolicy().Decide(in)
		assert.Equal(t, fusion.Deny, res.Decision)
		assert.Equal(t, fusion.RuleEmotionGate, res.Rule)
	}
}

func TestDecide_GateReasons(t *testing.T) {
	tests := []struct {
		name   string
		face   string
		voice  string
		reason string
	}{
		{"both negative", "fear", "angry", "Negative emotions detected - Facial: fear, Voice: angry"},
		{"face only", "disgust", "calm", "Negative facial emotion detected: disgust"},
		{"voice only", "neutral", "sad", "Negative voice emotion detected: sad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := nominalInput()
			in.Face = fusion.Modality{Probs: map[string]float64{tt.face: 1}}
			in.Voice = fusion.Modality{Probs: map[string]float64{tt.voice: 1}}

			res := fusion.NewPolicy().Decide(in)

			assert.Equal(t, fusion.Deny, res.Decision)
			assert.Equal(t, []string{tt.reason}, res.Reasons)
		})
	}
}

func TestDecide_EmptyDistributionsDefaultToNeutralAndCalm(t *testing.T) {
	in := nominalInput()
	in.Face.Probs = nil
	in.Voice.Probs = map[string]float64{}

	res := fusion.NewPolicy().Decide(in)

	assert.Equal(t, fusion.DefaultFaceEmotion, res.FacialEmotion)
	assert.Equal(t, fusion.DefaultVoiceEmotion, res.VoiceEmotion)
	assert.Equal(t, fusion.Permit, res.Decision)
}

func TestModalityDominant_TieBreaksAlphabetically(t *testing.T) {
	m := fusion.Modality{Probs: map[string]float64{"neutral": 0.4, "happy": 0.4, "sad": 0.2}}

	for i := 0; i < 20; i++ {
		assert.Equal(t, "happy", m.Dominant("calm"))
	}
}

func TestDecide_SecurityViolation(t *testing.T) {
	in := nominalInput()
	in.FaceCount = 2

	res := fusion.NewPolicy().Decide(in)

	assert.Equal(t, fusion.Deny, res.Decision)
	assert.True(t, res.SecurityViolation)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, 1.0, res.Stress)
	assert.Equal(t, fusion.LevelCritical, res.AlertLevel)
	assert.Equal(t, fusion.StateSecurityBreach, res.EmotionalState)
	assert.Equal(t, []string{"Multiple people detected: 2 faces in frame"}, res.Reasons)
	assert.True(t, res.UIAdaptation.RestrictFeatures)
}

func TestDefaultRules_Order(t *testing.T) {
	names := make([]string, 0)
	for _, r := range fusion.DefaultRules() {
		names = append(names, r.Name)
	}

	assert.Equal(t, []string{
		"high_coercion",
		"shouting_under_stress",
		"very_loud_under_stress",
		"keystroke_anomaly",
		"keystroke_mismatch",
		"very_high_stress",
		"moderate_coercion",
		"stress_in_unstable_environment",
		"dark_under_stress",
		"distressed_voice",
		"keystroke_anomalies",
		"keystroke_drift",
	}, names)
}

func TestDecideSignals_Cascade(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *fusion.Signals)
		decision fusion.Decision
		level    fusion.AlertLevel
		rule     string
	}{
		{"high coercion", func(s *fusion.Signals) { s.CoercionRisk = 0.9 }, fusion.Deny, fusion.LevelCritical, "high_coercion"},
		{"high coercion wins over anomaly", func(s *fusion.Signals) {
			s.CoercionRisk = 0.9
			s.Anomaly = 0.95
		}, fusion.Deny, fusion.LevelCritical, "high_coercion"},
		{"shouting without stress passes", func(s *fusion.Signals) { s.Flags.Shouting = true }, fusion.Permit, fusion.LevelNormal, fusion.RulePermit},
		{"very loud under stress", func(s *fusion.Signals) {
			s.Flags.VeryLoud = true
			s.Stress = 0.88
		}, fusion.Deny, fusion.LevelHigh, "very_loud_under_stress"},
		{"mismatch", func(s *fusion.Signals) {
			s.Match = 0.1
			s.Anomaly = 0.82
		}, fusion.Deny, fusion.LevelMedium, "keystroke_mismatch"},
		{"very high stress", func(s *fusion.Signals) { s.Stress = 0.95 }, fusion.Delay, fusion.LevelMedium, "very_high_stress"},
		{"moderate coercion", func(s *fusion.Signals) { s.CoercionRisk = 0.75 }, fusion.Delay, fusion.LevelMedium, "moderate_coercion"},
		{"stress in unstable environment", func(s *fusion.Signals) {
			s.Stress = 0.87
			s.Stability = 0.2
		}, fusion.Delay, fusion.LevelMedium, "stress_in_unstable_environment"},
		{"dark under stress", func(s *fusion.Signals) {
			s.Flags.VeryDark = true
			s.Stress = 0.75
		}, fusion.Delay, fusion.LevelLow, "dark_under_stress"},
		{"distressed voice", func(s *fusion.Signals) {
			s.Flags.HighPitch = true
			s.Flags.VoiceTremor = true
			s.Stress = 0.82
		}, fusion.Delay, fusion.LevelMedium, "distressed_voice"},
		{"drift", func(s *fusion.Signals) {
			s.Match = 0.1
			s.Anomaly = 0.5
		}, fusion.Delay, fusion.LevelLow, "keystroke_drift"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := passingSignals()
			tt.mutate(&s)

			res := fusion.NewPolicy().DecideSignals(s)

			assert.Equal(t, tt.decision, res.Decision)
			assert.Equal(t, tt.level, res.AlertLevel)
			assert.Equal(t, tt.rule, res.Rule)
		})
	}
}

func TestEvaluate_NoMatchFallsThrough(t *testing.T) {
	_, ok := fusion.NewPolicy().Evaluate(passingSignals())

	assert.False(t, ok)
}

func TestNewPolicyWithRules_UsesCustomTable(t *testing.T) {
	p := fusion.NewPolicyWithRules([]fusion.Rule{{
		Name:       "always",
		When:       func(fusion.Signals) bool { return true },
		Decision:   fusion.Delay,
		AlertLevel: fusion.LevelLow,
		Reason:     "Always delayed",
	}})

	res := p.Decide(nominalInput())

	assert.Equal(t, fusion.Delay, res.Decision)
	assert.Equal(t, []string{"Always delayed"}, res.Reasons)
	require.Len(t, p.Rules(), 1)
}

func TestDecideSignals_PermitReasons(t *testing.T) {
	tests := []struct {
		name    string
		match   float64
		stress  float64
		reasons []string
		level   fusion.AlertLevel
	}{
		{"verified", 0.5, 0, []string{fusion.ReasonVerified}, fusion.LevelNormal},
		{"acceptable", 0.2, 0, []string{fusion.ReasonAcceptable}, fusion.LevelNormal},
		{"boundary match", 0.15, 0, []string{fusion.ReasonAuthenticated}, fusion.LevelNormal},
		{"stress note", 0.5, 0.75, []string{fusion.ReasonVerified, fusion.ReasonStressNote}, fusion.LevelLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := passingSignals()
			s.Match = tt.match
			s.Anomaly = 0.5
			s.Stress = tt.stress

			res := fusion.NewPolicy().DecideSignals(s)

			assert.Equal(t, fusion.Permit, res.Decision)
			assert.Equal(t, tt.reasons, res.Reasons)
			assert.Equal(t, tt.level, res.AlertLevel)
		})
	}
}

func TestDecide_DecisionDependentRanges(t *testing.T) {
	policy := fusion.NewPolicy()
	labels := []string{"happy", "neutral", "sad", "angry"}
	levels := []float64{0, 0.3, 0.6, 0.9, 1}
	envs := []environment.Reading{
		calmEnv(),
		environment.Analyze(environment.FaceSummary{Brightness: 0.05, Contrast: 10}, environment.VoiceFeatures{RMS: 0.95, ZCR: 0.8, PitchHz: 290}),
		environment.Analyze(environment.FaceSummary{Brightness: 0.15, Contrast: 40}, environment.VoiceFeatures{RMS: 0.8, ZCR: 0.2, PitchHz: 180}),
		{Stability: 0.8, CoercionRisk: 0.75, QualityScore: 0.6},
	}

	seen := map[fusion.Decision]bool{}
	for _, label := range labels {
		for _, stress := range levels {
			for _, match := range levels {
				for _, env := range envs {
					res := policy.Decide(fusion.Input{
						Face:      face(label, stress),
						Voice:     voice("calm", stress),
						Keystroke: behavior.Result{Match: match, Anomaly: 1 - match, Confidence: match},
						Env:       env,
					})
					seen[res.Decision] = true

					switch res.Decision {
					case fusion.Permit:
						assert.GreaterOrEqual(t, res.Confidence, 0.75)
						assert.LessOrEqual(t, res.Confidence, 0.95)
						assert.LessOrEqual(t, res.Stress, 0.3)
					case fusion.Delay:
						assert.GreaterOrEqual(t, res.Confidence, 0.45)
						assert.LessOrEqual(t, res.Confidence, 0.65)
						assert.GreaterOrEqual(t, res.Stress, 0.3)
						assert.LessOrEqual(t, res.Stress, 0.6)
					case fusion.Deny:
						assert.GreaterOrEqual(t, res.Confidence, 0.15)
						assert.LessOrEqual(t, res.Confidence, 0.45)
						assert.GreaterOrEqual(t, res.Stress, 0.5)
						assert.LessOrEqual(t, res.Stress, 0.9)
					default:
						t.Fatalf("unexpected decision %q", res.Decision)
					}
				}
			}
		}
	}

	assert.Len(t, seen, 3, "grid should exercise every decision")
}

func TestDecide_ClampsOutOfRangeInputs(t *testing.T) {
	in := nominalInput()
	in.Face.Stress = 7
	in.Voice.Stress = -3
	in.Keystroke = behavior.Result{Match: 4, Anomaly: -2}

	res := fusion.NewPolicy().Decide(in)

	assert.Equal(t, 1.0, res.StressFacial)
	assert.Equal(t, 0.0, res.StressVoice)
	assert.Equal(t, fusion.Permit, res.Decision)
	assert.LessOrEqual(t, res.Confidence, 0.95)
}

func TestDecide_CompositeScores(t *testing.T) {
	res := fusion.NewPolicy().Decide(nominalInput())

	// stress 0.14: 0.86*0.4 + 0.9*0.4 + 0.95*0.2
	assert.InDelta(t, 0.894, res.BiometricScore, 1e-9)
	assert.InDelta(t, 0.86, res.EnvironmentScore, 1e-9)
	assert.InDelta(t, 0.894*0.7+0.86*0.3, res.AuthScore, 1e-9)
}
