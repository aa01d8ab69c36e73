// Package fusion turns per-modality scores into a permit, delay or deny
// decision with calibrated confidence, guidance and interface hints.
package fusion

import (
	"fmt"

	"github.com/BradenHooton/attune/internal/environment"
)

// stressDampening scales the combined facial/voice stress before the rule
// table sees it.
const stressDampening = 0.7

// Policy evaluates attempts against a fixed decision table. It holds no
// mutable state and is safe for concurrent use.
type Policy struct {
	rules []Rule
}

// NewPolicy returns a policy over the default decision table.
func NewPolicy() *Policy {
	return &Policy{rules: DefaultRules()}
}

// NewPolicyWithRules returns a policy over a custom table.
func NewPolicyWithRules(rules []Rule) *Policy {
	return &Policy{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the decision table in evaluation order.
func (p *Policy) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// NewSignals normalises the raw input into cascade signals.
func NewSignals(in Input) Signals {
	facial := clamp01(in.Face.Stress)
	voice := clamp01(in.Voice.Stress)
	return Signals{
		FacialStress:  facial,
		VoiceStress:   voice,
		Stress:        (0.5*facial + 0.5*voice) * stressDampening,
		FaceEmotion:   in.Face.Dominant(DefaultFaceEmotion),
		VoiceEmotion:  in.Voice.Dominant(DefaultVoiceEmotion),
		Match:         clamp01(in.Keystroke.Match),
		Anomaly:       clamp01(in.Keystroke.Anomaly),
		KeystrokeConf: clamp01(in.Keystroke.Confidence),
		CoercionRisk:  clamp01(in.Env.CoercionRisk),
		Stability:     clamp01(in.Env.Stability),
		Quality:       clamp01(in.Env.QualityScore),
		Flags:         in.Env.Flags,
		Env:           in.Env,
	}
}

// Decide evaluates one attempt.
func (p *Policy) Decide(in Input) Result {
	if in.FaceCount > 1 {
		return securityViolation(in)
	}
	return p.DecideSignals(NewSignals(in))
}

// DecideSignals runs the emotion gate, the rule cascade, recalibration and
// the derived fields over prepared signals.
func (p *Policy) DecideSignals(s Signals) Result {
	res := Result{
		StressFacial:         s.FacialStress,
		StressVoice:          s.VoiceStress,
		FacialEmotion:        s.FaceEmotion,
		VoiceEmotion:         s.VoiceEmotion,
		CoercionRisk:         s.CoercionRisk,
		EnvironmentalQuality: s.Quality,
		Recommendations:      recommendations(s.Env),
		SuitableEnvironment:  s.Env.SuitableForAuth,
	}
	res.BiometricScore, res.EnvironmentScore, res.AuthScore = composite(s)

	faceOK := IsPositiveEmotion(s.FaceEmotion)
	voiceOK := IsPositiveEmotion(s.VoiceEmotion)
	res.EmotionCheckPassed = faceOK && voiceOK

	switch {
	case !res.EmotionCheckPassed:
		res.Decision = Deny
		res.AlertLevel = LevelHigh
		res.Rule = RuleEmotionGate
		res.Reasons = []string{gateReason(s, faceOK, voiceOK)}
	default:
		p.cascade(s, &res)
	}

	res.Confidence, res.Stress = recalibrate(res.Decision, s.Match, s.Stress)
	res.Guidance = guidance(res, s)
	res.UIAdaptation = uiAdaptation(res.Stress, res.Decision, s.Flags)
	res.MentalHealthAlert = res.Stress > 0.75 || (res.Stress > 0.6 && res.Decision == Delay)
	res.EmotionalState = emotionalState(s)
	return res
}

// Evaluate returns the first table rule matching s, or false when the
// attempt falls through to permit. The emotion gate is not part of the table.
func (p *Policy) Evaluate(s Signals) (Rule, bool) {
	for _, r := range p.rules {
		if r.When(s) {
			return r, true
		}
	}
	return Rule{}, false
}

func (p *Policy) cascade(s Signals, res *Result) {
	if r, ok := p.Evaluate(s); ok {
		res.Decision = r.Decision
		res.AlertLevel = r.AlertLevel
		res.Rule = r.Name
		res.Reasons = []string{r.Reason}
		return
	}

	res.Decision = Permit
	res.AlertLevel = LevelNormal
	res.Rule = RulePermit
	switch {
	case s.Match > 0.3:
		res.Reasons = []string{ReasonVerified}
	case s.Match > 0.15:
		res.Reasons = []string{ReasonAcceptable}
	default:
		res.Reasons = []string{ReasonAuthenticated}
	}
	if s.Stress > 0.7 {
		res.Reasons = append(res.Reasons, ReasonStressNote)
		res.AlertLevel = LevelLow
	}
}

func gateReason(s Signals, faceOK, voiceOK bool) string {
	switch {
	case !faceOK && !voiceOK:
		return fmt.Sprintf("Negative emotions detected - Facial: %s, Voice: %s", s.FaceEmotion, s.VoiceEmotion)
	case !faceOK:
		return fmt.Sprintf("Negative facial emotion detected: %s", s.FaceEmotion)
	default:
		return fmt.Sprintf("Negative voice emotion detected: %s", s.VoiceEmotion)
	}
}

// recalibrate maps the decision onto its confidence and stress bands:
// permit [0.75,0.95] / <=0.3, delay [0.45,0.65] / [0.3,0.6],
// deny [0.15,0.45] / [0.5,0.9].
func recalibrate(d Decision, match, stress float64) (confidence, calibrated float64) {
	switch d {
	case Permit:
		return clamp(0.75+0.2*match, 0.75, 0.95), clamp(stress*0.4, 0, 0.3)
	case Delay:
		return clamp(0.45+0.2*match, 0.45, 0.65), clamp(stress*0.6, 0.3, 0.6)
	default:
		return clamp(0.15+0.3*match, 0.15, 0.45), clamp(stress*0.8, 0.5, 0.9)
	}
}

func composite(s Signals) (biometric, env, auth float64) {
	biometric = (1-s.Stress)*0.4 + s.Match*0.4 + (1-s.Anomaly)*0.2
	env = s.Stability*0.6 + s.Quality*0.4
	auth = biometric*0.7 + env*0.3
	return biometric, env, auth
}

func emotionalState(s Signals) EmotionalState {
	avg := (s.FacialStress + s.VoiceStress) / 2
	switch {
	case avg > 0.75:
		return StateHighlyStressed
	case avg > 0.6:
		return StateModeratelyStressed
	case s.FaceEmotion == "happy" || s.FaceEmotion == "surprise" ||
		s.VoiceEmotion == "happy" || s.VoiceEmotion == "calm":
		return StatePositive
	case avg < 0.3:
		return StateCalm
	case (s.FaceEmotion == "sad" || s.FaceEmotion == "fear") && avg > 0.5:
		return StateNegative
	case s.FaceEmotion == "angry" || s.VoiceEmotion == "angry":
		return StateAgitated
	default:
		return StateNeutral
	}
}

func recommendations(r environment.Reading) []string {
	if r.Recommendations == nil {
		return []string{}
	}
	return append([]string(nil), r.Recommendations...)
}

func securityViolation(in Input) Result {
	reason := fmt.Sprintf("Multiple people detected: %d faces in frame", in.FaceCount)
	return Result{
		Decision:          Deny,
		Confidence:        1.0,
		Stress:            1.0,
		StressFacial:      1.0,
		StressVoice:       clamp01(in.Voice.Stress),
		Reasons:           []string{reason},
		Rule:              RuleSecurityViolation,
		AlertLevel:        LevelCritical,
		Guidance:          GuidanceMultiplePeople,
		EmotionalState:    StateSecurityBreach,
		UIAdaptation:      UIAdaptation{ColorScheme: SchemeDefault, RestrictFeatures: true},
		CoercionRisk:      1.0,
		Recommendations:   []string{},
		FacialEmotion:     in.Face.Dominant(DefaultFaceEmotion),
		VoiceEmotion:      in.Voice.Dominant(DefaultVoiceEmotion),
		SecurityViolation: true,
		FaceCount:         in.FaceCount,
	}
}
