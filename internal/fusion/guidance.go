package fusion

import (
	"fmt"
	"strings"

	"github.com/BradenHooton/attune/internal/environment"
)

// Guidance messages
const (
	GuidanceDuress         = "Access denied. Environmental conditions suggest potential duress. Please contact support if you need assistance."
	GuidanceQuieterPlace   = "Access denied. Please move to a quieter, calmer location and try again."
	GuidanceLighting       = "Access denied. Please ensure adequate lighting and try again."
	GuidanceDenied         = "Access denied. Please verify your credentials and ensure you're in a suitable environment."
	GuidanceMultiplePeople = "Access denied. Multiple people detected in frame. Only one person allowed during authentication."

	GuidanceBreathe       = "High stress detected. Take a few deep breaths, relax for a moment, and try again."
	GuidanceNoisyStress   = "Elevated stress in a noisy environment. Find a quieter space and try again when you feel calmer."
	GuidancePoorLighting  = "Poor lighting detected. Please improve lighting conditions and try again."
	GuidanceDelayed       = "Authentication delayed. Please wait a moment and try again."
	GuidanceStressedBreak = "Access granted. You seem a bit stressed - consider taking a break soon."
	GuidanceTakeCare      = "Access granted. Welcome! Remember to take care of yourself."
	GuidanceWelcome       = "Access granted. Welcome! You're doing great!"
)

// guidance picks the user-facing message from the decision, the calibrated
// stress and the environment.
func guidance(res Result, s Signals) string {
	stress := res.Stress
	flags := s.Flags

	switch res.Decision {
	case Deny:
		switch {
		case !res.EmotionCheckPassed:
			return fmt.Sprintf("Access denied. Negative emotions detected (Facial: %s, Voice: %s). Please relax and try again when you feel calm.",
				s.FaceEmotion, s.VoiceEmotion)
		case s.CoercionRisk > 0.5:
			return GuidanceDuress
		case flags.VeryLoud || flags.Shouting:
			return GuidanceQuieterPlace
		case flags.VeryDark:
			return GuidanceLighting
		default:
			return GuidanceDenied
		}
	case Delay:
		switch {
		case stress > 0.7:
			return GuidanceBreathe
		case stress > 0.5 && flags.Noisy:
			return GuidanceNoisyStress
		case flags.Dark:
			return GuidancePoorLighting
		case len(res.Recommendations) > 0:
			return addressRecommendations(res.Recommendations)
		default:
			return GuidanceDelayed
		}
	default:
		switch {
		case stress > 0.6:
			return GuidanceStressedBreak
		case stress > 0.4:
			return GuidanceTakeCare
		default:
			return GuidanceWelcome
		}
	}
}

func addressRecommendations(recs []string) string {
	if len(recs) > 2 {
		recs = recs[:2]
	}
	return fmt.Sprintf("Please address: %s and try again.", strings.Join(recs, ", "))
}

// uiAdaptation derives interface hints from the calibrated stress.
func uiAdaptation(stress float64, d Decision, flags environment.Flags) UIAdaptation {
	ui := UIAdaptation{ColorScheme: SchemeDefault}

	switch {
	case stress > 0.7:
		ui.ColorScheme = SchemeCalming
		ui.ReduceAnimations = true
		ui.ShowWellnessTips = true
		ui.SuggestBreak = true
		ui.CalmingMode = true
	case stress > 0.5:
		ui.ColorScheme = SchemeSoft
		ui.ShowWellnessTips = true
	}

	if d == Deny {
		ui.RestrictFeatures = true
	}
	if flags.Dark || flags.VeryDark {
		ui.ColorScheme = SchemeHighContrast
	}
	return ui
}
