// Package alerts turns decisions into prioritised alerts and keeps them in a
// capped ledger with an acknowledge/resolve lifecycle.
package alerts

import (
	"fmt"
	"strings"

	"github.com/BradenHooton/attune/internal/behavior"
	"github.com/BradenHooton/attune/internal/environment"
	"github.com/BradenHooton/attune/internal/fusion"
)

// Alert types
const (
	TypeCoercion       = "coercion"
	TypeEnvironmental  = "environmental"
	TypeSecurity       = "security"
	TypeWellness       = "wellness"
	TypeMultiplePeople = "multiple_people_detected"
)

// Draft is an alert that has not been assigned an id yet.
type Draft struct {
	Type    string            `json:"type"`
	Level   fusion.AlertLevel `json:"level"`
	UserID  string            `json:"user_id"`
	Message string            `json:"message"`
	Details map[string]any    `json:"details"`
}

// Classify applies every alert rule to a finished attempt. Rules are
// independent, so one attempt may raise several alerts.
func Classify(userID string, res fusion.Result, kd behavior.Result, env environment.Reading) []Draft {
	if res.SecurityViolation {
		violation := strings.Join(res.Reasons, ", ")
		return []Draft{{
			Type:    TypeMultiplePeople,
			Level:   fusion.LevelCritical,
			UserID:  userID,
			Message: "SECURITY BREACH: " + violation,
			Details: map[string]any{
				"num_faces": res.FaceCount,
				"violation": violation,
			},
		}}
	}

	drafts := make([]Draft, 0)
	add := func(typ string, level fusion.AlertLevel, msg string, details map[string]any) {
		drafts = append(drafts, Draft{Type: typ, Level: level, UserID: userID, Message: msg, Details: details})
	}

	if res.CoercionRisk > 0.5 {
		add(TypeCoercion, fusion.LevelCritical,
			fmt.Sprintf("High coercion risk detected for user %s", userID),
			map[string]any{
				"coercion_risk":       res.CoercionRisk,
				"environmental_flags": env.Flags,
				"stress_level":        res.Stress,
				"decision":            res.Decision,
			})
	}
	if env.Flags.Shouting {
		add(TypeEnvironmental, fusion.LevelCritical,
			fmt.Sprintf("Shouting detected during authentication attempt by %s", userID),
			map[string]any{
				"loudness":   env.Loudness,
				"pitch":      env.Pitch,
				"risk_level": env.RiskLevel,
			})
	}
	if kd.Anomaly > 0.7 {
		add(TypeSecurity, fusion.LevelHigh,
			fmt.Sprintf("Keystroke pattern anomaly detected for %s", userID),
			map[string]any{
				"anomaly_score": kd.Anomaly,
				"match_score":   kd.Match,
				"confidence":    kd.Confidence,
			})
	}
	if res.Decision == fusion.Deny {
		add(TypeSecurity, fusion.LevelHigh,
			fmt.Sprintf("Authentication denied for %s", userID),
			map[string]any{
				"reason":      strings.Join(res.Reasons, ", "),
				"confidence":  res.Confidence,
				"alert_level": res.AlertLevel,
			})
	}
	if res.Stress > 0.7 {
		add(TypeWellness, fusion.LevelMedium,
			fmt.Sprintf("High stress level detected for %s", userID),
			map[string]any{
				"stress_level":    res.Stress,
				"facial_stress":   res.StressFacial,
				"voice_stress":    res.StressVoice,
				"emotional_state": res.EmotionalState,
			})
	}
	if res.MentalHealthAlert {
		add(TypeWellness, fusion.LevelMedium,
			fmt.Sprintf("Mental health support may be needed for %s", userID),
			map[string]any{
				"stress_level":    res.Stress,
				"emotional_state": res.EmotionalState,
				"guidance":        res.Guidance,
			})
	}
	if !env.SuitableForAuth {
		recs := env.Recommendations
		if recs == nil {
			recs = []string{}
		}
		add(TypeEnvironmental, fusion.LevelLow,
			fmt.Sprintf("Unsuitable environment detected for %s", userID),
			map[string]any{
				"environmental_quality": env.QualityScore,
				"stability":             env.Stability,
				"recommendations":       recs,
			})
	}

	return drafts
}
