// Package environment derives lighting, noise and coercion indicators from
// face and voice signal summaries.
package environment

import "math"

// Risk levels
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Recommendations, in the order they are emitted
const (
	RecImproveLighting  = "Improve lighting conditions"
	RecQuieterLocation  = "Move to a quieter location"
	RecNormalTone       = "Speak in a normal tone"
	RecPotentialDuress  = "Environmental conditions suggest potential duress"
	RecConsiderLighting = "Consider improving lighting"
	RecSomewhatNoisy    = "Environment is somewhat noisy"
)

// FaceSummary holds the camera frame statistics. Contrast is the raw grey
// level standard deviation (typically 0-128).
type FaceSummary struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
}

// VoiceFeatures holds microphone statistics computed client side.
type VoiceFeatures struct {
	RMS     float64 `json:"rms"`
	ZCR     float64 `json:"zcr"`
	PitchHz float64 `json:"pitch_hz"`
}

// Flags are the boolean environment indicators.
type Flags struct {
	Dark        bool `json:"dark"`
	VeryDark    bool `json:"very_dark"`
	Bright      bool `json:"bright"`
	LowContrast bool `json:"low_contrast"`
	Noisy       bool `json:"noisy"`
	VeryLoud    bool `json:"very_loud"`
	Quiet       bool `json:"quiet"`
	HighPitch   bool `json:"high_pitch"`
	VoiceTremor bool `json:"voice_tremor"`
	Shouting    bool `json:"shouting"`
}

// Reading is the derived environment assessment.
type Reading struct {
	Brightness      float64  `json:"brightness"`
	Contrast        float64  `json:"contrast"`
	Loudness        float64  `json:"loudness"`
	Pitch           float64  `json:"pitch"`
	ZCR             float64  `json:"zcr"`
	Flags           Flags    `json:"flags"`
	Stability       float64  `json:"stability"`
	CoercionRisk    float64  `json:"coercion_risk"`
	QualityScore    float64  `json:"quality_score"`
	RiskLevel       string   `json:"risk_level"`
	SuitableForAuth bool     `json:"suitable_for_auth"`
	Recommendations []string `json:"recommendations"`
}

var coercionWeights = [4]float64{0.3, 0.4, 0.1, 0.2}

// Analyze assesses the environment. It has no state: equal inputs give equal
// readings.
func Analyze(face FaceSummary, voice VoiceFeatures) Reading {
	brightness := finite(face.Brightness)
	contrast := finite(face.Contrast)
	rms := finite(voice.RMS)
	zcr := finite(voice.ZCR)
	pitch := finite(voice.PitchHz)

	flags := Flags{
		Dark:        brightness < 0.2,
		VeryDark:    brightness < 0.1,
		Bright:      brightness > 0.8,
		LowContrast: contrast < 30,
		Noisy:       rms > 0.75,
		VeryLoud:    rms > 0.9,
		Quiet:       rms < 0.15,
		HighPitch:   pitch > 280,
		VoiceTremor: zcr > 0.7,
		Shouting:    rms > 0.85 && pitch > 270,
	}

	normalPitch := pitch >= 100 && pitch <= 300

	stability := (pick(brightness >= 0.2 && brightness <= 0.8, 1.0, 0.6) +
		pick(rms < 0.6, 1.0, 0.5) +
		pick(normalPitch, 1.0, 0.7) +
		pick(contrast > 30, 1.0, 0.8)) / 4

	indicators := [4]bool{
		flags.VeryLoud,
		flags.Shouting,
		flags.VeryDark,
		flags.VoiceTremor && flags.HighPitch,
	}
	coercion := 0.0
	for i, on := range indicators {
		if on {
			coercion += coercionWeights[i]
		}
	}

	quality := (1.0-math.Abs(brightness-0.5)*1.5)*0.3 +
		(1.0-rms*0.8)*0.3 +
		pick(normalPitch, 1.0, 0.6)*0.2 +
		math.Min(contrast/80, 1.0)*0.2

	stability = clamp01(stability)
	coercion = clamp01(coercion)
	quality = clamp01(quality)

	return Reading{
		Brightness:      brightness,
		Contrast:        contrast,
		Loudness:        rms,
		Pitch:           pitch,
		ZCR:             zcr,
		Flags:           flags,
		Stability:       stability,
		CoercionRisk:    coercion,
		QualityScore:    quality,
		RiskLevel:       riskLevel(coercion, flags),
		SuitableForAuth: stability > 0.5 && coercion < 0.6,
		Recommendations: recommendations(coercion, flags),
	}
}

func riskLevel(coercion float64, flags Flags) string {
	switch {
	case coercion > 0.6 || flags.Shouting:
		return RiskHigh
	case coercion > 0.4 || flags.VeryLoud:
		return RiskMedium
	default:
		return RiskLow
	}
}

func recommendations(coercion float64, flags Flags) []string {
	recs := make([]string, 0)
	if flags.VeryDark {
		recs = append(recs, RecImproveLighting)
	}
	if flags.VeryLoud {
		recs = append(recs, RecQuieterLocation)
	}
	if flags.Shouting {
		recs = append(recs, RecNormalTone)
	}
	if coercion > 0.5 {
		recs = append(recs, RecPotentialDuress)
	}
	if flags.Dark && !flags.VeryDark {
		recs = append(recs, RecConsiderLighting)
	}
	if flags.Noisy && !flags.VeryLoud {
		recs = append(recs, RecSomewhatNoisy)
	}
	return recs
}

func pick(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
