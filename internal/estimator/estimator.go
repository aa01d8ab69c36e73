// Package estimator holds the default emotion estimators used when a caller
// sends signal summaries without its own probability distribution.
package estimator

import (
	"math"

	"github.com/BradenHooton/attune/internal/environment"
	"github.com/BradenHooton/attune/internal/fusion"
)

// Facial emotion labels in the order the estimator reports them.
var FaceLabels = []string{"happy", "sad", "neutral", "angry", "fear", "surprise", "disgust"}

// Voice emotion labels.
var VoiceLabels = []string{"calm", "happy", "sad", "angry"}

var faceStressWeights = map[string]float64{
	"angry":    1.0,
	"fear":     0.9,
	"disgust":  0.7,
	"sad":      0.6,
	"surprise": 0.3,
	"neutral":  0.2,
	"happy":    0.1,
}

// FaceInput is a frame summary. Contrast is the raw grey level standard
// deviation, EdgeDensity the fraction of edge pixels.
type FaceInput struct {
	Brightness  float64
	Contrast    float64
	EdgeDensity float64
}

// Face estimates facial emotion from frame statistics.
type Face interface {
	Classify(in FaceInput) fusion.Modality
}

// Voice estimates vocal emotion from microphone features.
type Voice interface {
	Classify(in environment.VoiceFeatures) fusion.Modality
}

// HeuristicFace maps brightness, contrast and edges onto the seven facial
// labels.
type HeuristicFace struct{}

// Classify implements Face.
func (HeuristicFace) Classify(in FaceInput) fusion.Modality {
	b := clamp01(finite(in.Brightness))
	c := math.Max(0, finite(in.Contrast)/128)
	e := clamp01(finite(in.EdgeDensity))

	raw := map[string]float64{
		"happy":    clamp01(0.5*b + 0.3*c + 0.2*e),
		"sad":      clamp01(0.6*(1-b) + 0.3*(1-c) + 0.1*(1-e)),
		"surprise": clamp01(0.5*c + 0.4*e + 0.1*b),
		"angry":    clamp01(0.4*(1-b) + 0.4*c + 0.2*e),
		"fear":     clamp01(0.5*(1-b) + 0.3*e + 0.2*c),
		"disgust":  clamp01(0.4*math.Abs(b-0.5) + 0.3*c + 0.3*(1-b)),
	}
	sum := 0.0
	for _, v := range raw {
		sum += v
	}
	raw["neutral"] = math.Max(0, 1-sum/2.5)

	// every label keeps at least a 5% share before normalising
	for k, v := range raw {
		raw[k] = math.Max(0.05, math.Min(1, v))
	}
	probs := normalise(raw, FaceLabels)

	stress := 0.0
	for label, p := range probs {
		stress += p * faceStressWeights[label]
	}
	return fusion.Modality{Stress: clamp01(stress), Probs: probs}
}

// HeuristicVoice treats loud, jittery or high pitched speech as stressed.
type HeuristicVoice struct{}

// Classify implements Voice.
func (HeuristicVoice) Classify(in environment.VoiceFeatures) fusion.Modality {
	rms := finite(in.RMS)
	zcr := finite(in.ZCR)
	pitch := finite(in.PitchHz)

	highPitch := 0.0
	switch {
	case pitch > 260:
		highPitch = 1
	case pitch > 180:
		highPitch = (pitch - 180) / 80
	}

	stress := clamp01(0.6*rms + 0.4*zcr + 0.2*highPitch)
	raw := map[string]float64{
		"calm":  math.Max(0, 1-stress),
		"happy": clamp01(0.5*(1-zcr) + 0.3*(1-rms)),
		"sad":   clamp01(0.5*(1-pitch/240) + 0.2*(1-zcr)),
		"angry": stress,
	}
	return fusion.Modality{Stress: stress, Probs: normalise(raw, VoiceLabels)}
}

// normalise scales the scores to sum to one, falling back to a uniform
// distribution over labels when every score is zero.
func normalise(raw map[string]float64, labels []string) map[string]float64 {
	sum := 0.0
	for _, l := range labels {
		sum += raw[l]
	}
	probs := make(map[string]float64, len(labels))
	for _, l := range labels {
		if sum > 0 {
			probs[l] = raw[l] / sum
		} else {
			probs[l] = 1 / float64(len(labels))
		}
	}
	return probs
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
