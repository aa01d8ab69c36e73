// Package behavior fits per-user typing-rhythm boundary models and scores
// new samples against them.
package behavior

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/BradenHooton/attune/internal/keystroke"
	"github.com/BradenHooton/attune/internal/models"
)

const (
	DefaultNu    = 0.3
	DefaultGamma = 0.01

	kindKernelDensity = "kernel_density"

	// relative floor applied to per-feature scale so constant features
	// (e.g. key_count for a fixed phrase) do not explode z-scores
	relativeScaleFloor = 0.1
	absoluteScaleFloor = 1e-3
)

// Params are the tuning knobs shared by boundary estimators.
type Params struct {
	Nu    float64 `json:"nu"`    // outlier tolerance fraction, (0,1)
	Gamma float64 `json:"gamma"` // RBF kernel bandwidth, > 0
}

// Estimator fits a one-class boundary over enrollment vectors.
type Estimator interface {
	Kind() string
	Params() Params
	Fit(vectors []keystroke.FeatureVector) (Boundary, error)
	Decode(data []byte) (Boundary, error)
}

// Boundary reports the signed distance of a vector to the learned region,
// positive inside, negative outside, roughly within [-1, 1].
type Boundary interface {
	Decision(v keystroke.FeatureVector) float64
}

// KernelDensityEstimator is a support-boundary estimator built on a
// standardised RBF kernel density. The boundary sits at (1-Nu) of the mean
// enrollment density, so Nu controls how far below typical a sample may fall
// before it is outside.
type KernelDensityEstimator struct {
	params Params
}

// NewKernelDensityEstimator validates params and returns an estimator.
func NewKernelDensityEstimator(params Params) (*KernelDensityEstimator, error) {
	if params.Nu <= 0 || params.Nu >= 1 {
		return nil, fmt.Errorf("nu must be in (0,1), got %v: %w", params.Nu, models.ErrBadRequest)
	}
	if params.Gamma <= 0 || math.IsNaN(params.Gamma) || math.IsInf(params.Gamma, 0) {
		return nil, fmt.Errorf("gamma must be positive, got %v: %w", params.Gamma, models.ErrBadRequest)
	}
	return &KernelDensityEstimator{params: params}, nil
}

// DefaultEstimator returns the estimator with nu=0.3, gamma=0.01.
func DefaultEstimator() *KernelDensityEstimator {
	return &KernelDensityEstimator{params: Params{Nu: DefaultNu, Gamma: DefaultGamma}}
}

func (e *KernelDensityEstimator) Kind() string   { return kindKernelDensity }
func (e *KernelDensityEstimator) Params() Params { return e.params }

// Fit standardises the vectors and places the boundary relative to the
// mean in-sample density.
func (e *KernelDensityEstimator) Fit(vectors []keystroke.FeatureVector) (Boundary, error) {
	n := len(vectors)
	if n == 0 {
		return nil, models.ErrInsufficientData
	}

	b := &KernelBoundary{Gamma: e.params.Gamma, Nu: e.params.Nu}

	for j := 0; j < keystroke.FeatureCount; j++ {
		sum := 0.0
		for _, v := range vectors {
			sum += v[j]
		}
		center := sum / float64(n)

		sq := 0.0
		for _, v := range vectors {
			d := v[j] - center
			sq += d * d
		}
		std := math.Sqrt(sq / float64(n))

		b.Center[j] = center
		b.Scale[j] = math.Max(std, math.Max(relativeScaleFloor*math.Abs(center), absoluteScaleFloor))
	}

	b.Support = make([]keystroke.FeatureVector, n)
	for i, v := range vectors {
		b.Support[i] = b.standardise(v)
	}

	reference := 0.0
	for _, z := range b.Support {
		reference += b.density(z)
	}
	reference /= float64(n)

	b.Rho = (1 - e.params.Nu) * reference
	if b.Rho <= 0 || math.IsNaN(b.Rho) {
		return nil, fmt.Errorf("degenerate enrollment density: %w", models.ErrInsufficientData)
	}

	return b, nil
}

// Decode restores a boundary persisted by this estimator.
func (e *KernelDensityEstimator) Decode(data []byte) (Boundary, error) {
	var b KernelBoundary
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode kernel boundary: %w", err)
	}
	if len(b.Support) == 0 || b.Rho <= 0 {
		return nil, models.ErrModelCorrupted
	}
	return &b, nil
}

// KernelBoundary is the fitted state of a KernelDensityEstimator. It is
// never mutated after Fit returns.
type KernelBoundary struct {
	Center  keystroke.FeatureVector   `json:"center"`
	Scale   keystroke.FeatureVector   `json:"scale"`
	Support []keystroke.FeatureVector `json:"support"`
	Gamma   float64                   `json:"gamma"`
	Nu      float64                   `json:"nu"`
	Rho     float64                   `json:"rho"`
}

// Decision returns (density-rho)/rho clamped to [-1, 1].
func (b *KernelBoundary) Decision(v keystroke.FeatureVector) float64 {
	d := (b.density(b.standardise(v)) - b.Rho) / b.Rho
	if math.IsNaN(d) {
		return -1
	}
	return clamp(d, -1, 1)
}

func (b *KernelBoundary) standardise(v keystroke.FeatureVector) keystroke.FeatureVector {
	var z keystroke.FeatureVector
	for j := range v {
		z[j] = (v[j] - b.Center[j]) / b.Scale[j]
	}
	return z
}

func (b *KernelBoundary) density(z keystroke.FeatureVector) float64 {
	sum := 0.0
	for _, s := range b.Support {
		dist := 0.0
		for j := range z {
			d := z[j] - s[j]
			dist += d * d
		}
		sum += math.Exp(-b.Gamma * dist)
	}
	return sum / float64(len(b.Support))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
