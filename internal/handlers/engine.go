package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/attune/internal/behavior"
	"github.com/BradenHooton/attune/internal/keystroke"
	"github.com/BradenHooton/attune/internal/services"
	pkghttp "github.com/BradenHooton/attune/pkg/http"
)

// DecisionServiceInterface defines the decision pipeline contract.
type DecisionServiceInterface interface {
	Evaluate(ctx context.Context, req services.AttemptRequest) (*services.AttemptOutcome, error)
	AnalyzeEmotion(face services.FaceObservation, voice services.VoiceObservation) services.EmotionAnalysis
	Simulate(req services.SimulationRequest) services.SimulationOutcome
}

// EnrollmentServiceInterface defines the enrollment contract.
type EnrollmentServiceInterface interface {
	Enroll(ctx context.Context, userID string, samples []keystroke.Sample) (*behavior.ModelHandle, error)
}

// KeystrokeEvent is one key press on the wire. Missing timings are allowed
// and simply contribute no intervals.
type KeystrokeEvent struct {
	Key       string   `json:"key" validate:"required,max=32"`
	PressMs   *float64 `json:"press_time_ms"`
	ReleaseMs *float64 `json:"release_time_ms"`
}

type EnrollRequest struct {
	UserID  string             `json:"user_id" validate:"required,max=128"`
	Samples [][]KeystrokeEvent `json:"samples" validate:"required,min=1,max=100,dive,min=1,max=512,dive"`
}

type AttemptRequest struct {
	UserID          string                    `json:"user_id" validate:"required,max=128"`
	Face            services.FaceObservation  `json:"face"`
	Voice           services.VoiceObservation `json:"voice"`
	KeystrokeEvents []KeystrokeEvent          `json:"keystroke_events" validate:"max=512,dive"`
}

type EmotionRequest struct {
	Face  services.FaceObservation  `json:"face"`
	Voice services.VoiceObservation `json:"voice"`
}

// SimulateRequest leaves any omitted knob at its default.
type SimulateRequest struct {
	Stress     *float64 `json:"stress_level" validate:"omitempty,gte=0,lte=1"`
	Match      *float64 `json:"match_score" validate:"omitempty,gte=0,lte=1"`
	Brightness *float64 `json:"brightness" validate:"omitempty,gte=0,lte=1"`
	Noise      *float64 `json:"noise" validate:"omitempty,gte=0,lte=1"`
}

// EngineHandler serves the access decision endpoints.
type EngineHandler struct {
	decisions   DecisionServiceInterface
	enrollments EnrollmentServiceInterface
	ips         *pkghttp.IPResolver
}

func NewEngineHandler(decisions DecisionServiceInterface, enrollments EnrollmentServiceInterface, ips *pkghttp.IPResolver) *EngineHandler {
	return &EngineHandler{decisions: decisions, enrollments: enrollments, ips: ips}
}

// Enroll handles POST /v1/enroll
func (h *EngineHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	samples := make([]keystroke.Sample, 0, len(req.Samples))
	for _, s := range req.Samples {
		samples = append(samples, toSample(s))
	}

	handle, err := h.enrollments.Enroll(r.Context(), req.UserID, samples)
	if err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, handle)
}

// Attempt handles POST /v1/attempts
func (h *EngineHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	var req AttemptRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Face.NumFaces < 0 {
		pkghttp.WriteBadRequest(w, "validation failed: face.num_faces: must be greater than or equal to 0")
		return
	}

	outcome, err := h.decisions.Evaluate(r.Context(), services.AttemptRequest{
		UserID:     req.UserID,
		Face:       req.Face,
		Voice:      req.Voice,
		Keystrokes: toSample(req.KeystrokeEvents),
		IPAddress:  h.ips.ClientIP(r),
	})
	if err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, outcome)
}

// AnalyzeEmotion handles POST /v1/analyze/emotion
func (h *EngineHandler) AnalyzeEmotion(w http.ResponseWriter, r *http.Request) {
	var req EmotionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, h.decisions.AnalyzeEmotion(req.Face, req.Voice))
}

// Simulate handles POST /v1/simulate. An empty body runs the defaults.
func (h *EngineHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	sim := services.DefaultSimulation()
	overlay(&sim.Stress, req.Stress)
	overlay(&sim.Match, req.Match)
	overlay(&sim.Brightness, req.Brightness)
	overlay(&sim.Noise, req.Noise)

	pkghttp.WriteJSON(w, http.StatusOK, h.decisions.Simulate(sim))
}

func overlay(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func toSample(events []KeystrokeEvent) keystroke.Sample {
	sample := make(keystroke.Sample, 0, len(events))
	for _, e := range events {
		sample = append(sample, keystroke.Event{Key: e.Key, PressMs: e.PressMs, ReleaseMs: e.ReleaseMs})
	}
	return sample
}
