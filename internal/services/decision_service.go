package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/BradenHooton/attune/internal/behavior"
	"github.com/BradenHooton/attune/internal/environment"
	"github.com/BradenHooton/attune/internal/estimator"
	"github.com/BradenHooton/attune/internal/fusion"
	"github.com/BradenHooton/attune/internal/keystroke"
	"github.com/BradenHooton/attune/internal/metrics"
	"github.com/BradenHooton/attune/internal/models"
	pkglogger "github.com/BradenHooton/attune/pkg/logger"
	"github.com/google/uuid"
)

// persistTimeout bounds each background write made after a decision.
const persistTimeout = 5 * time.Second

// AttemptRecorder persists decided attempts
type AttemptRecorder interface {
	Create(ctx context.Context, attempt *models.AccessAttempt) error
}

// FaceObservation summarises the camera frame. Probs and Stress, when set,
// come from an external estimator and take precedence over the built-in one.
type FaceObservation struct {
	Stress      *float64           `json:"stress,omitempty"`
	Probs       map[string]float64 `json:"probs,omitempty"`
	Brightness  float64            `json:"brightness"`
	Contrast    float64            `json:"contrast"`
	EdgeDensity float64            `json:"edge_density,omitempty"`
	NumFaces    int                `json:"num_faces,omitempty"`
}

// VoiceObservation carries microphone features and optional external
// estimates.
type VoiceObservation struct {
	Stress   *float64                  `json:"stress,omitempty"`
	Probs    map[string]float64        `json:"probs,omitempty"`
	Features environment.VoiceFeatures `json:"features"`
}

// AttemptRequest is one access attempt to decide.
type AttemptRequest struct {
	UserID     string
	Face       FaceObservation
	Voice      VoiceObservation
	Keystrokes keystroke.Sample
	IPAddress  string
}

// AttemptOutcome is everything produced for an attempt.
type AttemptOutcome struct {
	AttemptID   uuid.UUID           `json:"attempt_id"`
	Fusion      fusion.Result       `json:"fusion"`
	Facial      fusion.Modality     `json:"facial"`
	Voice       fusion.Modality     `json:"voice"`
	Keystroke   behavior.Result     `json:"keystroke"`
	Environment environment.Reading `json:"env"`
	Alerts      []alerts.Alert      `json:"alerts"`
}

// EmotionAnalysis is the estimator output without a decision.
type EmotionAnalysis struct {
	Facial            fusion.Modality `json:"facial"`
	FacialEmotion     string          `json:"facial_emotion"`
	Voice             fusion.Modality `json:"voice"`
	VoiceEmotion      string          `json:"voice_emotion"`
	SecurityViolation bool            `json:"security_violation"`
	NumFaces          int             `json:"num_faces"`
}

// SimulationRequest drives the policy from four scalar knobs.
type SimulationRequest struct {
	Stress     float64 `json:"stress_level"`
	Match      float64 `json:"match_score"`
	Brightness float64 `json:"brightness"`
	Noise      float64 `json:"noise"`
}

// DefaultSimulation mirrors a calm, half-matched attempt.
func DefaultSimulation() SimulationRequest {
	return SimulationRequest{Stress: 0.5, Match: 0.5, Brightness: 0.5, Noise: 0.3}
}

// SimulationOutcome is the decision reached for a simulation.
type SimulationOutcome struct {
	Inputs SimulationRequest `json:"inputs"`
	Result fusion.Result     `json:"result"`
}

// DecisionService runs the full pipeline for an access attempt
type DecisionService struct {
	registry  *behavior.Registry
	policy    *fusion.Policy
	face      estimator.Face
	voice     estimator.Voice
	ledger    *alerts.Ledger
	attempts  AttemptRecorder
	notifiers []AlertNotifier
	metrics   *metrics.Metrics
	audit     *pkglogger.DecisionLogger
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewDecisionService creates a new DecisionService. attempts may be nil
// when attempts are not persisted.
func NewDecisionService(
	registry *behavior.Registry,
	policy *fusion.Policy,
	ledger *alerts.Ledger,
	attempts AttemptRecorder,
	notifiers []AlertNotifier,
	m *metrics.Metrics,
	audit *pkglogger.DecisionLogger,
	logger *slog.Logger,
) *DecisionService {
	return &DecisionService{
		registry:  registry,
		policy:    policy,
		face:      estimator.HeuristicFace{},
		voice:     estimator.HeuristicVoice{},
		ledger:    ledger,
		attempts:  attempts,
		notifiers: notifiers,
		metrics:   m,
		audit:     audit,
		logger:    logger,
	}
}

// Evaluate scores, fuses and classifies an attempt. It returns
// models.ErrModelNotFound when the user has not enrolled.
func (s *DecisionService) Evaluate(ctx context.Context, req AttemptRequest) (*AttemptOutcome, error) {
	start := time.Now()

	kd, err := s.registry.Score(ctx, req.UserID, req.Keystrokes)
	if err != nil {
		return nil, err
	}

	env := environment.Analyze(
		environment.FaceSummary{Brightness: req.Face.Brightness, Contrast: req.Face.Contrast},
		req.Voice.Features,
	)
	face := s.faceModality(req.Face)
	voice := s.voiceModality(req.Voice)

	if req.Face.NumFaces > 1 {
		// keystrokes are not trusted once a second person is in frame
		kd = behavior.Result{Anomaly: 1}
		env.SuitableForAuth = false
	}

	res := s.policy.Decide(fusion.Input{
		Face:      face,
		Voice:     voice,
		Keystroke: kd,
		Env:       env,
		FaceCount: req.Face.NumFaces,
	})

	created, err := s.ledger.AppendAll(ctx, alerts.Classify(req.UserID, res, kd, env))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record alerts",
			slog.String("user_id", pkglogger.SanitizedUserID(req.UserID)),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to record alerts: %w", err)
	}

	outcome := &AttemptOutcome{
		AttemptID:   uuid.New(),
		Fusion:      res,
		Facial:      face,
		Voice:       voice,
		Keystroke:   kd,
		Environment: env,
		Alerts:      created,
	}

	s.metrics.ObserveDecision(string(res.Decision), string(res.AlertLevel), time.Since(start))
	for _, a := range created {
		s.metrics.ObserveAlert(a.Type, string(a.Level))
	}
	s.metrics.LedgerSize.Set(float64(s.ledger.Len()))

	s.audit.LogDecision(ctx, pkglogger.DecisionEvent{
		AttemptID:  outcome.AttemptID.String(),
		UserID:     req.UserID,
		Decision:   string(res.Decision),
		Confidence: res.Confidence,
		AlertLevel: string(res.AlertLevel),
		Rule:       res.Rule,
		IPAddress:  req.IPAddress,
		Alerts:     len(created),
	})

	s.persist(ctx, req, outcome)
	s.notify(ctx, created)

	return outcome, nil
}

// AnalyzeEmotion runs the estimators alone.
func (s *DecisionService) AnalyzeEmotion(face FaceObservation, voice VoiceObservation) EmotionAnalysis {
	f := s.faceModality(face)
	v := s.voiceModality(voice)
	return EmotionAnalysis{
		Facial:            f,
		FacialEmotion:     f.Dominant(fusion.DefaultFaceEmotion),
		Voice:             v,
		VoiceEmotion:      v.Dominant(fusion.DefaultVoiceEmotion),
		SecurityViolation: face.NumFaces > 1,
		NumFaces:          face.NumFaces,
	}
}

// Simulate decides a synthetic attempt. Nothing is recorded.
func (s *DecisionService) Simulate(req SimulationRequest) SimulationOutcome {
	face := fusion.Modality{
		Stress: req.Stress,
		Probs:  map[string]float64{"neutral": 0.7, "happy": 0.2, "sad": 0.1},
	}
	voice := fusion.Modality{
		Stress: req.Stress,
		Probs:  map[string]float64{"calm": 0.7, "happy": 0.2, "sad": 0.1},
	}
	features := environment.VoiceFeatures{RMS: req.Noise, ZCR: 0.3, PitchHz: 180}
	kd := behavior.Result{
		Match:      req.Match,
		Anomaly:    1 - req.Match,
		Confidence: req.Match,
		IsGenuine:  req.Match > 0.5,
	}
	env := environment.Analyze(environment.FaceSummary{Brightness: req.Brightness, Contrast: 60}, features)

	return SimulationOutcome{
		Inputs: req,
		Result: s.policy.Decide(fusion.Input{Face: face, Voice: voice, Keystroke: kd, Env: env}),
	}
}

// Wait blocks until background writes started by Evaluate finish.
func (s *DecisionService) Wait() {
	s.wg.Wait()
}

func (s *DecisionService) faceModality(obs FaceObservation) fusion.Modality {
	m := fusion.Modality{Probs: obs.Probs}
	if len(obs.Probs) == 0 || obs.Stress == nil {
		est := s.face.Classify(estimator.FaceInput{
			Brightness:  obs.Brightness,
			Contrast:    obs.Contrast,
			EdgeDensity: obs.EdgeDensity,
		})
		if len(obs.Probs) == 0 {
			m.Probs = est.Probs
		}
		m.Stress = est.Stress
	}
	if obs.Stress != nil {
		m.Stress = *obs.Stress
	}
	return m
}

func (s *DecisionService) voiceModality(obs VoiceObservation) fusion.Modality {
	m := fusion.Modality{Probs: obs.Probs}
	if len(obs.Probs) == 0 || obs.Stress == nil {
		est := s.voice.Classify(obs.Features)
		if len(obs.Probs) == 0 {
			m.Probs = est.Probs
		}
		m.Stress = est.Stress
	}
	if obs.Stress != nil {
		m.Stress = *obs.Stress
	}
	return m
}

func (s *DecisionService) persist(ctx context.Context, req AttemptRequest, out *AttemptOutcome) {
	if s.attempts == nil {
		return
	}

	inputs, err := models.NewDocument(map[string]interface{}{
		"face":            req.Face,
		"voice":           req.Voice,
		"keystroke_count": len(req.Keystrokes),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode attempt inputs", slog.Any("error", err))
		return
	}
	result, err := models.NewDocument(out)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode attempt result", slog.Any("error", err))
		return
	}

	attempt := &models.AccessAttempt{
		ID:         out.AttemptID,
		UserID:     req.UserID,
		Decision:   string(out.Fusion.Decision),
		Confidence: out.Fusion.Confidence,
		AlertLevel: string(out.Fusion.AlertLevel),
		Reasons:    out.Fusion.Reasons,
		Inputs:     inputs,
		Result:     result,
		CreatedAt:  time.Now().UTC(),
	}

	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		writeCtx, cancel := context.WithTimeout(bg, persistTimeout)
		defer cancel()

		if err := s.attempts.Create(writeCtx, attempt); err != nil {
			s.logger.ErrorContext(writeCtx, "failed to persist attempt",
				slog.String("attempt_id", attempt.ID.String()),
				slog.Any("error", err))
		}
	}()
}

func (s *DecisionService) notify(ctx context.Context, created []alerts.Alert) {
	if len(s.notifiers) == 0 {
		return
	}

	bg := context.WithoutCancel(ctx)
	for _, a := range created {
		if a.Level != fusion.LevelCritical {
			continue
		}
		for _, n := range s.notifiers {
			s.wg.Add(1)
			go func(n AlertNotifier, a alerts.Alert) {
				defer s.wg.Done()
				sendCtx, cancel := context.WithTimeout(bg, persistTimeout)
				defer cancel()

				result := "success"
				if err := n.Notify(sendCtx, a); err != nil {
					result = "failure"
					s.logger.WarnContext(sendCtx, "alert notification failed",
						slog.String("channel", n.Name()),
						slog.Int64("alert_id", a.ID),
						slog.Any("error", err))
				}
				s.metrics.Notifications.WithLabelValues(n.Name(), result).Inc()
			}(n, a)
		}
	}
}
