package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/BradenHooton/attune/internal/auth"
	"github.com/BradenHooton/attune/internal/behavior"
	"github.com/BradenHooton/attune/internal/fusion"
	"github.com/BradenHooton/attune/internal/keystroke"
	"github.com/BradenHooton/attune/internal/models"
	"github.com/BradenHooton/attune/internal/services"
	pkghttp "github.com/BradenHooton/attune/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAdminContext adds operator claims to the request context
func WithAdminContext(req *http.Request, subject string) *http.Request {
	claims := &models.AdminClaims{
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
	return req.WithContext(auth.WithAdmin(req.Context(), claims))
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockDecisionService implements DecisionServiceInterface for testing
type MockDecisionService struct {
	EvaluateFunc       func(ctx context.Context, req services.AttemptRequest) (*services.AttemptOutcome, error)
	AnalyzeEmotionFunc func(face services.FaceObservation, voice services.VoiceObservation) services.EmotionAnalysis
	SimulateFunc       func(req services.SimulationRequest) services.SimulationOutcome
}

func (m *MockDecisionService) Evaluate(ctx context.Context, req services.AttemptRequest) (*services.AttemptOutcome, error) {
	if m.EvaluateFunc == nil {
		return nil, models.ErrModelNotFound
	}
	return m.EvaluateFunc(ctx, req)
}

func (m *MockDecisionService) AnalyzeEmotion(face services.FaceObservation, voice services.VoiceObservation) services.EmotionAnalysis {
	if m.AnalyzeEmotionFunc == nil {
		return services.EmotionAnalysis{}
	}
	return m.AnalyzeEmotionFunc(face, voice)
}

func (m *MockDecisionService) Simulate(req services.SimulationRequest) services.SimulationOutcome {
	if m.SimulateFunc == nil {
		return services.SimulationOutcome{Inputs: req}
	}
	return m.SimulateFunc(req)
}

// MockEnrollmentService implements EnrollmentServiceInterface for testing
type MockEnrollmentService struct {
	EnrollFunc func(ctx context.Context, userID string, samples []keystroke.Sample) (*behavior.ModelHandle, error)
}

func (m *MockEnrollmentService) Enroll(ctx context.Context, userID string, samples []keystroke.Sample) (*behavior.ModelHandle, error) {
	if m.EnrollFunc == nil {
		return nil, models.ErrInsufficientData
	}
	return m.EnrollFunc(ctx, userID, samples)
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	GetStatisticsFunc    func(ctx context.Context) (*services.StatisticsResponse, error)
	ListAttemptsFunc     func(ctx context.Context, userID string, limit int) ([]*models.AccessAttempt, error)
	ListAlertsFunc       func(limit int, level fusion.AlertLevel) []alerts.Alert
	CriticalAlertsFunc   func() []alerts.Alert
	AcknowledgeAlertFunc func(ctx context.Context, actor string, id int64) (alerts.Alert, error)
	ResolveAlertFunc     func(ctx context.Context, actor string, id int64, note string) (alerts.Alert, error)
}

func (m *MockAdminService) GetStatistics(ctx context.Context) (*services.StatisticsResponse, error) {
	if m.GetStatisticsFunc == nil {
		return &services.StatisticsResponse{}, nil
	}
	return m.GetStatisticsFunc(ctx)
}

func (m *MockAdminService) ListAttempts(ctx context.Context, userID string, limit int) ([]*models.AccessAttempt, error) {
	if m.ListAttemptsFunc == nil {
		return nil, nil
	}
	return m.ListAttemptsFunc(ctx, userID, limit)
}

func (m *MockAdminService) ListAlerts(limit int, level fusion.AlertLevel) []alerts.Alert {
	if m.ListAlertsFunc == nil {
		return nil
	}
	return m.ListAlertsFunc(limit, level)
}

func (m *MockAdminService) CriticalAlerts() []alerts.Alert {
	if m.CriticalAlertsFunc == nil {
		return nil
	}
	return m.CriticalAlertsFunc()
}

func (m *MockAdminService) AcknowledgeAlert(ctx context.Context, actor string, id int64) (alerts.Alert, error) {
	if m.AcknowledgeAlertFunc == nil {
		return alerts.Alert{}, models.ErrNotFound
	}
	return m.AcknowledgeAlertFunc(ctx, actor, id)
}

func (m *MockAdminService) ResolveAlert(ctx context.Context, actor string, id int64, note string) (alerts.Alert, error) {
	if m.ResolveAlertFunc == nil {
		return alerts.Alert{}, models.ErrNotFound
	}
	return m.ResolveAlertFunc(ctx, actor, id, note)
}
